package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/backoffice-client/httpclient"
)

// RequestOptions holds options shared by the request commands
type RequestOptions struct {
	Data           string
	DataFile       string
	Headers        []string
	Query          []string
	IdempotencyKey string
	Raw            bool
}

// NewRequestCommands creates one command per HTTP verb
func NewRequestCommands(rt *Runtime) []*cobra.Command {
	verbs := []struct {
		method string
		body   bool
	}{
		{http.MethodGet, false},
		{http.MethodPost, true},
		{http.MethodPut, true},
		{http.MethodPatch, true},
		{http.MethodDelete, false},
	}

	cmds := make([]*cobra.Command, 0, len(verbs))
	for _, v := range verbs {
		cmds = append(cmds, newRequestCommand(rt, v.method, v.body))
	}
	return cmds
}

func newRequestCommand(rt *Runtime, method string, withBody bool) *cobra.Command {
	opts := &RequestOptions{}
	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " <path>",
		Short: "Send a " + method + " request to the back-office API",
		Example: fmt.Sprintf(`  backoffice %s /suppliers
  backoffice %s /invoices -q status=open -H "Accept-Language: fr"`, name, name),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, rt, method, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, `Extra header as "Name: value" (repeatable)`)
	cmd.Flags().StringArrayVarP(&opts.Query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Print the response body without formatting")
	if withBody {
		cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON request body")
		cmd.Flags().StringVar(&opts.DataFile, "data-file", "", "Read the request body from a file, - for stdin")
		cmd.Flags().StringVar(&opts.IdempotencyKey, "idempotency-key", "", "Idempotency-Key header, enables automatic retries")
		cmd.MarkFlagsMutuallyExclusive("data", "data-file")
	}

	return cmd
}

func runRequest(cmd *cobra.Command, rt *Runtime, method, path string, opts *RequestOptions) error {
	req, err := buildRequest(cmd.InOrStdin(), path, opts)
	if err != nil {
		return err
	}

	client, err := rt.Client(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := client.Do(cmd.Context(), method, req)
	if err != nil {
		return err
	}

	rt.Logger().Debug().
		Int("status", resp.StatusCode).
		Int("attempts", resp.Stats.Attempts).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Msg("Request completed")
	return writeBody(cmd.OutOrStdout(), resp.Body, opts.Raw)
}

func buildRequest(stdin io.Reader, path string, opts *RequestOptions) (*httpclient.Request, error) {
	req := &httpclient.Request{
		Path:           path,
		IdempotencyKey: opts.IdempotencyKey,
	}

	body, err := readBody(stdin, opts)
	if err != nil {
		return nil, err
	}
	req.Body = body

	if len(opts.Headers) > 0 {
		req.Headers = make(map[string]string, len(opts.Headers))
		for _, h := range opts.Headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
			}
			req.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	if len(opts.Query) > 0 {
		req.Query = url.Values{}
		for _, q := range opts.Query {
			key, value, ok := strings.Cut(q, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid query parameter %q, expected key=value", q)
			}
			req.Query.Add(key, value)
		}
	}

	return req, nil
}

func readBody(stdin io.Reader, opts *RequestOptions) ([]byte, error) {
	var body []byte
	switch {
	case opts.Data != "":
		body = []byte(opts.Data)
	case opts.DataFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		body = data
	case opts.DataFile != "":
		data, err := os.ReadFile(opts.DataFile)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		body = data
	default:
		return nil, nil
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("request body is not valid JSON")
	}
	return body, nil
}

func writeBody(w io.Writer, body []byte, raw bool) error {
	if len(body) == 0 {
		return nil
	}
	if !raw {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			buf.WriteByte('\n')
			_, err = w.Write(buf.Bytes())
			return err
		}
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if body[len(body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
