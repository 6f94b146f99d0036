package commands

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/gaborage/backoffice-client/httpclient"
)

// terminalHost is the CLI's navigation and notification boundary. The
// "login screen" is the login command itself.
type terminalHost struct {
	out     io.Writer
	atLogin atomic.Bool
}

func newTerminalHost(out io.Writer) *terminalHost {
	return &terminalHost{out: out}
}

func (h *terminalHost) AtLogin() bool {
	return h.atLogin.Load()
}

func (h *terminalHost) NavigateToLogin(_ context.Context) {
	h.atLogin.Store(true)
	fmt.Fprintln(h.out, "Your session has expired. Sign in again with: backoffice login --token <token>")
}

func (h *terminalHost) Notify(_ context.Context, err *httpclient.ClassifiedError) {
	switch {
	case err.Kind == httpclient.KindRateLimited && err.RetryAfter != "":
		fmt.Fprintf(h.out, "%s: %s (retry after %s)\n", err.Kind, err.Message, err.RetryAfter)
	case err.StatusCode > 0:
		fmt.Fprintf(h.out, "%s: %s (HTTP %d)\n", err.Kind, err.Message, err.StatusCode)
	default:
		fmt.Fprintf(h.out, "%s: %s\n", err.Kind, err.Message)
	}
}
