package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/backoffice-client/session"
)

// ErrNotSignedIn is returned by whoami when no valid token is stored.
var ErrNotSignedIn = errors.New("not signed in")

// LoginOptions holds options for the login command
type LoginOptions struct {
	Token string
}

// NewLoginCommand creates the login command
func NewLoginCommand(rt *Runtime) *cobra.Command {
	opts := &LoginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token",
		Long: `Stores the bearer token issued by the back-office API. The token is
decoded to show who is signed in; its signature is not checked, the API
remains the only authority on whether it is valid.`,
		Example: `  backoffice login --token eyJhbGciOi...
  echo "$TOKEN" | backoffice login --token -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Token, "token", "t", "", "Bearer token, or - to read it from stdin")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runLogin(cmd *cobra.Command, rt *Runtime, opts *LoginOptions) error {
	token := opts.Token
	if token == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		token = string(data)
	}
	token = strings.TrimSpace(token)

	sess, err := session.Decode(token)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	store, err := rt.Session(cmd.Context())
	if err != nil {
		return err
	}
	if err := store.Set(cmd.Context(), token); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(sess))
	return nil
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := rt.Session(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command
func NewWhoamiCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := rt.Session(cmd.Context())
			if err != nil {
				return err
			}
			sess, err := store.Get(cmd.Context())
			if err != nil {
				return err
			}
			if sess == nil {
				return ErrNotSignedIn
			}
			printSession(cmd.OutOrStdout(), sess, time.Now())
			return nil
		},
	}
}

func printSession(w io.Writer, sess *session.Session, now time.Time) {
	fmt.Fprintf(w, "User ID: %s\n", sess.UserID)
	if sess.Name != "" {
		fmt.Fprintf(w, "Name:    %s\n", sess.Name)
	}
	if sess.Email != "" {
		fmt.Fprintf(w, "Email:   %s\n", sess.Email)
	}
	if !sess.ExpiresAt.IsZero() {
		status := "valid"
		if sess.Expired(now) {
			status = "expired"
		}
		fmt.Fprintf(w, "Expires: %s (%s)\n", sess.ExpiresAt.UTC().Format(time.RFC3339), status)
	}
}

func displayName(sess *session.Session) string {
	switch {
	case sess.Name != "":
		return sess.Name
	case sess.Email != "":
		return sess.Email
	default:
		return sess.UserID
	}
}
