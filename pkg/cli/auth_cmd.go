package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Example: `  # Prompt for the password
  cyberxpert login --email alice@example.com

  # Read the password from a pipe
  echo "$PASSWORD" | cyberxpert login --email alice@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}
			rt, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close() //nolint:errcheck

			tokens, raw, err := rt.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			p, err := rt.resolver.Login(cmd.Context(), tokens, raw)
			if err != nil {
				return err
			}
			return printPrincipal(cmd, p)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	var (
		req           domain.SignupRequest
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a developer account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}
			req.Password = password
			if err := req.Validate(); err != nil {
				return err
			}
			rt, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close() //nolint:errcheck

			tokens, raw, err := rt.client.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			p, err := rt.resolver.Signup(cmd.Context(), tokens, raw)
			if err != nil {
				return err
			}
			return printPrincipal(cmd, p)
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email (required)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close() //nolint:errcheck

			ctx := cmd.Context()
			_, err = rt.resolver.Restore(ctx)
			switch {
			case errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrInvalidToken):
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			case err != nil:
				return err
			}

			tokens := rt.resolver.Tokens()
			remote := rt.client.WithToken(tokens.Access)
			err = rt.resolver.Logout(ctx, func(ctx context.Context) error {
				return remote.Logout(ctx, tokens.Refresh)
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				p := sess.Principal
				if refresh {
					raw, err := sess.Backend.Me(cmd.Context())
					if err != nil {
						return err
					}
					p, err = rt.resolver.Replace(cmd.Context(), identity.ResolvePrincipal(raw))
					if err != nil {
						return err
					}
				}
				return printPrincipal(cmd, p)
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Reload the profile from the backend")

	return cmd
}

func printPrincipal(cmd *cobra.Command, p *domain.Principal) error {
	return render(cmd, p, func(w io.Writer) error {
		pairs := [][2]string{
			{"ID", p.ID.String()},
			{"Username", orDash(p.Username)},
			{"Email", orDash(p.Email)},
			{"Role", string(p.Role)},
			{"Status", string(p.Status)},
		}
		if p.Superuser() {
			pairs = append(pairs, [2]string{"Superuser", "yes"})
		}
		if !p.CreatedAt.IsZero() {
			pairs = append(pairs, [2]string{"Joined", p.CreatedAt.Format(time.DateOnly)})
		}
		return printDetail(w, pairs)
	})
}

// readPassword reads a password from stdin when asked to, or prompts on the
// terminal without echo.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", fmt.Errorf("empty password on stdin")
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal: use --password-stdin")
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	data, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(data), nil
}
