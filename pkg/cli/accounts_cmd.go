package cli

import (
	"io"

	"github.com/spf13/cobra"

	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
	"cyberxpert/internal/visibility"
)

func newAccountsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage developer and admin accounts (admins only)",
	}

	cmd.AddCommand(newAccountsListCmd(opts))
	cmd.AddCommand(newAccountsCreateCmd(opts))
	cmd.AddCommand(newAccountStatusCmd(opts, "suspend", domain.StatusSuspended))
	cmd.AddCommand(newAccountStatusCmd(opts, "activate", domain.StatusActive))
	cmd.AddCommand(newAccountsDeleteCmd(opts))

	return cmd
}

func newAccountsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List managed accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				part, err := rt.dash.Accounts(cmd.Context(), sess)
				if err != nil {
					return err
				}
				return render(cmd, part, func(w io.Writer) error {
					var rows [][]string
					for _, list := range [][]domain.UserAccount{part.Developers, part.Admins} {
						for _, a := range list {
							rows = append(rows, []string{
								a.ID.String(), a.Username, orDash(a.Email), string(a.Role), string(a.Status),
								actionsLabel(visibility.AccountActions(sess.Principal, a)),
							})
						}
					}
					return printTable(w, []string{"id", "username", "email", "role", "status", "actions"}, rows)
				})
			})
		},
	}
}

func actionsLabel(a visibility.Actions) string {
	switch {
	case a.ToggleStatus && a.Delete:
		return "toggle,delete"
	case a.ToggleStatus:
		return "toggle"
	case a.Delete:
		return "delete"
	default:
		return "-"
	}
}

func newAccountsCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		req           domain.CreateAccountRequest
		role          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Example: `  echo "$PASSWORD" | cyberxpert accounts create --username bob --email bob@example.com --role developer --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, ok := domain.ParseRole(role)
			if !ok {
				return domain.ErrValidation("role must be 'admin' or 'developer'")
			}
			req.Role = r

			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				password, err := readPassword(cmd, passwordStdin)
				if err != nil {
					return err
				}
				req.Password = password
				acct, err := rt.dash.CreateAccount(cmd.Context(), sess, req)
				if err != nil {
					return err
				}
				return printAccount(cmd, acct)
			})
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email (required)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleDeveloper), "Role (developer, admin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAccountStatusCmd(opts *rootOptions, verb string, status domain.Status) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <account-id>",
		Short: "Set an account's status to " + string(status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				acct, err := rt.dash.SetAccountStatus(cmd.Context(), sess, domain.ID(args[0]), status)
				if err != nil {
					return err
				}
				return printAccount(cmd, acct)
			})
		},
	}
}

func newAccountsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				if err := rt.dash.DeleteAccount(cmd.Context(), sess, domain.ID(args[0])); err != nil {
					return err
				}
				return printStatus(cmd, "Account %s deleted", args[0])
			})
		},
	}
}

func printAccount(cmd *cobra.Command, a *domain.UserAccount) error {
	return render(cmd, a, func(w io.Writer) error {
		return printDetail(w, [][2]string{
			{"ID", a.ID.String()},
			{"Username", a.Username},
			{"Email", orDash(a.Email)},
			{"Role", string(a.Role)},
			{"Status", string(a.Status)},
		})
	})
}
