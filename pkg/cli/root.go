// Package cli implements the cyberxpert command-line client.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cyberxpert/internal/backend"
	"cyberxpert/internal/session"
)

var (
	version = "dev"
	commit  = "none"
)

const defaultHost = "http://localhost:8000"

// rootOptions holds the settings resolved from flags, environment and the
// active profile.
type rootOptions struct {
	host        string
	output      string
	profile     string
	session     string
	sessionPath string
	sessionKey  string
	verbose     bool
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var apiErr *backend.APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "cyberxpert",
		Short:         "CyberXpert CLI",
		Long:          "Command-line client for the CyberXpert security testing platform.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.host, "host", defaultHost, "CyberXpert API base URL")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&opts.session, "session", session.BackendFile, "Session store (memory, file, sqlite)")
	rootCmd.PersistentFlags().StringVar(&opts.sessionPath, "session-path", "", "Session file or database path")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newSignupCmd(opts))
	rootCmd.AddCommand(newLogoutCmd(opts))
	rootCmd.AddCommand(newWhoamiCmd(opts))
	rootCmd.AddCommand(newTestsCmd(opts))
	rootCmd.AddCommand(newReportsCmd(opts))
	rootCmd.AddCommand(newVulnsCmd(opts))
	rootCmd.AddCommand(newAccountsCmd(opts))
	rootCmd.AddCommand(newMenuCmd(opts))
	rootCmd.AddCommand(newSummaryCmd(opts))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve applies precedence flag > env > profile > default.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := LoadUserConfig()
	if err != nil {
		// Config file is optional
		cfg = defaultUserConfig()
	}
	p, err := cfg.ActiveProfile(o.profile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	pick := func(flag string, dst *string, env, profileValue string) {
		if flags.Changed(flag) {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		} else if profileValue != "" {
			*dst = profileValue
		}
	}
	pick("host", &o.host, "CYBERXPERT_HOST", p.Host)
	pick("output", &o.output, "CYBERXPERT_OUTPUT", p.Output)
	pick("session", &o.session, "CYBERXPERT_SESSION", p.Session)
	pick("session-path", &o.sessionPath, "CYBERXPERT_SESSION_PATH", p.SessionPath)
	o.sessionKey = os.Getenv("CYBERXPERT_SESSION_KEY")
	if o.sessionKey == "" {
		o.sessionKey = p.SessionKey
	}

	if err := validateOutputFormat(o.output); err != nil {
		return err
	}
	host, err := normalizeHost(o.host)
	if err != nil {
		return err
	}
	o.host = host
	if err := validateSessionBackend(o.session); err != nil {
		return err
	}
	if o.sessionPath == "" {
		o.sessionPath = defaultSessionPath(o.session)
	}
	return nil
}

func defaultSessionPath(backend string) string {
	switch backend {
	case session.BackendSQLite:
		return filepath.Join(ConfigDir(), "session.db")
	case session.BackendMemory:
		return ""
	default:
		return filepath.Join(ConfigDir(), "session.json")
	}
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
