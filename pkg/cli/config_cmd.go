package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"cyberxpert/internal/session"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetProfileCmd())
	cmd.AddCommand(newConfigSetHostCmd())
	cmd.AddCommand(newConfigUseProfileCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No configuration found at %s\n", ConfigPath())
				return err
			}
			if !reveal {
				cfg = maskConfig(cfg)
			}
			return render(cmd, cfg, func(w io.Writer) error {
				names := make([]string, 0, len(cfg.Profiles))
				for name := range cfg.Profiles {
					names = append(names, name)
				}
				sort.Strings(names)

				rows := make([][]string, 0, len(names))
				for _, name := range names {
					p := cfg.Profiles[name]
					active := ""
					if name == cfg.CurrentProfile {
						active = "*"
					}
					rows = append(rows, []string{name, active, orDash(p.Host), orDash(p.Output), orDash(p.Session), orDash(p.SessionKey)})
				}
				return printTable(w, []string{"profile", "active", "host", "output", "session", "session-key"}, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show sensitive values unmasked")

	return cmd
}

// maskConfig returns a copy of the config with sensitive fields masked.
func maskConfig(cfg *UserConfig) *UserConfig {
	masked := &UserConfig{
		CurrentProfile: cfg.CurrentProfile,
		Profiles:       make(map[string]Profile, len(cfg.Profiles)),
	}
	for name, p := range cfg.Profiles {
		p.SessionKey = maskSecret(p.SessionKey)
		masked.Profiles[name] = p
	}
	return masked
}

// maskSecret masks a sensitive string, showing first 4 and last 4 chars.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func newConfigSetProfileCmd() *cobra.Command {
	var (
		name        string
		host        string
		output      string
		backend     string
		sessionPath string
		sessionKey  string
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("host") {
				normalized, err := normalizeHost(host)
				if err != nil {
					return err
				}
				host = normalized
			}
			if flags.Changed("output") {
				if err := validateOutputFormat(output); err != nil {
					return err
				}
			}
			if flags.Changed("session") {
				if err := validateSessionBackend(backend); err != nil {
					return err
				}
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = defaultUserConfig()
			}

			p := cfg.Profiles[name]
			if flags.Changed("host") {
				p.Host = host
			}
			if flags.Changed("output") {
				p.Output = output
			}
			if flags.Changed("session") {
				p.Session = backend
			}
			if flags.Changed("session-path") {
				p.SessionPath = sessionPath
			}
			if flags.Changed("session-key") {
				p.SessionKey = sessionKey
			}
			cfg.Profiles[name] = p

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			return printStatus(cmd, "Profile %q saved to %s", name, ConfigPath())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&host, "host", "", "API base URL")
	cmd.Flags().StringVar(&output, "output", "", "Default output format")
	cmd.Flags().StringVar(&backend, "session", "", "Session store (memory, file, sqlite)")
	cmd.Flags().StringVar(&sessionPath, "session-path", "", "Session file or database path")
	cmd.Flags().StringVar(&sessionKey, "session-key", "", "Hex-encoded 32-byte key sealing the sqlite session store")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newConfigSetHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-host <url>",
		Short: "Set the API base URL of the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := normalizeHost(args[0])
			if err != nil {
				return err
			}
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = defaultUserConfig()
			}
			if cfg.CurrentProfile == "" {
				cfg.CurrentProfile = "default"
			}
			p := cfg.Profiles[cfg.CurrentProfile]
			p.Host = host
			cfg.Profiles[cfg.CurrentProfile] = p
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			return printStatus(cmd, "Host for profile %q set to %s", cfg.CurrentProfile, host)
		},
	}
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			return printStatus(cmd, "Active profile set to %q", name)
		},
	}
}

func validateSessionBackend(b string) error {
	switch b {
	case session.BackendMemory, session.BackendFile, session.BackendSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported session store %q: use 'memory', 'file' or 'sqlite'", b)
	}
}
