package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
)

func newMenuCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Show the navigation available to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				entries, err := rt.dash.Menu(cmd.Context(), sess)
				if err != nil {
					return err
				}
				return render(cmd, entries, func(w io.Writer) error {
					return printMenu(w, entries)
				})
			})
		},
	}
}

func printMenu(w io.Writer, entries []domain.MenuEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		badge := ""
		if e.Badge != nil {
			badge = strconv.Itoa(*e.Badge)
		}
		rows = append(rows, []string{e.Key, e.Label, e.Path, badge})
	}
	return printTable(w, []string{"key", "label", "path", "badge"}, rows)
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show severity counters over your tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				s, err := rt.dash.Summary(cmd.Context(), sess)
				if err != nil {
					return err
				}
				return render(cmd, s, func(w io.Writer) error {
					avg := "-"
					if s.AverageScore != nil {
						avg = strconv.FormatFloat(*s.AverageScore, 'f', 1, 64)
					}
					return printDetail(w, [][2]string{
						{"Tests", strconv.Itoa(s.Total)},
						{"Critical", strconv.Itoa(s.Critical)},
						{"High", strconv.Itoa(s.High)},
						{"Medium", strconv.Itoa(s.Medium)},
						{"Low", strconv.Itoa(s.Low)},
						{"Open findings", strconv.Itoa(s.Open)},
						{"Average score", avg},
					})
				})
			})
		},
	}
}
