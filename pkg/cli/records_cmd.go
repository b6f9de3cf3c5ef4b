package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
)

func newTestsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "Security tests visible to you",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				tests, err := rt.dash.Tests(cmd.Context(), sess)
				if err != nil {
					return err
				}
				return render(cmd, tests, func(w io.Writer) error {
					return printRecords(w, tests, false)
				})
			})
		},
	})
	return cmd
}

func newReportsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Analysis reports visible to you",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				reports, err := rt.dash.Reports(cmd.Context(), sess)
				if err != nil {
					return err
				}
				return render(cmd, reports, func(w io.Writer) error {
					return printRecords(w, reports, true)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "read <report-id>",
		Short: "Mark a report as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				if err := rt.dash.MarkReportRead(cmd.Context(), sess, domain.ID(args[0])); err != nil {
					return err
				}
				return printStatus(cmd, "Report %s marked as read", args[0])
			})
		},
	})
	return cmd
}

func newVulnsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vulns",
		Short: "Vulnerabilities found by tests",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "address <test-id> <vulnerability-id>",
		Short: "Mark a vulnerability as addressed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(rt *runtime, sess dashboard.Session) error {
				err := rt.dash.AddressVulnerability(cmd.Context(), sess, domain.ID(args[0]), domain.ID(args[1]))
				if err != nil {
					return err
				}
				return printStatus(cmd, "Vulnerability %s on test %s marked as addressed", args[1], args[0])
			})
		},
	})
	return cmd
}

func printRecords(w io.Writer, records []domain.Record, withRead bool) error {
	columns := []string{"id", "name", "owner", "critical", "high", "medium", "low", "score", "created"}
	if withRead {
		columns = append(columns, "read")
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		owner := "shared"
		if r.CreatedBy != nil {
			owner = orDash(r.CreatedBy.Username)
		}
		score := "-"
		if r.Score != nil {
			score = strconv.FormatFloat(*r.Score, 'f', 1, 64)
		}
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format(time.DateOnly)
		}
		row := []string{
			r.ID.String(),
			orDash(r.Name),
			owner,
			strconv.Itoa(r.Severity.Critical),
			strconv.Itoa(r.Severity.High),
			strconv.Itoa(r.Severity.Medium),
			strconv.Itoa(r.Severity.Low),
			score,
			created,
		}
		if withRead {
			row = append(row, strconv.FormatBool(r.Read))
		}
		rows = append(rows, row)
	}
	return printTable(w, columns, rows)
}

func printStatus(cmd *cobra.Command, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if getOutputFormat(cmd) == "json" {
		return printJSON(cmd.OutOrStdout(), map[string]string{"status": "ok", "message": msg})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}
