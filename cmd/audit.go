package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/statute-crawler/internal/audit"
)

func newAuditCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check candidate statute sources against their robots.txt",
		Long: `Loads robots.txt for every candidate source and reports whether its
representative statute path may be crawled. No statute pages are fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			report, err := appInstance.Audit(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by the app
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				return nil
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func renderReport(out io.Writer, report audit.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("robots.txt audit for " + report.UserAgent)
	t.AppendHeader(table.Row{"Source", "Jurisdiction", "Allowed", "Robots", "Crawl Delay", "Notes"})
	for _, r := range report.Results {
		delay := "-"
		if r.CrawlDelaySeconds > 0 {
			delay = strconv.FormatFloat(r.CrawlDelaySeconds, 'f', -1, 64) + "s"
		}
		notes := r.Recommendation
		if notes == "" {
			notes = r.Reason
		}
		t.AppendRow(table.Row{r.Candidate.Name, r.Candidate.Jurisdiction, yesNo(r.Allowed), r.RobotsStatus, delay, notes})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d allowed", report.Allowed), fmt.Sprintf("%d disallowed", report.Disallowed), "", ""})
	t.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
