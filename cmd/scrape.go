package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	var generic bool
	cmd := &cobra.Command{
		Use:   "scrape <jurisdiction>",
		Short: "Scrape one jurisdiction to completion",
		Long: `Runs a single scrape for the given jurisdiction code (for example CA,
TX, FL or NY) and prints the result. Use --generic to force the
selector-driven source configured under jurisdictions.<code>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := appInstance.RunScrape(cmd.Context(), args[0], generic)
			if err != nil {
				return fmt.Errorf("%s: %w", result.Message, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			if result.SessionID != "" {
				fmt.Fprintf(out, "session: %s\n", result.SessionID)
			}
			if !result.Success {
				return errors.New("scrape did not complete")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&generic, "generic", false, "use the configured generic source instead of the dedicated one")
	return cmd
}
