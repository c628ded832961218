package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/report"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize catalog contents across drives, categories, and duplicates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			r, err := report.Generate(cmd.Context(), cc.Store)
			if err != nil {
				return fmt.Errorf("generating report: %w", err)
			}

			fmt.Print(r.String())

			return nil
		},
	}
}
