package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/report"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog report as JSON or CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			r, err := report.Generate(cmd.Context(), cc.Store)
			if err != nil {
				return fmt.Errorf("generating report: %w", err)
			}

			data, err := report.Export(r, format, time.Now())
			if err != nil {
				return err
			}

			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			cc.Statusf("Wrote %s\n", output)

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", report.FormatJSON, "json|csv")
	cmd.Flags().StringVar(&output, "output", "", "output file path (default: stdout)")

	return cmd
}
