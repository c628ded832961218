package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/classify"
)

func newClassifyCmd() *cobra.Command {
	var policyPath string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify indexed files against a rule file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if policyPath == "" {
				return fmt.Errorf("--policy is required")
			}

			rules, err := classify.Load(policyPath)
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}

			applier, err := classify.NewApplier(cc.Store, rules, cc.Logger)
			if err != nil {
				return fmt.Errorf("compiling rules: %w", err)
			}

			result, err := applier.ClassifyStatus(cmd.Context(), catalog.FileStatusIndexed)
			if err != nil {
				return fmt.Errorf("classifying files: %w", err)
			}

			cc.Statusf("Classified %d of %d files (%d unmatched)\n",
				result.FilesClassified, result.FilesScanned, result.FilesUnmatched)

			return nil
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", "", "path to the classification rule TOML file (required)")

	return cmd
}
