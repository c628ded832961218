package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/planner"
	"github.com/prune-dev/prune/internal/policy"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Apply a declarative plan policy",
	}

	cmd.AddCommand(newPolicyRunCmd())

	return cmd
}

func newPolicyRunCmd() *cobra.Command {
	var (
		path   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate a policy file and create its plans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if path == "" {
				return fmt.Errorf("--file is required")
			}

			p, err := policy.LoadAndValidate(path)
			if err != nil {
				return fmt.Errorf("loading policy %s: %w", path, err)
			}

			if dryRun {
				cc.Statusf("Policy %q validated: %d plan entries would be created\n", p.Name, len(p.Plans))
				return nil
			}

			pl := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger)
			applier := policy.New(cc.Store, pl, cc.Logger)

			result, err := applier.Apply(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("applying policy %s: %w", path, err)
			}

			cc.Statusf("Created %d plans: %v\n", len(result.PlanIDs), result.PlanIDs)

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "path to the policy TOML file (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the policy without creating plans")

	return cmd
}
