package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/engine"
)

func newMigrateCmd() *cobra.Command {
	var (
		dryRun  bool
		execute bool
	)

	cmd := &cobra.Command{
		Use:   "migrate PLAN_ID",
		Short: "Execute an approved plan's pending steps",
		Long: `Execute walks an approved plan's pending steps in order, re-verifying
each source file's hash immediately before anything destructive. The
first step failure aborts the plan; no later step runs.

Exactly one of --dry-run or --execute must be given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if dryRun == execute {
				return fmt.Errorf("specify exactly one of --dry-run or --execute")
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plan ID %q", args[0])
			}

			opts := engine.DefaultOptions()
			opts.DryRun = dryRun

			if err := engine.New(cc.Store, opts, cc.Logger).Execute(cmd.Context(), id); err != nil {
				return fmt.Errorf("executing plan %d: %w", id, err)
			}

			if dryRun {
				cc.Statusf("Plan %d: dry run complete\n", id)
			} else {
				cc.Statusf("Plan %d: execution complete\n", id)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the plan without touching the filesystem")
	cmd.Flags().BoolVar(&execute, "execute", false, "run the plan for real")

	return cmd
}
