package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/rollback"
)

func newRollbackCmd() *cobra.Command {
	var verifyHashes bool

	cmd := &cobra.Command{
		Use:   "rollback PLAN_ID",
		Short: "Undo a plan's completed, reversible steps",
		Long: `Rollback undoes a plan's completed steps in reverse step order. A
completed delete step makes the entire plan unrollbackable, since the
deleted content is gone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plan ID %q", args[0])
			}

			eng := rollback.New(cc.Store, verifyHashes, cc.Logger)

			ok, err := eng.CanRollback(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("checking rollback eligibility for plan %d: %w", id, err)
			}

			if !ok {
				return fmt.Errorf("plan %d contains a completed delete step and cannot be rolled back", id)
			}

			if err := eng.Rollback(cmd.Context(), id); err != nil {
				return fmt.Errorf("rolling back plan %d: %w", id, err)
			}

			cc.Statusf("Plan %d rolled back\n", id)

			return nil
		},
	}

	cmd.Flags().BoolVar(&verifyHashes, "verify", true, "re-verify hashes while restoring sources")

	return cmd
}
