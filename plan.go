package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/planner"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create and inspect migration plans",
	}

	cmd.AddCommand(newPlanCreateCmd())
	cmd.AddCommand(newPlanListCmd())
	cmd.AddCommand(newPlanShowCmd())
	cmd.AddCommand(newPlanApproveCmd())

	return cmd
}

func newPlanCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft plan of one kind",
	}

	cmd.AddCommand(newPlanCreateDeleteTrashCmd())
	cmd.AddCommand(newPlanCreateDedupCmd())
	cmd.AddCommand(newPlanCreateMigrateCmd())
	cmd.AddCommand(newPlanCreateOffloadCmd())

	return cmd
}

func filesByPriority(files []catalog.File, priority string) []catalog.File {
	if priority == "" {
		return files
	}

	out := make([]catalog.File, 0, len(files))

	for _, f := range files {
		if f.Priority == priority {
			out = append(out, f)
		}
	}

	return out
}

func newPlanCreateDeleteTrashCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "delete-trash",
		Short: "Plan deletion of every trash-priority file on a drive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if label == "" {
				return fmt.Errorf("--drive is required")
			}

			d, err := cc.Store.GetDriveByLabel(cmd.Context(), label)
			if err != nil {
				return err
			}

			files, err := cc.Store.ListFilesByDrive(cmd.Context(), d.ID)
			if err != nil {
				return fmt.Errorf("listing files on drive %s: %w", label, err)
			}

			trash := filesByPriority(files, catalog.PriorityTrash)
			if len(trash) == 0 {
				return fmt.Errorf("no trash-priority files found on drive %s", label)
			}

			id, err := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger).CreateDeleteTrash(cmd.Context(), trash)
			if err != nil {
				return fmt.Errorf("creating delete-trash plan: %w", err)
			}

			cc.Statusf("Created plan %d (%d files)\n", id, len(trash))

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "drive", "", "drive label to scan for trash files (required)")

	return cmd
}

func newPlanCreateDedupCmd() *cobra.Command {
	var groupID int64

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Plan deletion of one duplicate group's redundant copies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if groupID == 0 {
				return fmt.Errorf("--group is required")
			}

			group, err := cc.Store.GetDuplicateGroup(cmd.Context(), groupID)
			if err != nil {
				return err
			}

			if group.OriginalID == nil {
				return fmt.Errorf("duplicate group %d has no nominated original", groupID)
			}

			members, err := cc.Store.ListFilesByDuplicateGroup(cmd.Context(), groupID)
			if err != nil {
				return fmt.Errorf("listing duplicate group %d members: %w", groupID, err)
			}

			var (
				original   catalog.File
				duplicates []catalog.File
			)

			for _, f := range members {
				if f.ID == *group.OriginalID {
					original = f
					continue
				}

				duplicates = append(duplicates, f)
			}

			id, err := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger).CreateDedup(cmd.Context(), duplicates, original)
			if err != nil {
				return fmt.Errorf("creating dedup plan: %w", err)
			}

			cc.Statusf("Created plan %d (%d duplicates, keeping %s)\n", id, len(duplicates), original.AbsPath)

			return nil
		},
	}

	cmd.Flags().Int64Var(&groupID, "group", 0, "duplicate group ID (required)")

	return cmd
}

func newPlanCreateMigrateCmd() *cobra.Command {
	var (
		sourceLabel string
		targetLabel string
		priority    string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Plan copying a drive's files onto another drive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if sourceLabel == "" || targetLabel == "" {
				return fmt.Errorf("--drive and --target are both required")
			}

			source, err := cc.Store.GetDriveByLabel(cmd.Context(), sourceLabel)
			if err != nil {
				return err
			}

			target, err := cc.Store.GetDriveByLabel(cmd.Context(), targetLabel)
			if err != nil {
				return err
			}

			if target.MountPath == nil {
				return fmt.Errorf("target drive %s has no mount path configured", targetLabel)
			}

			files, err := cc.Store.ListFilesByDrive(cmd.Context(), source.ID)
			if err != nil {
				return fmt.Errorf("listing files on drive %s: %w", sourceLabel, err)
			}

			files = filesByPriority(files, priority)
			if len(files) == 0 {
				return fmt.Errorf("no files matched on drive %s", sourceLabel)
			}

			id, err := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger).
				CreateMigrate(cmd.Context(), files, target.ID, *target.MountPath)
			if err != nil {
				return fmt.Errorf("creating migrate plan: %w", err)
			}

			cc.Statusf("Created plan %d (%d files to %s)\n", id, len(files), targetLabel)

			return nil
		},
	}

	cmd.Flags().StringVar(&sourceLabel, "drive", "", "source drive label (required)")
	cmd.Flags().StringVar(&targetLabel, "target", "", "target drive label (required)")
	cmd.Flags().StringVar(&priority, "priority", "", "limit to files at this priority")

	return cmd
}

func newPlanCreateOffloadCmd() *cobra.Command {
	var (
		sourceLabel string
		targetLabel string
		priority    string
	)

	cmd := &cobra.Command{
		Use:   "offload",
		Short: "Plan copy-then-delete of low-priority files onto an offload drive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if sourceLabel == "" || targetLabel == "" {
				return fmt.Errorf("--drive and --target are both required")
			}

			source, err := cc.Store.GetDriveByLabel(cmd.Context(), sourceLabel)
			if err != nil {
				return err
			}

			target, err := cc.Store.GetDriveByLabel(cmd.Context(), targetLabel)
			if err != nil {
				return err
			}

			if target.MountPath == nil {
				return fmt.Errorf("offload drive %s has no mount path configured", targetLabel)
			}

			files, err := cc.Store.ListFilesByDrive(cmd.Context(), source.ID)
			if err != nil {
				return fmt.Errorf("listing files on drive %s: %w", sourceLabel, err)
			}

			if priority == "" {
				priority = catalog.PriorityLow
			}

			files = filesByPriority(files, priority)
			if len(files) == 0 {
				return fmt.Errorf("no files matched on drive %s", sourceLabel)
			}

			id, err := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger).
				CreateOffload(cmd.Context(), files, target.ID, *target.MountPath)
			if err != nil {
				return fmt.Errorf("creating offload plan: %w", err)
			}

			cc.Statusf("Created plan %d (%d files to %s)\n", id, len(files), targetLabel)

			return nil
		},
	}

	cmd.Flags().StringVar(&sourceLabel, "drive", "", "source drive label (required)")
	cmd.Flags().StringVar(&targetLabel, "target", "", "offload drive label (required)")
	cmd.Flags().StringVar(&priority, "priority", "", "limit to files at this priority (default: low)")

	return cmd
}

func newPlanListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			plans, err := cc.Store.ListPlans(cmd.Context(), status)
			if err != nil {
				return fmt.Errorf("listing plans: %w", err)
			}

			headers := []string{"ID", "STATUS", "DESCRIPTION", "FILES", "BYTES", "PROGRESS"}
			rows := make([][]string, len(plans))

			for i, p := range plans {
				desc := ""
				if p.Description != nil {
					desc = *p.Description
				}

				rows[i] = []string{
					strconv.FormatInt(p.ID, 10),
					p.Status,
					desc,
					strconv.FormatInt(p.TotalFiles, 10),
					formatSize(p.TotalBytes),
					fmt.Sprintf("%d/%d", p.CompletedFiles, p.TotalFiles),
				}
			}

			printTable(os.Stdout, headers, rows)

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by plan status")

	return cmd
}

func newPlanShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show PLAN_ID",
		Short: "Show a plan and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plan ID %q", args[0])
			}

			plan, err := cc.Store.GetPlan(cmd.Context(), id)
			if err != nil {
				return err
			}

			steps, err := cc.Store.ListStepsForPlan(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("listing steps for plan %d: %w", id, err)
			}

			desc := ""
			if plan.Description != nil {
				desc = *plan.Description
			}

			fmt.Fprintf(os.Stdout, "Plan %d: %s\n", plan.ID, desc)
			fmt.Fprintf(os.Stdout, "Status: %s  Files: %d  Bytes: %s  Progress: %d/%d\n",
				plan.Status, plan.TotalFiles, formatSize(plan.TotalBytes), plan.CompletedFiles, plan.TotalFiles)

			headers := []string{"ORDER", "ACTION", "STATUS", "SOURCE", "DEST"}
			rows := make([][]string, len(steps))

			for i, s := range steps {
				dest := ""
				if s.DestPath != nil {
					dest = *s.DestPath
				}

				rows[i] = []string{
					strconv.FormatInt(s.StepOrder, 10),
					s.Action,
					s.Status,
					s.SourcePath,
					dest,
				}
			}

			printTable(os.Stdout, headers, rows)

			return nil
		},
	}
}

func newPlanApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve PLAN_ID",
		Short: "Approve a draft plan for execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plan ID %q", args[0])
			}

			if err := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger).Approve(cmd.Context(), id); err != nil {
				return fmt.Errorf("approving plan %d: %w", id, err)
			}

			cc.Statusf("Plan %d approved\n", id)

			return nil
		},
	}
}
