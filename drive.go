package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/catalog"
)

func newDriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Manage registered drives",
	}

	cmd.AddCommand(newDriveRegisterCmd())
	cmd.AddCommand(newDriveListCmd())
	cmd.AddCommand(newDriveRemoveCmd())
	cmd.AddCommand(newDriveOnlineCmd())
	cmd.AddCommand(newDriveOfflineCmd())
	cmd.AddCommand(newDriveInfoCmd())

	return cmd
}

func newDriveRegisterCmd() *cobra.Command {
	var (
		label        string
		mount        string
		role         string
		backend      string
		rcloneRemote string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new drive in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if label == "" {
				return fmt.Errorf("--label is required")
			}

			if role == "" {
				role = catalog.RoleSource
			}

			if backend == "" {
				backend = catalog.BackendLocal
			}

			if backend == catalog.BackendRclone && rcloneRemote == "" {
				return fmt.Errorf("--rclone-remote is required when --backend=rclone")
			}

			d := catalog.Drive{
				Label:    label,
				Role:     role,
				Backend:  backend,
				IsOnline: true,
			}

			if mount != "" {
				d.MountPath = &mount
			}

			if rcloneRemote != "" {
				d.RcloneRemote = &rcloneRemote
			}

			id, err := cc.Store.RegisterDrive(cmd.Context(), d)
			if err != nil {
				return fmt.Errorf("registering drive: %w", err)
			}

			cc.Statusf("Registered drive %q (id=%d)\n", label, id)

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "unique drive label (required)")
	cmd.Flags().StringVar(&mount, "mount", "", "filesystem mount path")
	cmd.Flags().StringVar(&role, "role", "", "source|target|backup|offload (default source)")
	cmd.Flags().StringVar(&backend, "backend", "", "local|rclone (default local)")
	cmd.Flags().StringVar(&rcloneRemote, "rclone-remote", "", "rclone remote name, required when --backend=rclone")

	return cmd
}

func newDriveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered drives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			drives, err := cc.Store.ListDrives(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing drives: %w", err)
			}

			if cc.JSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(drives)
			}

			printDriveTable(drives)

			return nil
		},
	}
}

func newDriveRemoveCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a drive from the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			d, err := cc.Store.GetDriveByLabel(cmd.Context(), label)
			if err != nil {
				return err
			}

			if err := cc.Store.RemoveDrive(cmd.Context(), d.ID); err != nil {
				return fmt.Errorf("removing drive: %w", err)
			}

			cc.Statusf("Removed drive %q\n", label)

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "drive label (required)")

	return cmd
}

func newDriveOnlineCmd() *cobra.Command {
	return newDriveOnlineOfflineCmd("online", true)
}

func newDriveOfflineCmd() *cobra.Command {
	return newDriveOnlineOfflineCmd("offline", false)
}

func newDriveOnlineOfflineCmd(use string, online bool) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Mark a drive %s", use),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			d, err := cc.Store.GetDriveByLabel(cmd.Context(), label)
			if err != nil {
				return err
			}

			if err := cc.Store.SetDriveOnline(cmd.Context(), d.ID, online); err != nil {
				return fmt.Errorf("updating drive: %w", err)
			}

			cc.Statusf("Drive %q marked %s\n", label, use)

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "drive label (required)")

	return cmd
}

func newDriveInfoCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show detailed information about one drive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			d, err := cc.Store.GetDriveByLabel(cmd.Context(), label)
			if err != nil {
				return err
			}

			if cc.JSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(d)
			}

			printDriveInfo(d)

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "drive label (required)")

	return cmd
}

func printDriveTable(drives []catalog.Drive) {
	headers := []string{"LABEL", "ROLE", "BACKEND", "ONLINE", "MOUNT"}
	rows := make([][]string, len(drives))

	for i, d := range drives {
		mount := ""
		if d.MountPath != nil {
			mount = *d.MountPath
		}

		rows[i] = []string{d.Label, d.Role, d.Backend, strconv.FormatBool(d.IsOnline), mount}
	}

	printTable(os.Stdout, headers, rows)
}

func printDriveInfo(d catalog.Drive) {
	fmt.Printf("Label:      %s\n", d.Label)
	fmt.Printf("Role:       %s\n", d.Role)
	fmt.Printf("Backend:    %s\n", d.Backend)
	fmt.Printf("Online:     %t\n", d.IsOnline)
	fmt.Printf("Readonly:   %t\n", d.IsReadonly)

	if d.MountPath != nil {
		fmt.Printf("Mount:      %s\n", *d.MountPath)
	}

	if d.RcloneRemote != nil {
		fmt.Printf("Rclone:     %s\n", *d.RcloneRemote)
	}

	if d.TotalBytes != nil {
		fmt.Printf("Total size: %s\n", formatSize(*d.TotalBytes))
	}

	if d.ScannedAt != nil {
		fmt.Printf("Last scan:  %s\n", *d.ScannedAt)
	}

	fmt.Printf("Added:      %s\n", d.AddedAt)
}
