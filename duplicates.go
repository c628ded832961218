package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/dedup"
	"github.com/prune-dev/prune/internal/rmlintimport"
)

func newDuplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Manage duplicate-group detection",
	}

	cmd.AddCommand(newDuplicatesRefreshCmd())
	cmd.AddCommand(newDuplicatesImportCmd())

	return cmd
}

func newDuplicatesRefreshCmd() *cobra.Command {
	var (
		label     string
		algorithm string
		rehash    bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute duplicate groups from content hashes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			algo, err := dedup.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			opts := dedup.Options{Algorithm: algo, Rehash: rehash}

			if label != "" {
				d, err := cc.Store.GetDriveByLabel(cmd.Context(), label)
				if err != nil {
					return err
				}

				opts.DriveID = &d.ID
			}

			result, err := dedup.New(cc.Store, cc.Logger).Refresh(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("refreshing duplicates: %w", err)
			}

			cc.Statusf("Hashed %d files, created %d groups covering %d duplicate files\n",
				result.FilesHashed, result.GroupsCreated, result.DuplicateFilesCreated)

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "drive", "", "limit refresh to one drive")
	cmd.Flags().StringVar(&algorithm, "algorithm", "blake3", "md5|blake3")
	cmd.Flags().BoolVar(&rehash, "rehash", false, "recompute hashes even when already stored")

	return cmd
}

func newDuplicatesImportCmd() *cobra.Command {
	var (
		path          string
		clearExisting bool
		applyTrash    bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an rmlint NDJSON report into the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if path == "" {
				return fmt.Errorf("--file is required")
			}

			opts := rmlintimport.DefaultOptions()
			opts.ClearExistingDuplicates = clearExisting

			if cmd.Flags().Changed("apply-trash") {
				opts.ApplyTrash = applyTrash
			}

			importer := rmlintimport.New(cc.Store, opts, cc.Logger)

			result, err := importer.Import(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}

			cc.Statusf("Imported %d groups covering %d files (%d lints skipped)\n",
				result.DuplicateGroupsCreated, result.DuplicateFilesAssigned, result.SkippedLints)

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "path to the rmlint NDJSON report (required)")
	cmd.Flags().BoolVar(&clearExisting, "clear-existing", false, "clear all existing duplicate groups before importing")
	cmd.Flags().BoolVar(&applyTrash, "apply-trash", true, "mark matched emptyfile/emptydir/badlink entries as trash priority")

	return cmd
}
