package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/scanner"
)

// scanTarget is one drive-mount pair queued for scanning.
type scanTarget struct {
	id   int64
	root string
}

func newScanCmd() *cobra.Command {
	var (
		label     string
		subPath   string
		allOnline bool
		hashAlgo  string
		workers   int
		mime      bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Index a drive's files into the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			hash := scanner.HashNone

			switch hashAlgo {
			case "", "none":
				hash = scanner.HashNone
			case "md5":
				hash = scanner.HashMD5
			case "blake3":
				hash = scanner.HashBlake3
			default:
				return fmt.Errorf("invalid --hash value %q, use md5, blake3, or none", hashAlgo)
			}

			var targets []scanTarget

			if allOnline {
				drives, err := cc.Store.ListDrives(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing drives: %w", err)
				}

				for _, d := range drives {
					if !d.IsOnline || d.MountPath == nil {
						continue
					}

					targets = append(targets, scanTarget{id: d.ID, root: *d.MountPath})
				}
			} else {
				if label == "" {
					return fmt.Errorf("--drive is required unless --all-online is set")
				}

				d, err := cc.Store.GetDriveByLabel(cmd.Context(), label)
				if err != nil {
					return err
				}

				if d.MountPath == nil {
					return fmt.Errorf("drive %q has no mount path configured", label)
				}

				targets = append(targets, scanTarget{id: d.ID, root: *d.MountPath})
			}

			for _, target := range targets {
				root := target.root
				if subPath != "" {
					root = filepath.Join(root, subPath)
				}

				s := scanner.New(target.id, cc.Store, scanner.Options{
					Workers:        workers,
					Hash:           hash,
					DetectMimeType: mime,
				}, cc.Logger)

				result, err := s.Scan(cmd.Context(), root)
				if err != nil {
					return fmt.Errorf("scanning %s: %w", root, err)
				}

				cc.Statusf("Indexed %d files (%d skipped, %d directories) under %s\n",
					result.FilesIndexed, result.Skipped, result.DirectoriesSeen, root)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "drive", "", "drive label to scan")
	cmd.Flags().StringVar(&subPath, "path", "", "subpath under the drive's mount to scan, relative")
	cmd.Flags().BoolVar(&allOnline, "all-online", false, "scan every online drive")
	cmd.Flags().StringVar(&hashAlgo, "hash", "", "compute md5 or blake3 while scanning (default: none)")
	cmd.Flags().BoolVar(&mime, "mime", false, "detect and store MIME type while scanning")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent workers (default 4)")

	return cmd
}
