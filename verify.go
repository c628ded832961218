package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/hashutil"
)

// VerifyMismatch describes one file whose on-disk content no longer
// matches its stored hash.
type VerifyMismatch struct {
	Path     string `json:"path"`
	Drive    string `json:"drive"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

// VerifyReport summarizes one verify run.
type VerifyReport struct {
	Verified   int              `json:"verified"`
	Mismatches []VerifyMismatch `json:"mismatches"`
}

func newVerifyCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash cataloged files and compare against stored hashes",
		Long: `Re-hash a drive's (or every drive's) cataloged files and compare the
result against the hash stored at index time. Drift is reported without
mutating catalog state — this is a read-only audit, distinct from the
execution engine's in-plan verification.

Exit code 0 if every file verifies; exit code 1 if any mismatch is found.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			report, err := runVerify(cmd.Context(), cc.Store, label)
			if err != nil {
				return err
			}

			if cc.JSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("encoding JSON output: %w", err)
				}
			} else {
				printVerifyReport(report)
			}

			if len(report.Mismatches) > 0 {
				os.Exit(1)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "drive", "", "limit verification to one drive label")

	return cmd
}

func runVerify(ctx context.Context, store *catalog.Store, label string) (VerifyReport, error) {
	var (
		files []catalog.File
		err   error
	)

	driveLabels := make(map[int64]string)

	if label != "" {
		d, gerr := store.GetDriveByLabel(ctx, label)
		if gerr != nil {
			return VerifyReport{}, gerr
		}

		driveLabels[d.ID] = d.Label

		files, err = store.ListFilesByDrive(ctx, d.ID)
		if err != nil {
			return VerifyReport{}, fmt.Errorf("listing files for drive %s: %w", label, err)
		}
	} else {
		drives, derr := store.ListDrives(ctx)
		if derr != nil {
			return VerifyReport{}, fmt.Errorf("listing drives: %w", derr)
		}

		for _, d := range drives {
			driveLabels[d.ID] = d.Label

			driveFiles, lerr := store.ListFilesByDrive(ctx, d.ID)
			if lerr != nil {
				return VerifyReport{}, fmt.Errorf("listing files for drive %s: %w", d.Label, lerr)
			}

			files = append(files, driveFiles...)
		}
	}

	var report VerifyReport

	for _, f := range files {
		if f.IsSymlink {
			continue
		}

		expected := f.Blake3Hash
		if expected == nil {
			expected = f.MD5Hash
		}

		if expected == nil {
			continue
		}

		match, verr := hashutil.Verify(f.AbsPath, *expected)
		if verr != nil {
			report.Mismatches = append(report.Mismatches, VerifyMismatch{
				Path:     f.Path,
				Drive:    driveLabels[f.DriveID],
				Expected: *expected,
				Error:    verr.Error(),
			})

			continue
		}

		if !match {
			actual, _ := hashutil.Compute(f.AbsPath)
			report.Mismatches = append(report.Mismatches, VerifyMismatch{
				Path:     f.Path,
				Drive:    driveLabels[f.DriveID],
				Expected: *expected,
				Actual:   actual,
			})

			continue
		}

		report.Verified++
	}

	return report, nil
}

func printVerifyReport(report VerifyReport) {
	fmt.Printf("Verified: %d files\n", report.Verified)

	if len(report.Mismatches) == 0 {
		fmt.Println("All files verified successfully.")
		return
	}

	fmt.Printf("Mismatches: %d\n\n", len(report.Mismatches))

	headers := []string{"DRIVE", "PATH", "EXPECTED", "ACTUAL"}
	rows := make([][]string, len(report.Mismatches))

	for i, m := range report.Mismatches {
		actual := m.Actual
		if actual == "" {
			actual = m.Error
		}

		rows[i] = []string{m.Drive, m.Path, m.Expected, actual}
	}

	printTable(os.Stdout, headers, rows)
}
