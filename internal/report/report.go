// Package report aggregates catalog statistics into a human-readable
// summary or a machine-readable export.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/prune-dev/prune/internal/catalog"
)

// DriveSummary is one row of the drive section: identity plus aggregate
// file and duplicate-waste counts.
type DriveSummary struct {
	Label               string
	Role                string
	IsOnline            bool
	MountPath           *string
	FileCount           int64
	TotalBytes          int64
	DuplicateFileCount  int64
	DuplicateWasteBytes int64
}

// CategorySummary is one row of the category section.
type CategorySummary struct {
	Category  string
	FileCount int64
	TotalSize int64
}

// Report is the full aggregate snapshot of one catalog.
type Report struct {
	Drives     []DriveSummary
	Categories []CategorySummary
	Duplicates catalog.DuplicateStatistics
	Plans      catalog.PlanStatistics
}

// Generate queries the catalog for every section of the report.
func Generate(ctx context.Context, store *catalog.Store) (Report, error) {
	drives, err := store.ListDrives(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list drives: %w", err)
	}

	driveStats, err := store.DriveStatistics(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("drive statistics: %w", err)
	}

	statsByID := make(map[int64]catalog.DriveStat, len(driveStats))
	for _, s := range driveStats {
		statsByID[s.DriveID] = s
	}

	summaries := make([]DriveSummary, 0, len(drives))

	for _, d := range drives {
		s := statsByID[d.ID]
		summaries = append(summaries, DriveSummary{
			Label:               d.Label,
			Role:                d.Role,
			IsOnline:            d.IsOnline,
			MountPath:           d.MountPath,
			FileCount:           s.FileCount,
			TotalBytes:          s.TotalSize,
			DuplicateFileCount:  s.DuplicateFileCount,
			DuplicateWasteBytes: s.DuplicateWasteBytes,
		})
	}

	categoryStats, err := store.CategoryStatistics(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("category statistics: %w", err)
	}

	categories := make([]CategorySummary, 0, len(categoryStats))
	for _, c := range categoryStats {
		categories = append(categories, CategorySummary{Category: c.Category, FileCount: c.FileCount, TotalSize: c.TotalSize})
	}

	dupStats, err := store.GetDuplicateStatistics(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("duplicate statistics: %w", err)
	}

	planStats, err := store.PlanStatistics(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("plan statistics: %w", err)
	}

	return Report{Drives: summaries, Categories: categories, Duplicates: dupStats, Plans: planStats}, nil
}

// String renders the report as the plain-text summary the "report"
// subcommand prints: one section per concern, in catalog-scan order.
func (r Report) String() string {
	var b strings.Builder

	b.WriteString("Drive Summary\n")

	for _, d := range r.Drives {
		fmt.Fprintf(&b, "  %-20s %-8s files=%-8d size=%-10s dup_files=%-6d wasted=%s\n",
			d.Label, d.Role, d.FileCount, humanize.Bytes(uint64(d.TotalBytes)),
			d.DuplicateFileCount, humanize.Bytes(uint64(d.DuplicateWasteBytes)))
	}

	b.WriteString("\nCategory Summary\n")

	if len(r.Categories) == 0 {
		b.WriteString("  No classified files\n")
	} else {
		for _, c := range r.Categories {
			category := c.Category
			if category == "" {
				category = "(unclassified)"
			}

			fmt.Fprintf(&b, "  %-20s files=%-8d size=%s\n", category, c.FileCount, humanize.Bytes(uint64(c.TotalSize)))
		}
	}

	b.WriteString("\nDuplicate Summary\n")

	if r.Duplicates.GroupCount == 0 {
		b.WriteString("  No duplicates found\n")
	} else {
		fmt.Fprintf(&b, "  Groups: %d\n", r.Duplicates.GroupCount)
		fmt.Fprintf(&b, "  Files: %d\n", r.Duplicates.TotalDuplicateFiles)
		fmt.Fprintf(&b, "  Wasted space: %s\n", humanize.Bytes(uint64(r.Duplicates.TotalWasteBytes)))
		fmt.Fprintf(&b, "  Cross-drive groups: %d\n", r.Duplicates.CrossDriveGroups)
	}

	b.WriteString("\nMigration Summary\n")

	if r.Plans.TotalPlans == 0 {
		b.WriteString("  No migration plans\n")
	} else {
		fmt.Fprintf(&b, "  Total plans: %d\n", r.Plans.TotalPlans)
		fmt.Fprintf(&b, "  Completed: %d\n", r.Plans.CompletedPlans)
		fmt.Fprintf(&b, "  Data migrated: %s\n", humanize.Bytes(uint64(r.Plans.MigratedBytes)))
	}

	return b.String()
}
