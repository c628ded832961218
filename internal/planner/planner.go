// Package planner builds validated, persisted step sequences for the four
// plan kinds (delete-trash, dedup, migrate, offload) ahead of any
// filesystem I/O.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/space"
)

// Options configures planning-time validation.
type Options struct {
	// EnforceSpaceLimits gates migrate/offload plan creation on the
	// target mount's safe-write budget.
	EnforceSpaceLimits bool
}

// DefaultOptions matches the conservative default of the source planner:
// space limits enforced.
func DefaultOptions() Options {
	return Options{EnforceSpaceLimits: true}
}

// Planner turns a user intent plus a file set into a persisted plan.
type Planner struct {
	store  *catalog.Store
	opts   Options
	logger *slog.Logger
}

// New returns a Planner bound to store for the duration of its calls. Per
// the catalog's exclusive-ownership rule, no other component should mutate
// store concurrently.
func New(store *catalog.Store, opts Options, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Planner{store: store, opts: opts, logger: logger}
}

func preferredHash(f catalog.File) *string {
	if f.Blake3Hash != nil {
		return f.Blake3Hash
	}

	return f.MD5Hash
}

func sumBytes(files []catalog.File) int64 {
	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}

	return total
}

// CreateDeleteTrash builds one delete step per file, ordered by the order
// files were given in.
func (p *Planner) CreateDeleteTrash(ctx context.Context, files []catalog.File) (int64, error) {
	if len(files) == 0 {
		return 0, fmt.Errorf("planner: delete-trash plan requires a non-empty file set")
	}

	totalBytes := sumBytes(files)
	desc := fmt.Sprintf("Delete %d trash files", len(files))

	plan := catalog.Plan{
		Description: &desc,
		TotalFiles:  int64(len(files)),
		TotalBytes:  totalBytes,
	}

	steps := make([]catalog.NewStep, 0, len(files))

	for i, f := range files {
		steps = append(steps, catalog.NewStep{
			FileID:        f.ID,
			Action:        catalog.ActionDelete,
			SourcePath:    f.AbsPath,
			SourceDriveID: &f.DriveID,
			StepOrder:     int64(i),
		})
	}

	p.logger.Info("planner: creating delete-trash plan", "files", len(files), "bytes", totalBytes)

	return p.store.CreatePlanWithSteps(ctx, plan, steps, desc)
}

// CreateDedup builds one delete step per duplicate, carrying each
// duplicate's own hash as pre_hash; original is never part of the step set.
func (p *Planner) CreateDedup(ctx context.Context, duplicates []catalog.File, original catalog.File) (int64, error) {
	if len(duplicates) == 0 {
		return 0, fmt.Errorf("planner: dedup plan requires a non-empty duplicate set")
	}

	for _, d := range duplicates {
		if d.ID == original.ID {
			return 0, fmt.Errorf("planner: nominated original %d must not appear in the duplicate set", original.ID)
		}
	}

	totalBytes := sumBytes(duplicates)
	desc := fmt.Sprintf("Deduplicate %d files (keep original: %s)", len(duplicates), original.AbsPath)

	plan := catalog.Plan{
		Description: &desc,
		TotalFiles:  int64(len(duplicates)),
		TotalBytes:  totalBytes,
	}

	steps := make([]catalog.NewStep, 0, len(duplicates))

	for i, f := range duplicates {
		steps = append(steps, catalog.NewStep{
			FileID:        f.ID,
			Action:        catalog.ActionDelete,
			SourcePath:    f.AbsPath,
			SourceDriveID: &f.DriveID,
			PreHash:       preferredHash(f),
			StepOrder:     int64(i),
		})
	}

	p.logger.Info("planner: creating dedup plan", "duplicates", len(duplicates), "original", original.AbsPath)

	return p.store.CreatePlanWithSteps(ctx, plan, steps, desc)
}

// CreateMigrate builds one copy step per file, destination rooted at
// targetMount. Each step carries the file's known hash as pre_hash.
func (p *Planner) CreateMigrate(ctx context.Context, files []catalog.File, targetDriveID int64, targetMount string) (int64, error) {
	if len(files) == 0 {
		return 0, fmt.Errorf("planner: migrate plan requires a non-empty file set")
	}

	totalBytes := sumBytes(files)

	if p.opts.EnforceSpaceLimits {
		if err := space.VerifySufficientSpace(targetMount, uint64(totalBytes)); err != nil {
			return 0, err
		}
	}

	sourceDriveID := files[0].DriveID
	desc := fmt.Sprintf("Migrate %d files to target drive %d", len(files), targetDriveID)

	plan := catalog.Plan{
		Description:   &desc,
		SourceDriveID: &sourceDriveID,
		TargetDriveID: &targetDriveID,
		TotalFiles:    int64(len(files)),
		TotalBytes:    totalBytes,
	}

	steps := make([]catalog.NewStep, 0, len(files))

	for i, f := range files {
		subPath := f.Path
		if f.TargetPath != nil {
			subPath = *f.TargetPath
		}

		destPath := fmt.Sprintf("%s/%s", targetMount, subPath)
		destDriveID := targetDriveID

		steps = append(steps, catalog.NewStep{
			FileID:        f.ID,
			Action:        catalog.ActionCopy,
			SourcePath:    f.AbsPath,
			SourceDriveID: &f.DriveID,
			DestPath:      &destPath,
			DestDriveID:   &destDriveID,
			PreHash:       preferredHash(f),
			StepOrder:     int64(i),
		})
	}

	p.logger.Info("planner: creating migrate plan", "files", len(files), "bytes", totalBytes, "target_drive", targetDriveID)

	return p.store.CreatePlanWithSteps(ctx, plan, steps, desc)
}

// CreateOffload builds, for each file, a copy step followed immediately by
// a delete step on the source (step_order 2n, 2n+1).
func (p *Planner) CreateOffload(ctx context.Context, files []catalog.File, offloadDriveID int64, offloadMount string) (int64, error) {
	if len(files) == 0 {
		return 0, fmt.Errorf("planner: offload plan requires a non-empty file set")
	}

	totalBytes := sumBytes(files)

	if p.opts.EnforceSpaceLimits {
		if err := space.VerifySufficientSpace(offloadMount, uint64(totalBytes)); err != nil {
			return 0, err
		}
	}

	sourceDriveID := files[0].DriveID
	desc := fmt.Sprintf("Offload %d low-priority files to drive %d", len(files), offloadDriveID)

	plan := catalog.Plan{
		Description:   &desc,
		SourceDriveID: &sourceDriveID,
		TargetDriveID: &offloadDriveID,
		TotalFiles:    int64(len(files)),
		TotalBytes:    totalBytes,
	}

	steps := make([]catalog.NewStep, 0, len(files)*2)

	for i, f := range files {
		destPath := fmt.Sprintf("%s/%s", offloadMount, f.Path)
		destDriveID := offloadDriveID
		hash := preferredHash(f)

		steps = append(steps, catalog.NewStep{
			FileID:        f.ID,
			Action:        catalog.ActionCopy,
			SourcePath:    f.AbsPath,
			SourceDriveID: &f.DriveID,
			DestPath:      &destPath,
			DestDriveID:   &destDriveID,
			PreHash:       hash,
			StepOrder:     int64(i * 2),
		})

		steps = append(steps, catalog.NewStep{
			FileID:        f.ID,
			Action:        catalog.ActionDelete,
			SourcePath:    f.AbsPath,
			SourceDriveID: &f.DriveID,
			PreHash:       hash,
			StepOrder:     int64(i*2 + 1),
		})
	}

	p.logger.Info("planner: creating offload plan", "files", len(files), "bytes", totalBytes, "offload_drive", offloadDriveID)

	return p.store.CreatePlanWithSteps(ctx, plan, steps, desc)
}

// Approve transitions a draft plan to approved. Returns InvalidStateError
// if the plan is not currently draft.
func (p *Planner) Approve(ctx context.Context, planID int64) error {
	if err := p.store.ApprovePlan(ctx, planID); err != nil {
		return err
	}

	p.logger.Info("planner: plan approved", "plan_id", planID)

	return nil
}
