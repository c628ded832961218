package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/planner"
)

// ApplyResult lists the plan ids created by one policy application run.
type ApplyResult struct {
	PlanIDs []int64
}

// Applier translates a validated policy's plans map into planner calls,
// one plan per named entry, applied in sorted-name order for determinism.
type Applier struct {
	store  *catalog.Store
	plans  *planner.Planner
	logger *slog.Logger
}

// New returns an Applier bound to store, reusing pl's own precondition
// checks (space limits, non-empty file sets) for every plan it builds.
func New(store *catalog.Store, pl *planner.Planner, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Applier{store: store, plans: pl, logger: logger}
}

// Apply validates p and builds one plan per entry in p.Plans, in
// lexicographic entry-name order.
func (a *Applier) Apply(ctx context.Context, p Policy) (ApplyResult, error) {
	if err := p.Validate(); err != nil {
		return ApplyResult{}, err
	}

	names := make([]string, 0, len(p.Plans))
	for name := range p.Plans {
		names = append(names, name)
	}

	sort.Strings(names)

	var result ApplyResult

	for _, name := range names {
		planID, err := a.applyOne(ctx, p, name, p.Plans[name])
		if err != nil {
			return ApplyResult{}, fmt.Errorf("policy: plan %q: %w", name, err)
		}

		result.PlanIDs = append(result.PlanIDs, planID)
	}

	a.logger.Info("policy: applied", "name", p.Name, "plans_created", len(result.PlanIDs))

	return result, nil
}

func (a *Applier) applyOne(ctx context.Context, p Policy, name string, plan Plan) (int64, error) {
	switch plan.Type {
	case "delete-trash":
		return a.applyDeleteTrash(ctx, p, plan)
	case "dedup":
		return a.applyDedup(ctx, plan)
	case "migrate":
		return a.applyMigrateOrOffload(ctx, p, plan, false)
	case "offload":
		return a.applyMigrateOrOffload(ctx, p, plan, true)
	default:
		return 0, fmt.Errorf("invalid plan type %q", plan.Type)
	}
}

func (a *Applier) applyDeleteTrash(ctx context.Context, p Policy, plan Plan) (int64, error) {
	category := plan.CategoryFilter
	if category == "" {
		category = "trash"
	}

	files, err := a.collectFilesByCategory(ctx, p, plan, category)
	if err != nil {
		return 0, err
	}

	if len(files) == 0 {
		return 0, fmt.Errorf("no files matched category filter %q", category)
	}

	return a.plans.CreateDeleteTrash(ctx, files)
}

func (a *Applier) applyDedup(ctx context.Context, plan Plan) (int64, error) {
	if plan.DuplicateGroup == nil {
		return 0, fmt.Errorf("dedup plans require duplicate_group")
	}

	files, err := a.store.ListFilesByDuplicateGroup(ctx, *plan.DuplicateGroup)
	if err != nil {
		return 0, err
	}

	if len(files) == 0 {
		return 0, fmt.Errorf("no files found in duplicate group %d", *plan.DuplicateGroup)
	}

	var original catalog.File

	if plan.OriginalFile != nil {
		original, err = a.store.GetFile(ctx, *plan.OriginalFile)
		if err != nil {
			return 0, err
		}
	} else {
		found := false

		for _, f := range files {
			if f.IsOriginal {
				original = f
				found = true

				break
			}
		}

		if !found {
			return 0, fmt.Errorf("no original marked in duplicate group %d; set original_file", *plan.DuplicateGroup)
		}
	}

	duplicates := make([]catalog.File, 0, len(files))

	for _, f := range files {
		if f.ID != original.ID {
			duplicates = append(duplicates, f)
		}
	}

	if len(duplicates) == 0 {
		return 0, fmt.Errorf("no duplicate files to delete in group %d", *plan.DuplicateGroup)
	}

	return a.plans.CreateDedup(ctx, duplicates, original)
}

func (a *Applier) applyMigrateOrOffload(ctx context.Context, p Policy, plan Plan, offload bool) (int64, error) {
	if plan.TargetDrive == "" {
		return 0, fmt.Errorf("target_drive is required")
	}

	target, err := a.store.GetDriveByLabel(ctx, plan.TargetDrive)
	if err != nil {
		return 0, err
	}

	if target.MountPath == nil {
		return 0, fmt.Errorf("target drive %q has no mount path", plan.TargetDrive)
	}

	if plan.CategoryFilter == "" {
		return 0, fmt.Errorf("category_filter is required")
	}

	files, err := a.collectFilesByCategory(ctx, p, plan, plan.CategoryFilter)
	if err != nil {
		return 0, err
	}

	if len(files) == 0 {
		return 0, fmt.Errorf("no files matched category filter %q", plan.CategoryFilter)
	}

	if offload {
		return a.plans.CreateOffload(ctx, files, target.ID, *target.MountPath)
	}

	return a.plans.CreateMigrate(ctx, files, target.ID, *target.MountPath)
}

// collectFilesByCategory resolves a plan's source files: plan.SourceDrive
// pins to one drive; otherwise the policy's scope include/exclude lists
// narrow the drive set, defaulting to every registered drive.
func (a *Applier) collectFilesByCategory(ctx context.Context, p Policy, plan Plan, category string) ([]catalog.File, error) {
	if plan.SourceDrive != "" {
		drive, err := a.store.GetDriveByLabel(ctx, plan.SourceDrive)
		if err != nil {
			return nil, err
		}

		return filterByDrive(ctx, a.store, category, drive.ID)
	}

	all, err := a.store.ListFilesByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	if p.Scope == nil {
		return all, nil
	}

	return applyScope(ctx, a.store, all, *p.Scope)
}

func filterByDrive(ctx context.Context, store *catalog.Store, category string, driveID int64) ([]catalog.File, error) {
	all, err := store.ListFilesByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.File, 0, len(all))

	for _, f := range all {
		if f.DriveID == driveID {
			out = append(out, f)
		}
	}

	return out, nil
}

func applyScope(ctx context.Context, store *catalog.Store, files []catalog.File, scope Scope) ([]catalog.File, error) {
	if len(scope.IncludeDrives) == 0 && len(scope.ExcludeDrives) == 0 {
		return files, nil
	}

	driveLabels, err := labelsByDriveID(ctx, store)
	if err != nil {
		return nil, err
	}

	include := toSet(scope.IncludeDrives)
	exclude := toSet(scope.ExcludeDrives)

	out := make([]catalog.File, 0, len(files))

	for _, f := range files {
		label := driveLabels[f.DriveID]

		if exclude[label] {
			continue
		}

		if len(include) > 0 && !include[label] {
			continue
		}

		out = append(out, f)
	}

	return out, nil
}

func labelsByDriveID(ctx context.Context, store *catalog.Store) (map[int64]string, error) {
	drives, err := store.ListDrives(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]string, len(drives))
	for _, d := range drives {
		out[d.ID] = d.Label
	}

	return out, nil
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		out[item] = true
	}

	return out
}
