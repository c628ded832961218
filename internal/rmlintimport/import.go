package rmlintimport

import (
	"context"
	"log/slog"

	"github.com/prune-dev/prune/internal/catalog"
)

// Options configures one import run.
type Options struct {
	// ApplyTrash marks matched emptyfile/emptydir/badlink entries' priority
	// as trash, making them eligible for a later delete-trash plan.
	ApplyTrash bool
	// ClearExistingDuplicates nulls out every file's duplicate assignment
	// and deletes all existing group rows before writing the new ones,
	// regardless of whether the report was produced with a fresh rehash.
	ClearExistingDuplicates bool
}

// DefaultOptions matches the conservative default of the source importer:
// trash application on, existing duplicates left alone.
func DefaultOptions() Options {
	return Options{ApplyTrash: true, ClearExistingDuplicates: false}
}

// Result tallies what one import run actually did.
type Result struct {
	LintsTotal             int
	MatchedFiles           int
	DuplicateGroupsCreated int
	DuplicateFilesAssigned int
	EmptyFilesMarked       int
	EmptyDirsMarked        int
	BadLinksMarked         int
	SkippedLints           int
}

// Importer matches parsed lints against the catalog and writes duplicate
// groups and trash priorities.
type Importer struct {
	store  *catalog.Store
	opts   Options
	logger *slog.Logger
}

// New returns an Importer bound to store for the duration of its calls.
func New(store *catalog.Store, opts Options, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Importer{store: store, opts: opts, logger: logger}
}

// Import parses path and writes its duplicate groups (and, if configured,
// trash priorities) into the catalog.
func (im *Importer) Import(ctx context.Context, path string) (Result, error) {
	parser, err := ParseOutput(path)
	if err != nil {
		return Result{}, err
	}

	return im.ImportParsed(ctx, parser)
}

// ImportParsed writes an already-parsed report's duplicate groups (and,
// if configured, trash priorities) into the catalog.
func (im *Importer) ImportParsed(ctx context.Context, parser *Parser) (Result, error) {
	if im.opts.ClearExistingDuplicates {
		if err := im.store.ClearAllDuplicates(ctx); err != nil {
			return Result{}, err
		}
	}

	result := Result{LintsTotal: len(parser.Lints())}

	lintToFile := make(map[string]int64)

	for _, lint := range parser.Lints() {
		f, err := im.store.GetFileByAbsPath(ctx, lint.Path)
		if err != nil {
			result.SkippedLints++
			continue
		}

		lintToFile[lint.Path] = f.ID
		result.MatchedFiles++
	}

	for _, group := range parser.ExtractGroups() {
		if err := im.importGroup(ctx, group, lintToFile, &result); err != nil {
			return Result{}, err
		}
	}

	if im.opts.ApplyTrash {
		if err := im.applyTrash(ctx, parser, lintToFile, &result); err != nil {
			return Result{}, err
		}
	}

	im.logger.Info("rmlintimport: import complete",
		"lints_total", result.LintsTotal,
		"matched_files", result.MatchedFiles,
		"duplicate_groups_created", result.DuplicateGroupsCreated,
		"skipped_lints", result.SkippedLints)

	return result, nil
}

func (im *Importer) importGroup(ctx context.Context, group Group, lintToFile map[string]int64, result *Result) error {
	var (
		fileIDs    []int64
		driveSet   = make(map[int64]struct{})
		originalID *int64
		totalWaste int64
	)

	for i, lint := range group.Files {
		fileID, ok := lintToFile[lint.Path]
		if !ok {
			continue
		}

		fileIDs = append(fileIDs, fileID)

		if i == group.OriginalIdx {
			id := fileID
			originalID = &id
		}

		f, err := im.store.GetFile(ctx, fileID)
		if err != nil {
			return err
		}

		driveSet[f.DriveID] = struct{}{}
	}

	if len(fileIDs) < 2 {
		return nil
	}

	for _, fileID := range fileIDs {
		if originalID != nil && fileID == *originalID {
			continue
		}

		f, err := im.store.GetFile(ctx, fileID)
		if err != nil {
			return err
		}

		totalWaste += f.SizeBytes
	}

	drives := make([]int64, 0, len(driveSet))
	for d := range driveSet {
		drives = append(drives, d)
	}

	g := catalog.DuplicateGroup{
		Hash:            group.Hash,
		FileCount:       int64(len(fileIDs)),
		TotalWasteBytes: totalWaste,
		DrivesInvolved:  drives,
		CrossDrive:      len(drives) > 1,
	}

	if _, err := im.store.CreateDuplicateGroup(ctx, g, fileIDs, originalID); err != nil {
		return err
	}

	result.DuplicateGroupsCreated++
	result.DuplicateFilesAssigned += len(fileIDs)

	return nil
}

func (im *Importer) applyTrash(ctx context.Context, parser *Parser, lintToFile map[string]int64, result *Result) error {
	for _, lint := range parser.Lints() {
		fileID, ok := lintToFile[lint.Path]
		if !ok {
			continue
		}

		switch lint.Type {
		case LintEmptyFile:
			if err := im.markTrash(ctx, fileID); err != nil {
				return err
			}

			result.EmptyFilesMarked++
		case LintEmptyDir:
			if err := im.markTrash(ctx, fileID); err != nil {
				return err
			}

			result.EmptyDirsMarked++
		case LintBadLink:
			if err := im.markTrash(ctx, fileID); err != nil {
				return err
			}

			result.BadLinksMarked++
		}
	}

	return nil
}

func (im *Importer) markTrash(ctx context.Context, fileID int64) error {
	f, err := im.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	return im.store.SetFileClassification(ctx, fileID, f.Category, f.Subcategory, catalog.PriorityTrash)
}
