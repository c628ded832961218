package classify

import (
	"context"
	"log/slog"

	"github.com/prune-dev/prune/internal/catalog"
)

// Result tallies one classification run over a set of files.
type Result struct {
	FilesScanned    int
	FilesClassified int
	FilesUnmatched  int
}

// Applier runs an Engine over catalog files and persists the winning
// match through SetFileClassification.
type Applier struct {
	store  *catalog.Store
	engine *Engine
	logger *slog.Logger
}

// NewApplier returns an Applier bound to store using rules. Rules are
// validated and compiled once, up front.
func NewApplier(store *catalog.Store, rules Rules, logger *slog.Logger) (*Applier, error) {
	engine, err := NewEngine(rules)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Applier{store: store, engine: engine, logger: logger}, nil
}

// ClassifyStatus classifies every file currently in status, writing back
// each match it finds. Files with no matching rule are left untouched.
func (a *Applier) ClassifyStatus(ctx context.Context, status string) (Result, error) {
	files, err := a.store.ListFilesByStatus(ctx, status)
	if err != nil {
		return Result{}, err
	}

	return a.ClassifyFiles(ctx, files)
}

// ClassifyFiles classifies the given files, writing back each match it
// finds.
func (a *Applier) ClassifyFiles(ctx context.Context, files []catalog.File) (Result, error) {
	result := Result{FilesScanned: len(files)}

	for _, f := range files {
		match, err := a.engine.Classify(f)
		if err != nil {
			return Result{}, err
		}

		if match == nil {
			result.FilesUnmatched++
			continue
		}

		var subcategory *string
		if match.Subcategory != "" {
			subcategory = &match.Subcategory
		}

		category := match.Category

		if err := a.store.SetFileClassification(ctx, f.ID, &category, subcategory, match.Priority); err != nil {
			return Result{}, err
		}

		result.FilesClassified++
	}

	a.logger.Info("classify: run complete",
		"files_scanned", result.FilesScanned,
		"files_classified", result.FilesClassified,
		"files_unmatched", result.FilesUnmatched)

	return result, nil
}
