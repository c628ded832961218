// Package dedup recomputes duplicate groups from content hashes already
// stored in the catalog, hashing any file missing one (or every file, when
// a rehash is requested).
package dedup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/hashutil"
)

// Algorithm selects which content hash duplicate detection groups on.
type Algorithm int

const (
	MD5 Algorithm = iota
	Blake3
)

// ParseAlgorithm accepts the CLI's "md5"/"blake3" spelling.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "md5":
		return MD5, nil
	case "blake3":
		return Blake3, nil
	default:
		return 0, fmt.Errorf("invalid algorithm %q, use \"md5\" or \"blake3\"", s)
	}
}

// Options configures one Refresh call.
type Options struct {
	// DriveID restricts the scan to one drive; nil scans every drive.
	DriveID   *int64
	Algorithm Algorithm
	// Rehash recomputes the hash even when one is already stored.
	Rehash bool
}

// Result summarizes one refresh run.
type Result struct {
	FilesHashed           int
	FilesSkipped          int
	GroupsCreated         int
	DuplicateFilesCreated int
}

// Refresher rebuilds duplicate groups for the files an Options selects.
type Refresher struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New creates a Refresher. A nil logger discards output.
func New(store *catalog.Store, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Refresher{store: store, logger: logger}
}

// Refresh hashes the selected files as needed, then replaces every
// duplicate-group assignment in the catalog with groups recomputed from the
// resulting hash values. Clearing is global, not scoped to opts.DriveID,
// matching a full group recomputation rather than a drive-local patch.
func (r *Refresher) Refresh(ctx context.Context, opts Options) (Result, error) {
	var result Result

	files, err := r.selectFiles(ctx, opts.DriveID)
	if err != nil {
		return Result{}, err
	}

	byHash := make(map[string][]catalog.File)

	for _, f := range files {
		if f.IsSymlink {
			result.FilesSkipped++
			continue
		}

		hash, hashed, err := r.resolveHash(ctx, f, opts)
		if err != nil {
			r.logger.Warn("dedup: skipping unhashable file", "path", f.AbsPath, "error", err)
			result.FilesSkipped++

			continue
		}

		if hashed {
			result.FilesHashed++
		}

		byHash[hash] = append(byHash[hash], f)
	}

	if err := r.store.ClearAllDuplicates(ctx); err != nil {
		return Result{}, fmt.Errorf("clear existing duplicate groups: %w", err)
	}

	for hash, group := range byHash {
		if len(group) < 2 {
			continue
		}

		if err := r.createGroup(ctx, hash, group); err != nil {
			return Result{}, err
		}

		result.GroupsCreated++
		result.DuplicateFilesCreated += len(group)
	}

	return result, nil
}

func (r *Refresher) selectFiles(ctx context.Context, driveID *int64) ([]catalog.File, error) {
	if driveID != nil {
		return r.store.ListFilesByDrive(ctx, *driveID)
	}

	drives, err := r.store.ListDrives(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drives: %w", err)
	}

	var all []catalog.File

	for _, d := range drives {
		files, err := r.store.ListFilesByDrive(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("list files for drive %s: %w", d.Label, err)
		}

		all = append(all, files...)
	}

	return all, nil
}

// resolveHash returns the hash to group f by, computing and persisting it
// when missing or when a rehash was requested. The bool return reports
// whether a hash was freshly computed.
func (r *Refresher) resolveHash(ctx context.Context, f catalog.File, opts Options) (string, bool, error) {
	existing := f.MD5Hash
	if opts.Algorithm == Blake3 {
		existing = f.Blake3Hash
	}

	if existing != nil && !opts.Rehash {
		return *existing, false, nil
	}

	var (
		computed string
		err      error
	)

	switch opts.Algorithm {
	case MD5:
		computed, err = hashutil.MD5(f.AbsPath)
	case Blake3:
		computed, err = hashutil.Blake3(f.AbsPath)
	}

	if err != nil {
		return "", false, err
	}

	if opts.Algorithm == MD5 {
		if err := r.store.SetFileHash(ctx, f.ID, &computed, nil); err != nil {
			return "", false, err
		}
	} else {
		if err := r.store.SetFileHash(ctx, f.ID, nil, &computed); err != nil {
			return "", false, err
		}
	}

	return computed, true, nil
}

// createGroup builds a DuplicateGroup for one hash bucket: the lowest file
// ID is the original, every other member contributes its size to the
// waste total, and the group is cross-drive when members span drives.
func (r *Refresher) createGroup(ctx context.Context, hash string, group []catalog.File) error {
	ids := make([]int64, 0, len(group))
	byID := make(map[int64]catalog.File, len(group))
	driveSet := make(map[int64]struct{})

	for _, f := range group {
		ids = append(ids, f.ID)
		byID[f.ID] = f
		driveSet[f.DriveID] = struct{}{}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	originalID := ids[0]

	var wasteBytes int64

	for _, id := range ids[1:] {
		wasteBytes += byID[id].SizeBytes
	}

	drives := make([]int64, 0, len(driveSet))
	for id := range driveSet {
		drives = append(drives, id)
	}

	sort.Slice(drives, func(i, j int) bool { return drives[i] < drives[j] })

	_, err := r.store.CreateDuplicateGroup(ctx, catalog.DuplicateGroup{
		Hash:            hash,
		FileCount:       int64(len(ids)),
		TotalWasteBytes: wasteBytes,
		DrivesInvolved:  drives,
		CrossDrive:      len(drives) > 1,
	}, ids, &originalID)
	if err != nil {
		return fmt.Errorf("create duplicate group for hash %s: %w", hash, err)
	}

	return nil
}
