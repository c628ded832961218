// Package scanner walks a drive's mount path and indexes every regular file
// it finds into the catalog: size, inode identity, timestamps, symlink
// status, and optionally MIME type and a content hash. It never sets
// classification, duplicate, or migration-lifecycle fields — those belong
// to classify, dedup, and the execution engine respectively.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/hashutil"
)

// Store is the subset of *catalog.Store the scanner depends on.
type Store interface {
	UpsertFile(ctx context.Context, f catalog.File) (int64, error)
}

// HashAlgorithm selects which content hash, if any, the scanner computes
// while walking.
type HashAlgorithm int

const (
	HashNone HashAlgorithm = iota
	HashMD5
	HashBlake3
)

// Options configures one Scan call.
type Options struct {
	// Workers bounds the number of files processed concurrently. Zero means 4.
	Workers int
	// Hash selects the content hash computed per regular file. HashNone
	// (the default) skips hashing entirely, matching a plain index-only scan.
	Hash HashAlgorithm
	// DetectMimeType enables MIME sniffing via the file's header bytes.
	DetectMimeType bool
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 4
	}

	return o.Workers
}

// Result summarizes one completed scan.
type Result struct {
	FilesIndexed    int
	DirectoriesSeen int
	Skipped         int
	BytesIndexed    int64
	Errors          []error
}

// Scanner indexes one drive's mount path into a Store.
type Scanner struct {
	store   Store
	driveID int64
	logger  *slog.Logger
	opts    Options
}

// New creates a Scanner for the given drive. A nil logger discards output.
func New(driveID int64, store Store, opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scanner{store: store, driveID: driveID, logger: logger, opts: opts}
}

// fileJob is one regular file queued for metadata extraction.
type fileJob struct {
	absPath string
	relPath string
}

// Scan walks root recursively, upserting one catalog row per regular file.
// Directories and non-regular files (sockets, devices, FIFOs) are counted
// but never cataloged. Symlinks are cataloged with IsSymlink set and are
// not followed.
func (s *Scanner) Scan(ctx context.Context, root string) (Result, error) {
	s.logger.Info("scanner: starting scan", "drive_id", s.driveID, "root", root, "workers", s.opts.workers())

	jobs := make(chan fileJob, s.opts.workers()*2)
	records := make(chan catalog.File, s.opts.workers()*2)

	var result Result

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	// Writer goroutine: the only goroutine that touches the catalog, per the
	// single-writer invariant the rest of the engine relies on.
	writerDone := make(chan error, 1)

	go func() {
		writerDone <- s.writeLoop(context.Background(), records, &mu, &result)
	}()

	g.SetLimit(s.opts.workers())

	go s.walkLoop(gctx, root, &mu, &result, jobs)

	for job := range jobs {
		current := job
		g.Go(func() error {
			rec, err := s.extract(gctx, current)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, err)
				result.Skipped++
				mu.Unlock()

				s.logger.Warn("scanner: skipping unreadable file", "path", current.absPath, "error", err)

				return nil
			}

			select {
			case records <- rec:
			case <-gctx.Done():
				return gctx.Err()
			}

			return nil
		})
	}

	walkErr := g.Wait()

	close(records)

	writeErr := <-writerDone

	if walkErr != nil {
		return result, walkErr
	}

	if writeErr != nil {
		return result, writeErr
	}

	s.logger.Info("scanner: scan complete",
		"drive_id", s.driveID,
		"files_indexed", result.FilesIndexed,
		"directories_seen", result.DirectoriesSeen,
		"skipped", result.Skipped,
		"bytes_indexed", result.BytesIndexed,
	)

	return result, nil
}

// walkLoop performs the synchronous filesystem walk and feeds regular-file
// jobs into jobs, closing it when the walk completes. Directories and
// non-regular entries update result directly and are never queued. Intended
// to run in its own goroutine.
func (s *Scanner) walkLoop(ctx context.Context, root string, mu *sync.Mutex, result *Result, jobs chan fileJob) {
	defer close(jobs)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Errorf("walk %s: %w", path, err))
			mu.Unlock()

			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			mu.Lock()
			result.DirectoriesSeen++
			mu.Unlock()

			return nil
		}

		info, err := d.Info()
		if err != nil {
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Errorf("stat %s: %w", path, err))
			result.Skipped++
			mu.Unlock()

			return nil
		}

		isSymlink := info.Mode()&os.ModeSymlink != 0
		if !info.Mode().IsRegular() && !isSymlink {
			mu.Lock()
			result.Skipped++
			mu.Unlock()

			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		select {
		case jobs <- fileJob{absPath: path, relPath: rel}:
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})
	if err != nil {
		mu.Lock()
		result.Errors = append(result.Errors, err)
		mu.Unlock()
	}
}

// extract builds a catalog.File from one filesystem entry, optionally
// hashing and MIME-sniffing its contents. Symlinks are recorded with their
// target but are never hashed or sniffed.
func (s *Scanner) extract(ctx context.Context, job fileJob) (catalog.File, error) {
	lstat, err := os.Lstat(job.absPath)
	if err != nil {
		return catalog.File{}, fmt.Errorf("lstat %s: %w", job.absPath, err)
	}

	rec := catalog.File{
		DriveID:  s.driveID,
		Path:     job.relPath,
		AbsPath:  job.absPath,
		Filename: filepath.Base(job.absPath),
		Priority: catalog.PriorityNormal,
		Status:   catalog.FileStatusIndexed,
	}

	if ext := filepath.Ext(job.absPath); ext != "" {
		rec.Extension = &ext
	}

	if lstat.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(job.absPath)
		if err != nil {
			return catalog.File{}, fmt.Errorf("readlink %s: %w", job.absPath, err)
		}

		rec.IsSymlink = true
		rec.SymlinkTarget = &target
		rec.SizeBytes = lstat.Size()

		applyPlatformStat(&rec, lstat)

		return rec, nil
	}

	info, err := os.Stat(job.absPath)
	if err != nil {
		return catalog.File{}, fmt.Errorf("stat %s: %w", job.absPath, err)
	}

	rec.SizeBytes = info.Size()

	modTime := info.ModTime().UTC().Format(time.RFC3339)
	rec.ModifiedAt = &modTime

	applyPlatformStat(&rec, info)

	if s.opts.DetectMimeType {
		if mtype, err := mimetype.DetectFile(job.absPath); err == nil {
			mimeStr := mtype.String()
			rec.MimeType = &mimeStr
		}
	}

	switch s.opts.Hash {
	case HashMD5:
		sum, err := hashutil.MD5(job.absPath)
		if err != nil {
			return catalog.File{}, fmt.Errorf("md5 %s: %w", job.absPath, err)
		}

		rec.MD5Hash = &sum
	case HashBlake3:
		sum, err := hashutil.Blake3(job.absPath)
		if err != nil {
			return catalog.File{}, fmt.Errorf("blake3 %s: %w", job.absPath, err)
		}

		rec.Blake3Hash = &sum
	case HashNone:
	}

	if ctx.Err() != nil {
		return catalog.File{}, ctx.Err()
	}

	return rec, nil
}

// writeLoop is the sole goroutine permitted to call store.UpsertFile,
// preserving single-writer ownership of the catalog during a scan.
func (s *Scanner) writeLoop(ctx context.Context, records <-chan catalog.File, mu *sync.Mutex, result *Result) error {
	for rec := range records {
		if _, err := s.store.UpsertFile(ctx, rec); err != nil {
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Errorf("upsert %s: %w", rec.Path, err))
			result.Skipped++
			mu.Unlock()

			continue
		}

		mu.Lock()
		result.FilesIndexed++
		result.BytesIndexed += rec.SizeBytes
		mu.Unlock()
	}

	return nil
}
