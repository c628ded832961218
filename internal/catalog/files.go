package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prune-dev/prune/internal/prerr"
)

const (
	sqlFileColumns = `id, drive_id, path, abs_path, filename, extension, size_bytes, md5_hash,
		blake3_hash, created_at, modified_at, inode, device_num, nlinks, mime_type, is_symlink,
		symlink_target, category, subcategory, target_path, target_drive_id, priority,
		duplicate_group, is_original, rmlint_type, status, migrated_to, migrated_to_drive,
		migrated_at, verified_hash, error, indexed_at`

	sqlGetFile = `SELECT ` + sqlFileColumns + ` FROM files WHERE id = ?1`

	sqlGetFileByPath = `SELECT ` + sqlFileColumns + ` FROM files WHERE drive_id = ?1 AND path = ?2`

	// Insert-or-replace on (drive_id, path) makes rescans idempotent: an
	// unchanged file yields the same row values; a changed file overwrites
	// physical/content columns and indexed_at, while classification,
	// duplicate and lifecycle columns keep their stored values.
	sqlUpsertFile = `INSERT INTO files
		(drive_id, path, abs_path, filename, extension, size_bytes, md5_hash, blake3_hash,
		 created_at, modified_at, inode, device_num, nlinks, mime_type, is_symlink, symlink_target,
		 indexed_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15, ?16, datetime('now'))
		ON CONFLICT(drive_id, path) DO UPDATE SET
			abs_path = excluded.abs_path,
			filename = excluded.filename,
			extension = excluded.extension,
			size_bytes = excluded.size_bytes,
			md5_hash = excluded.md5_hash,
			blake3_hash = excluded.blake3_hash,
			created_at = excluded.created_at,
			modified_at = excluded.modified_at,
			inode = excluded.inode,
			device_num = excluded.device_num,
			nlinks = excluded.nlinks,
			mime_type = excluded.mime_type,
			is_symlink = excluded.is_symlink,
			symlink_target = excluded.symlink_target,
			indexed_at = datetime('now')`

	sqlSetFileStatus = `UPDATE files SET status = ?2, error = ?3 WHERE id = ?1`

	sqlSetFileClassification = `UPDATE files SET category = ?2, subcategory = ?3, priority = ?4,
		status = ?5 WHERE id = ?1`

	sqlSetFileDuplicate = `UPDATE files SET duplicate_group = ?2, is_original = ?3, rmlint_type = ?4
		WHERE id = ?1`

	sqlSetFileHash = `UPDATE files SET md5_hash = COALESCE(?2, md5_hash), blake3_hash = COALESCE(?3, blake3_hash)
		WHERE id = ?1`
)

func (s *Store) prepareFileStmts() error {
	return s.prepareGroup([]stmtDef{
		{&s.fileStmts.get, sqlGetFile},
		{&s.fileStmts.getByPath, sqlGetFileByPath},
		{&s.fileStmts.upsert, sqlUpsertFile},
		{&s.fileStmts.setStatus, sqlSetFileStatus},
		{&s.fileStmts.setClassification, sqlSetFileClassification},
		{&s.fileStmts.setDuplicate, sqlSetFileDuplicate},
		{&s.fileStmts.setHash, sqlSetFileHash},
	})
}

// UpsertFile inserts or replaces a file row keyed by (drive, relative path).
func (s *Store) UpsertFile(ctx context.Context, f File) (int64, error) {
	_, err := s.fileStmts.upsert.ExecContext(ctx,
		f.DriveID, f.Path, f.AbsPath, f.Filename, f.Extension, f.SizeBytes, f.MD5Hash, f.Blake3Hash,
		f.CreatedAt, f.ModifiedAt, f.Inode, f.DeviceNum, f.Nlinks, f.MimeType, f.IsSymlink, f.SymlinkTarget)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", f.Path, err)
	}

	got, err := s.GetFileByPath(ctx, f.DriveID, f.Path)
	if err != nil {
		return 0, err
	}

	return got.ID, nil
}

// GetFile looks up a file by id.
func (s *Store) GetFile(ctx context.Context, id int64) (File, error) {
	f, err := scanFile(s.fileStmts.get.QueryRowContext(ctx, id))
	if isNotFound(err) {
		return File{}, &prerr.NotFoundError{Kind: "file", ID: id}
	}

	return f, err
}

// GetFileByPath looks up a file by its (drive, relative path) key.
func (s *Store) GetFileByPath(ctx context.Context, driveID int64, path string) (File, error) {
	f, err := scanFile(s.fileStmts.getByPath.QueryRowContext(ctx, driveID, path))
	if isNotFound(err) {
		return File{}, &prerr.NotFoundError{Kind: "file", ID: path}
	}

	return f, err
}

// GetFileByAbsPath looks up a file by its absolute path across all drives,
// used by the NDJSON importer to match external-tool entries.
func (s *Store) GetFileByAbsPath(ctx context.Context, absPath string) (File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlFileColumns+` FROM files WHERE abs_path = ?1`, absPath)

	f, err := scanFile(row)
	if isNotFound(err) {
		return File{}, &prerr.NotFoundError{Kind: "file", ID: absPath}
	}

	return f, err
}

// SetFileStatus updates a file's lifecycle status and optional error text.
func (s *Store) SetFileStatus(ctx context.Context, id int64, status string, errMsg *string) error {
	_, err := s.fileStmts.setStatus.ExecContext(ctx, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("set file %d status: %w", id, err)
	}

	return nil
}

// SetFileClassification assigns category/subcategory/priority and advances
// status to "classified" in one statement.
func (s *Store) SetFileClassification(ctx context.Context, id int64, category, subcategory *string, priority string) error {
	_, err := s.fileStmts.setClassification.ExecContext(ctx, id, category, subcategory, priority, FileStatusClassified)
	if err != nil {
		return fmt.Errorf("classify file %d: %w", id, err)
	}

	return nil
}

// SetFileDuplicate assigns (or clears, when groupID is nil) a file's
// duplicate-group membership.
func (s *Store) SetFileDuplicate(ctx context.Context, id int64, groupID *int64, isOriginal bool, rmlintType *string) error {
	_, err := s.fileStmts.setDuplicate.ExecContext(ctx, id, groupID, isOriginal, rmlintType)
	if err != nil {
		return fmt.Errorf("set file %d duplicate group: %w", id, err)
	}

	return nil
}

// SetFileHash overwrites md5/blake3 hash columns that are non-nil in the
// call; a nil argument leaves the existing column untouched, so callers
// updating a single algorithm don't need to read the row first.
func (s *Store) SetFileHash(ctx context.Context, id int64, md5Hash, blake3Hash *string) error {
	_, err := s.fileStmts.setHash.ExecContext(ctx, id, md5Hash, blake3Hash)
	if err != nil {
		return fmt.Errorf("set file %d hash: %w", id, err)
	}

	return nil
}

// ListFilesByDrive returns all files on a drive ordered by path.
func (s *Store) ListFilesByDrive(ctx context.Context, driveID int64) ([]File, error) {
	return s.queryFiles(ctx, `SELECT `+sqlFileColumns+` FROM files WHERE drive_id = ?1 ORDER BY path`, driveID)
}

// ListFilesByStatus returns all files with the given status.
func (s *Store) ListFilesByStatus(ctx context.Context, status string) ([]File, error) {
	return s.queryFiles(ctx, `SELECT `+sqlFileColumns+` FROM files WHERE status = ?1 ORDER BY id`, status)
}

// ListFilesByCategory returns all files in a category.
func (s *Store) ListFilesByCategory(ctx context.Context, category string) ([]File, error) {
	return s.queryFiles(ctx, `SELECT `+sqlFileColumns+` FROM files WHERE category = ?1 ORDER BY id`, category)
}

// ListFilesByDuplicateGroup returns all member files of a duplicate group.
func (s *Store) ListFilesByDuplicateGroup(ctx context.Context, groupID int64) ([]File, error) {
	return s.queryFiles(ctx, `SELECT `+sqlFileColumns+` FROM files WHERE duplicate_group = ?1 ORDER BY id`, groupID)
}

// ListFilesByIDs returns the files named by ids, in the order given.
func (s *Store) ListFilesByIDs(ctx context.Context, ids []int64) ([]File, error) {
	out := make([]File, 0, len(ids))

	for _, id := range ids {
		f, err := s.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}

		out = append(out, f)
	}

	return out, nil
}

// CategoryStat aggregates file count and total size for one classification
// category (including the "" pseudo-category for unclassified files).
type CategoryStat struct {
	Category  string
	FileCount int64
	TotalSize int64
}

// CategoryStatistics groups all files by category, ordered by total size
// descending.
func (s *Store) CategoryStatistics(ctx context.Context) ([]CategoryStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(category, ''), COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM files GROUP BY category ORDER BY 3 DESC`)
	if err != nil {
		return nil, fmt.Errorf("category statistics: %w", err)
	}
	defer rows.Close()

	var out []CategoryStat

	for rows.Next() {
		var c CategoryStat
		if err := rows.Scan(&c.Category, &c.FileCount, &c.TotalSize); err != nil {
			return nil, fmt.Errorf("scan category statistic: %w", err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// DriveStat aggregates file count, total size, and duplicate waste for one
// registered drive.
type DriveStat struct {
	DriveID             int64
	Label               string
	Role                string
	FileCount           int64
	TotalSize           int64
	DuplicateFileCount  int64
	DuplicateWasteBytes int64
}

// DriveStatistics groups all files by drive, ordered by total size
// descending. Drives with no indexed files still appear, with zero counts.
// Duplicate counts exclude each group's original member, matching the
// "wasted" framing of internal/catalog.GetDuplicateStatistics.
func (s *Store) DriveStatistics(ctx context.Context) ([]DriveStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		d.id, d.label, d.role,
		COUNT(f.id),
		COALESCE(SUM(f.size_bytes), 0),
		COALESCE(SUM(CASE WHEN f.duplicate_group IS NOT NULL AND NOT f.is_original THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN f.duplicate_group IS NOT NULL AND NOT f.is_original THEN f.size_bytes ELSE 0 END), 0)
		FROM drives d
		LEFT JOIN files f ON f.drive_id = d.id
		GROUP BY d.id, d.label, d.role
		ORDER BY 5 DESC`)
	if err != nil {
		return nil, fmt.Errorf("drive statistics: %w", err)
	}
	defer rows.Close()

	var out []DriveStat

	for rows.Next() {
		var d DriveStat
		if err := rows.Scan(&d.DriveID, &d.Label, &d.Role, &d.FileCount, &d.TotalSize,
			&d.DuplicateFileCount, &d.DuplicateWasteBytes); err != nil {
			return nil, fmt.Errorf("scan drive statistic: %w", err)
		}

		out = append(out, d)
	}

	return out, rows.Err()
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var out []File

	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, f)
	}

	return out, rows.Err()
}

func scanFile(r rowScanner) (File, error) {
	var f File

	err := r.Scan(&f.ID, &f.DriveID, &f.Path, &f.AbsPath, &f.Filename, &f.Extension, &f.SizeBytes,
		&f.MD5Hash, &f.Blake3Hash, &f.CreatedAt, &f.ModifiedAt, &f.Inode, &f.DeviceNum, &f.Nlinks,
		&f.MimeType, &f.IsSymlink, &f.SymlinkTarget, &f.Category, &f.Subcategory, &f.TargetPath,
		&f.TargetDriveID, &f.Priority, &f.DuplicateGroup, &f.IsOriginal, &f.RmlintType, &f.Status,
		&f.MigratedTo, &f.MigratedToDrive, &f.MigratedAt, &f.VerifiedHash, &f.Error, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return File{}, sql.ErrNoRows
	}

	if err != nil {
		return File{}, fmt.Errorf("scan file: %w", err)
	}

	return f, nil
}
