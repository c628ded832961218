package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prune-dev/prune/internal/prerr"
)

const (
	sqlDriveColumns = `id, label, device_id, device_path, uuid, mount_path, fs_type,
		total_bytes, role, is_online, is_readonly, backend, rclone_remote, scanned_at, added_at`

	sqlGetDrive = `SELECT ` + sqlDriveColumns + ` FROM drives WHERE id = ?1`

	sqlGetDriveByLabel = `SELECT ` + sqlDriveColumns + ` FROM drives WHERE label = ?1`

	sqlInsertDrive = `INSERT INTO drives
		(label, device_id, device_path, uuid, mount_path, fs_type, total_bytes, role, is_online, is_readonly, backend, rclone_remote)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12)`

	sqlSetDriveOnline = `UPDATE drives SET is_online = ?2 WHERE id = ?1`

	sqlDeleteDrive = `DELETE FROM drives WHERE id = ?1`
)

func (s *Store) prepareDriveStmts() error {
	return s.prepareGroup([]stmtDef{
		{&s.driveStmts.get, sqlGetDrive},
		{&s.driveStmts.getByLabel, sqlGetDriveByLabel},
		{&s.driveStmts.insert, sqlInsertDrive},
		{&s.driveStmts.setOnline, sqlSetDriveOnline},
		{&s.driveStmts.delete, sqlDeleteDrive},
	})
}

// RegisterDrive inserts a new drive row and returns its assigned id.
func (s *Store) RegisterDrive(ctx context.Context, d Drive) (int64, error) {
	res, err := s.driveStmts.insert.ExecContext(ctx,
		d.Label, d.DeviceID, d.DevicePath, d.UUID, d.MountPath, d.FSType, d.TotalBytes,
		d.Role, d.IsOnline, d.IsReadonly, d.Backend, d.RcloneRemote)
	if err != nil {
		return 0, fmt.Errorf("register drive %q: %w", d.Label, err)
	}

	return res.LastInsertId()
}

// GetDrive looks up a drive by id.
func (s *Store) GetDrive(ctx context.Context, id int64) (Drive, error) {
	d, err := scanDrive(s.driveStmts.get.QueryRowContext(ctx, id))
	if isNotFound(err) {
		return Drive{}, &prerr.NotFoundError{Kind: "drive", ID: id}
	}

	return d, err
}

// GetDriveByLabel looks up a drive by its unique label.
func (s *Store) GetDriveByLabel(ctx context.Context, label string) (Drive, error) {
	d, err := scanDrive(s.driveStmts.getByLabel.QueryRowContext(ctx, label))
	if isNotFound(err) {
		return Drive{}, &prerr.NotFoundError{Kind: "drive", ID: label}
	}

	return d, err
}

// SetDriveOnline flips a drive's online flag.
func (s *Store) SetDriveOnline(ctx context.Context, id int64, online bool) error {
	_, err := s.driveStmts.setOnline.ExecContext(ctx, id, online)
	if err != nil {
		return fmt.Errorf("set drive %d online=%v: %w", id, online, err)
	}

	return nil
}

// RemoveDrive deletes a drive row. File rows referencing it are left in
// place per the lifetime policy in §3 (orphaned, not cascaded).
func (s *Store) RemoveDrive(ctx context.Context, id int64) error {
	_, err := s.driveStmts.delete.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("remove drive %d: %w", id, err)
	}

	return nil
}

// ListDrives returns all registered drives ordered by label.
func (s *Store) ListDrives(ctx context.Context) ([]Drive, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlDriveColumns+` FROM drives ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("list drives: %w", err)
	}
	defer rows.Close()

	var out []Drive

	for rows.Next() {
		d, err := scanDrive(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, d)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrive(r rowScanner) (Drive, error) {
	var d Drive

	err := r.Scan(&d.ID, &d.Label, &d.DeviceID, &d.DevicePath, &d.UUID, &d.MountPath, &d.FSType,
		&d.TotalBytes, &d.Role, &d.IsOnline, &d.IsReadonly, &d.Backend, &d.RcloneRemote,
		&d.ScannedAt, &d.AddedAt)
	if err == sql.ErrNoRows {
		return Drive{}, sql.ErrNoRows
	}

	if err != nil {
		return Drive{}, fmt.Errorf("scan drive: %w", err)
	}

	return d, nil
}

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}
