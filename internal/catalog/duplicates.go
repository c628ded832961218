package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/prune-dev/prune/internal/prerr"
)

const (
	sqlDupColumns = `group_id, hash, file_count, total_waste_bytes, original_id, drives_involved,
		cross_drive, resolution`

	sqlInsertDupGroup = `INSERT INTO duplicate_groups
		(hash, file_count, total_waste_bytes, original_id, drives_involved, cross_drive)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6)`

	sqlGetDupGroup = `SELECT ` + sqlDupColumns + ` FROM duplicate_groups WHERE group_id = ?1`

	sqlClearDupMembers = `UPDATE files SET duplicate_group = NULL, is_original = 0 WHERE duplicate_group = ?1`

	sqlClearAllDupMembers = `UPDATE files SET duplicate_group = NULL, is_original = 0 WHERE duplicate_group IS NOT NULL`

	sqlDeleteDupGroup = `DELETE FROM duplicate_groups WHERE group_id = ?1`

	sqlDeleteAllDupGroups = `DELETE FROM duplicate_groups`

	sqlAssignDupMember = `UPDATE files SET duplicate_group = ?2, is_original = ?3 WHERE id = ?1`
)

func (s *Store) prepareDupStmts() error {
	return s.prepareGroup([]stmtDef{
		{&s.dupStmts.insert, sqlInsertDupGroup},
		{&s.dupStmts.get, sqlGetDupGroup},
		{&s.dupStmts.clearMembers, sqlClearDupMembers},
		{&s.dupStmts.deleteGroup, sqlDeleteDupGroup},
		{&s.dupStmts.assignMembers, sqlAssignDupMember},
	})
}

// CreateDuplicateGroup inserts a new group row and assigns the given member
// file ids to it in the same transaction (the two-phase write of §4.1:
// insert group to obtain an id, then update member rows).
func (s *Store) CreateDuplicateGroup(ctx context.Context, g DuplicateGroup, memberIDs []int64, originalID *int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin duplicate group transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	drivesJSON, err := json.Marshal(g.DrivesInvolved)
	if err != nil {
		return 0, fmt.Errorf("encode drives_involved: %w", err)
	}

	res, err := tx.StmtContext(ctx, s.dupStmts.insert).ExecContext(ctx,
		g.Hash, g.FileCount, g.TotalWasteBytes, originalID, string(drivesJSON), g.CrossDrive)
	if err != nil {
		return 0, fmt.Errorf("insert duplicate group: %w", err)
	}

	groupID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	assign := tx.StmtContext(ctx, s.dupStmts.assignMembers)

	for _, id := range memberIDs {
		isOriginal := originalID != nil && *originalID == id

		if _, err := assign.ExecContext(ctx, id, groupID, isOriginal); err != nil {
			return 0, fmt.Errorf("assign file %d to duplicate group %d: %w", id, groupID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit duplicate group: %w", err)
	}

	return groupID, nil
}

// GetDuplicateGroup looks up a duplicate group by id.
func (s *Store) GetDuplicateGroup(ctx context.Context, groupID int64) (DuplicateGroup, error) {
	row := s.dupStmts.get.QueryRowContext(ctx, groupID)

	g, err := scanDupGroup(row)
	if isNotFound(err) {
		return DuplicateGroup{}, &prerr.NotFoundError{Kind: "duplicate_group", ID: groupID}
	}

	return g, err
}

// ListDuplicateGroups returns all groups ordered by total waste bytes
// descending, matching the original's triage-priority ordering.
func (s *Store) ListDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlDupColumns+` FROM duplicate_groups ORDER BY total_waste_bytes DESC`)
	if err != nil {
		return nil, fmt.Errorf("list duplicate groups: %w", err)
	}
	defer rows.Close()

	var out []DuplicateGroup

	for rows.Next() {
		g, err := scanDupGroup(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, g)
	}

	return out, rows.Err()
}

// ListCrossDriveDuplicates returns only groups whose cross_drive flag is set.
func (s *Store) ListCrossDriveDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlDupColumns+` FROM duplicate_groups WHERE cross_drive = 1 ORDER BY total_waste_bytes DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cross-drive duplicates: %w", err)
	}
	defer rows.Close()

	var out []DuplicateGroup

	for rows.Next() {
		g, err := scanDupGroup(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, g)
	}

	return out, rows.Err()
}

// ClearAllDuplicates nulls out every file's duplicate_group/is_original and
// then deletes every group row, in that order — never reversed, since an
// orphaned group row is inert while an orphaned file reference dangles.
func (s *Store) ClearAllDuplicates(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear duplicates transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, sqlClearAllDupMembers); err != nil {
		return fmt.Errorf("clear duplicate members: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlDeleteAllDupGroups); err != nil {
		return fmt.Errorf("delete duplicate groups: %w", err)
	}

	return tx.Commit()
}

// DuplicateStatistics aggregates counts across all duplicate groups.
type DuplicateStatistics struct {
	GroupCount          int64
	TotalDuplicateFiles int64
	TotalWasteBytes     int64
	CrossDriveGroups    int64
}

// GetDuplicateStatistics summarizes the current duplicate-group set.
func (s *Store) GetDuplicateStatistics(ctx context.Context) (DuplicateStatistics, error) {
	var stats DuplicateStatistics

	row := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(file_count), 0),
		COALESCE(SUM(total_waste_bytes), 0),
		COALESCE(SUM(CASE WHEN cross_drive THEN 1 ELSE 0 END), 0)
		FROM duplicate_groups`)

	if err := row.Scan(&stats.GroupCount, &stats.TotalDuplicateFiles, &stats.TotalWasteBytes, &stats.CrossDriveGroups); err != nil {
		return DuplicateStatistics{}, fmt.Errorf("duplicate statistics: %w", err)
	}

	return stats, nil
}

func scanDupGroup(r rowScanner) (DuplicateGroup, error) {
	var (
		g          DuplicateGroup
		drivesJSON sql.NullString
	)

	err := r.Scan(&g.GroupID, &g.Hash, &g.FileCount, &g.TotalWasteBytes, &g.OriginalID, &drivesJSON,
		&g.CrossDrive, &g.Resolution)
	if err == sql.ErrNoRows {
		return DuplicateGroup{}, sql.ErrNoRows
	}

	if err != nil {
		return DuplicateGroup{}, fmt.Errorf("scan duplicate group: %w", err)
	}

	if drivesJSON.Valid && drivesJSON.String != "" {
		if err := json.Unmarshal([]byte(drivesJSON.String), &g.DrivesInvolved); err != nil {
			return DuplicateGroup{}, fmt.Errorf("decode drives_involved: %w", err)
		}
	}

	return g, nil
}
