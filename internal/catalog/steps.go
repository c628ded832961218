package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prune-dev/prune/internal/prerr"
)

const (
	sqlStepColumns = `id, plan_id, file_id, action, source_path, source_drive_id, dest_path,
		dest_drive_id, status, pre_hash, post_hash, executed_at, error, step_order`

	sqlInsertStep = `INSERT INTO migration_steps
		(plan_id, file_id, action, source_path, source_drive_id, dest_path, dest_drive_id, status,
		 pre_hash, step_order)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)`

	sqlGetStep = `SELECT ` + sqlStepColumns + ` FROM migration_steps WHERE id = ?1`

	sqlSetStepStatus = `UPDATE migration_steps
		SET status = ?2, post_hash = COALESCE(?3, post_hash), executed_at = ?4, error = ?5
		WHERE id = ?1`

	sqlSetStepHashes = `UPDATE migration_steps SET pre_hash = ?2, post_hash = ?3 WHERE id = ?1`

	sqlListPendingOrdered = `SELECT ` + sqlStepColumns + ` FROM migration_steps
		WHERE plan_id = ?1 AND status = 'pending' ORDER BY step_order ASC`

	sqlListCompletedOrdered = `SELECT ` + sqlStepColumns + ` FROM migration_steps
		WHERE plan_id = ?1 AND status = 'completed' ORDER BY step_order ASC`
)

func (s *Store) prepareStepStmts() error {
	return s.prepareGroup([]stmtDef{
		{&s.stepStmts.insert, sqlInsertStep},
		{&s.stepStmts.get, sqlGetStep},
		{&s.stepStmts.setStatus, sqlSetStepStatus},
		{&s.stepStmts.setHashes, sqlSetStepHashes},
		{&s.stepStmts.listPendingOrdered, sqlListPendingOrdered},
		{&s.stepStmts.listCompletedOrdered, sqlListCompletedOrdered},
	})
}

// GetStep looks up a step by id.
func (s *Store) GetStep(ctx context.Context, id int64) (Step, error) {
	st, err := scanStep(s.stepStmts.get.QueryRowContext(ctx, id))
	if isNotFound(err) {
		return Step{}, &prerr.NotFoundError{Kind: "step", ID: id}
	}

	return st, err
}

// SetStepStatus transitions a step and records an optional post-hash,
// executed-at timestamp, and error message.
func (s *Store) SetStepStatus(ctx context.Context, id int64, status string, postHash, executedAt, errMsg *string) error {
	_, err := s.stepStmts.setStatus.ExecContext(ctx, id, status, postHash, executedAt, errMsg)
	if err != nil {
		return fmt.Errorf("set step %d status: %w", id, err)
	}

	return nil
}

// SetStepHashes records the pre_hash and/or post_hash computed during
// execution. Pass nil to leave a field unchanged is not supported here —
// callers always have both values by the time they call this.
func (s *Store) SetStepHashes(ctx context.Context, id int64, preHash, postHash *string) error {
	_, err := s.stepStmts.setHashes.ExecContext(ctx, id, preHash, postHash)
	if err != nil {
		return fmt.Errorf("set step %d hashes: %w", id, err)
	}

	return nil
}

// ListPendingStepsOrdered returns a plan's pending steps in ascending
// step_order — the order the engine executes them in.
func (s *Store) ListPendingStepsOrdered(ctx context.Context, planID int64) ([]Step, error) {
	return s.queryStepsStmt(ctx, s.stepStmts.listPendingOrdered, planID)
}

// ListCompletedStepsOrdered returns a plan's completed steps in ascending
// step_order; the rollback engine reverses this slice itself.
func (s *Store) ListCompletedStepsOrdered(ctx context.Context, planID int64) ([]Step, error) {
	return s.queryStepsStmt(ctx, s.stepStmts.listCompletedOrdered, planID)
}

// ListStepsForPlan returns every step belonging to a plan, in step_order.
func (s *Store) ListStepsForPlan(ctx context.Context, planID int64) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlStepColumns+` FROM migration_steps WHERE plan_id = ?1 ORDER BY step_order ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("list steps for plan %d: %w", planID, err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

func (s *Store) queryStepsStmt(ctx context.Context, stmt *sql.Stmt, planID int64) ([]Step, error) {
	rows, err := stmt.QueryContext(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("query steps for plan %d: %w", planID, err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

func scanSteps(rows *sql.Rows) ([]Step, error) {
	var out []Step

	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, st)
	}

	return out, rows.Err()
}

func scanStep(r rowScanner) (Step, error) {
	var st Step

	err := r.Scan(&st.ID, &st.PlanID, &st.FileID, &st.Action, &st.SourcePath, &st.SourceDriveID,
		&st.DestPath, &st.DestDriveID, &st.Status, &st.PreHash, &st.PostHash, &st.ExecutedAt,
		&st.Error, &st.StepOrder)
	if err == sql.ErrNoRows {
		return Step{}, sql.ErrNoRows
	}

	if err != nil {
		return Step{}, fmt.Errorf("scan step: %w", err)
	}

	return st, nil
}
