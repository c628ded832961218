package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prune-dev/prune/internal/prerr"
)

const (
	sqlPlanColumns = `id, created_at, description, source_drive_id, target_drive_id, status,
		total_files, total_bytes, completed_files, completed_bytes`

	sqlInsertPlan = `INSERT INTO migration_plans
		(description, source_drive_id, target_drive_id, status, total_files, total_bytes)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6)`

	sqlGetPlan = `SELECT ` + sqlPlanColumns + ` FROM migration_plans WHERE id = ?1`

	sqlSetPlanStatus = `UPDATE migration_plans SET status = ?2 WHERE id = ?1`

	sqlAddPlanProgress = `UPDATE migration_plans
		SET completed_files = completed_files + ?2, completed_bytes = completed_bytes + ?3
		WHERE id = ?1`
)

func (s *Store) preparePlanStmts() error {
	return s.prepareGroup([]stmtDef{
		{&s.planStmts.insert, sqlInsertPlan},
		{&s.planStmts.get, sqlGetPlan},
		{&s.planStmts.setStatus, sqlSetPlanStatus},
		{&s.planStmts.addProgress, sqlAddPlanProgress},
	})
}

// NewStep is the planner's input shape for one step row, before the plan id
// and database-assigned step id exist.
type NewStep struct {
	FileID        int64
	Action        string
	SourcePath    string
	SourceDriveID *int64
	DestPath      *string
	DestDriveID   *int64
	PreHash       *string
	StepOrder     int64
}

// CreatePlanWithSteps inserts a draft plan, all of its steps, and a single
// "plan_created" audit entry in one transaction. If any row fails, none are
// persisted — satisfying the planner's all-or-nothing guarantee (§4.2).
func (s *Store) CreatePlanWithSteps(ctx context.Context, plan Plan, steps []NewStep, auditDetails string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin plan transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.StmtContext(ctx, s.planStmts.insert).ExecContext(ctx,
		plan.Description, plan.SourceDriveID, plan.TargetDriveID, PlanStatusDraft, plan.TotalFiles, plan.TotalBytes)
	if err != nil {
		return 0, fmt.Errorf("insert plan: %w", err)
	}

	planID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	insertStep := tx.StmtContext(ctx, s.stepStmts.insert)

	for _, st := range steps {
		if _, err := insertStep.ExecContext(ctx, planID, st.FileID, st.Action, st.SourcePath,
			st.SourceDriveID, st.DestPath, st.DestDriveID, StepStatusPending, st.PreHash, st.StepOrder); err != nil {
			return 0, fmt.Errorf("insert step for plan %d: %w", planID, err)
		}
	}

	agentMode := AgentModeAutomated
	if _, err := tx.StmtContext(ctx, s.auditStmts.insert).ExecContext(ctx,
		"plan_created", nil, planID, nil, auditDetails, agentMode); err != nil {
		return 0, fmt.Errorf("audit plan_created: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit plan: %w", err)
	}

	return planID, nil
}

// GetPlan looks up a plan by id.
func (s *Store) GetPlan(ctx context.Context, id int64) (Plan, error) {
	p, err := scanPlan(s.planStmts.get.QueryRowContext(ctx, id))
	if isNotFound(err) {
		return Plan{}, &prerr.NotFoundError{Kind: "plan", ID: id}
	}

	return p, err
}

// ListPlans returns all plans, optionally filtered by status, newest first.
func (s *Store) ListPlans(ctx context.Context, status string) ([]Plan, error) {
	query := `SELECT ` + sqlPlanColumns + ` FROM migration_plans`
	args := []any{}

	if status != "" {
		query += ` WHERE status = ?1`
		args = append(args, status)
	}

	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []Plan

	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// ApprovePlan transitions a draft plan to approved and writes one audit
// entry. Rejects any plan not currently in draft status.
func (s *Store) ApprovePlan(ctx context.Context, id int64) error {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return err
	}

	if plan.Status != PlanStatusDraft {
		return &prerr.InvalidStateError{Kind: "plan", ID: id, Status: plan.Status, Requested: "approve"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.StmtContext(ctx, s.planStmts.setStatus).ExecContext(ctx, id, PlanStatusApproved); err != nil {
		return fmt.Errorf("approve plan %d: %w", id, err)
	}

	if _, err := tx.StmtContext(ctx, s.auditStmts.insert).ExecContext(ctx,
		"plan_approved", nil, id, nil, nil, AgentModeManual); err != nil {
		return fmt.Errorf("audit plan_approved: %w", err)
	}

	return tx.Commit()
}

// SetPlanStatus transitions a plan's status without an accompanying audit
// entry (callers that need an audit entry use the transactional helpers
// in the engine/rollback packages, which write their own).
func (s *Store) SetPlanStatus(ctx context.Context, id int64, status string) error {
	_, err := s.planStmts.setStatus.ExecContext(ctx, id, status)
	if err != nil {
		return fmt.Errorf("set plan %d status: %w", id, err)
	}

	return nil
}

// AddPlanProgress increments a plan's completed-file and completed-byte
// counters. The engine calls this immediately after each successful step,
// not batched, per §4.3's per-step protocol.
func (s *Store) AddPlanProgress(ctx context.Context, id int64, files, bytes int64) error {
	_, err := s.planStmts.addProgress.ExecContext(ctx, id, files, bytes)
	if err != nil {
		return fmt.Errorf("add plan %d progress: %w", id, err)
	}

	return nil
}

// PlanStatistics aggregates migration-plan counts and the total bytes
// completed by plans that finished successfully.
type PlanStatistics struct {
	TotalPlans     int64
	CompletedPlans int64
	MigratedBytes  int64
}

// PlanStatistics summarizes all migration plans regardless of status.
func (s *Store) PlanStatistics(ctx context.Context) (PlanStatistics, error) {
	var stats PlanStatistics

	row := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = ?1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ?1 THEN completed_bytes ELSE 0 END), 0)
		FROM migration_plans`, PlanStatusCompleted)

	if err := row.Scan(&stats.TotalPlans, &stats.CompletedPlans, &stats.MigratedBytes); err != nil {
		return PlanStatistics{}, fmt.Errorf("plan statistics: %w", err)
	}

	return stats, nil
}

func scanPlan(r rowScanner) (Plan, error) {
	var p Plan

	err := r.Scan(&p.ID, &p.CreatedAt, &p.Description, &p.SourceDriveID, &p.TargetDriveID, &p.Status,
		&p.TotalFiles, &p.TotalBytes, &p.CompletedFiles, &p.CompletedBytes)
	if err == sql.ErrNoRows {
		return Plan{}, sql.ErrNoRows
	}

	if err != nil {
		return Plan{}, fmt.Errorf("scan plan: %w", err)
	}

	return p, nil
}
