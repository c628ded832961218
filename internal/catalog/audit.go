package catalog

import (
	"context"
	"fmt"
)

const (
	sqlAuditColumns = `id, timestamp, action, file_id, plan_id, drive_id, details, agent_mode`

	sqlInsertAudit = `INSERT INTO audit_log (action, file_id, plan_id, drive_id, details, agent_mode)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6)`
)

func (s *Store) prepareAuditStmts() error {
	return s.prepareGroup([]stmtDef{
		{&s.auditStmts.insert, sqlInsertAudit},
	})
}

// WriteAudit appends one immutable audit entry. Never call UPDATE/DELETE
// against audit_log from any other package.
func (s *Store) WriteAudit(ctx context.Context, action string, fileID, planID, driveID *int64, details string, agentMode string) error {
	var detailsPtr *string
	if details != "" {
		detailsPtr = &details
	}

	_, err := s.auditStmts.insert.ExecContext(ctx, action, fileID, planID, driveID, detailsPtr, agentMode)
	if err != nil {
		return fmt.Errorf("write audit entry %q: %w", action, err)
	}

	return nil
}

// ListAuditByPlan returns a plan's audit trail, most recent first, limited
// to limit rows (0 means unlimited).
func (s *Store) ListAuditByPlan(ctx context.Context, planID int64, limit int) ([]AuditEntry, error) {
	query := `SELECT ` + sqlAuditColumns + ` FROM audit_log WHERE plan_id = ?1 ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.queryAudit(ctx, query, planID)
}

// ListAuditByFile returns a file's audit trail, most recent first.
func (s *Store) ListAuditByFile(ctx context.Context, fileID int64, limit int) ([]AuditEntry, error) {
	query := `SELECT ` + sqlAuditColumns + ` FROM audit_log WHERE file_id = ?1 ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.queryAudit(ctx, query, fileID)
}

func (s *Store) queryAudit(ctx context.Context, query string, arg int64) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry

	for rows.Next() {
		var e AuditEntry

		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.FileID, &e.PlanID, &e.DriveID,
			&e.Details, &e.AgentMode); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		out = append(out, e)
	}

	return out, rows.Err()
}
