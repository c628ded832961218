// Package rollback reverses a plan's completed, reversible steps in
// descending step order. A completed delete is never reversible; its
// presence anywhere in a plan blocks rollback entirely.
package rollback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/copytool"
	"github.com/prune-dev/prune/internal/hashutil"
	"github.com/prune-dev/prune/internal/prerr"
)

// DriveResolver looks up a drive by id, giving the rollback engine the
// backend and rclone-remote fields it needs to restore a source.
type DriveResolver interface {
	GetDrive(ctx context.Context, id int64) (catalog.Drive, error)
}

// Engine undoes a plan's completed steps, most recent first.
type Engine struct {
	store        *catalog.Store
	drives       DriveResolver
	verifyHashes bool
	logger       *slog.Logger
}

// New returns a rollback Engine bound to store for the duration of its calls.
func New(store *catalog.Store, verifyHashes bool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{store: store, drives: store, verifyHashes: verifyHashes, logger: logger}
}

// CanRollback reports whether every completed step in the plan is
// reversible. A completed delete step makes the whole plan unrollbackable.
func (e *Engine) CanRollback(ctx context.Context, planID int64) (bool, error) {
	steps, err := e.store.ListStepsForPlan(ctx, planID)
	if err != nil {
		return false, err
	}

	for _, s := range steps {
		if s.Status == catalog.StepStatusCompleted && s.Action == catalog.ActionDelete {
			return false, nil
		}
	}

	return true, nil
}

// Rollback undoes every completed step in a plan, in reverse step_order.
// Stops and returns the error on the first step that cannot be undone;
// already-reversed steps are not re-reversed on a retried call.
func (e *Engine) Rollback(ctx context.Context, planID int64) error {
	if _, err := e.store.GetPlan(ctx, planID); err != nil {
		return err
	}

	canRollback, err := e.CanRollback(ctx, planID)
	if err != nil {
		return err
	}

	if !canRollback {
		return fmt.Errorf("rollback: plan %d contains a completed delete step and cannot be rolled back", planID)
	}

	if err := e.store.WriteAudit(ctx, "rollback_started", nil, &planID, nil,
		"starting plan rollback", catalog.AgentModeManual); err != nil {
		return err
	}

	completed, err := e.store.ListCompletedStepsOrdered(ctx, planID)
	if err != nil {
		return err
	}

	e.logger.Info("rollback: found completed steps", "plan_id", planID, "count", len(completed))

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]

		if err := e.rollbackStep(ctx, step); err != nil {
			e.logger.Error("rollback: step failed", "step_id", step.ID, "error", err)

			if auditErr := e.store.WriteAudit(ctx, "step_rollback_failed", &step.FileID, &planID, step.SourceDriveID,
				fmt.Sprintf("step rollback failed: %v", err), catalog.AgentModeManual); auditErr != nil {
				return auditErr
			}

			return err
		}

		if err := e.store.SetStepStatus(ctx, step.ID, catalog.StepStatusRolledBack, nil, nil, nil); err != nil {
			return err
		}

		if err := e.store.WriteAudit(ctx, "step_rolled_back", &step.FileID, &planID, step.SourceDriveID,
			fmt.Sprintf("step %d rolled back successfully", step.ID), catalog.AgentModeManual); err != nil {
			return err
		}
	}

	return e.store.WriteAudit(ctx, "rollback_completed", nil, &planID, nil,
		fmt.Sprintf("rollback completed for %d steps", len(completed)), catalog.AgentModeManual)
}

func (e *Engine) rollbackStep(ctx context.Context, step catalog.Step) error {
	e.logger.Info("rollback: reversing step", "step_id", step.ID, "action", step.Action, "source", step.SourcePath)

	switch step.Action {
	case catalog.ActionCopy:
		return e.rollbackCopy(step)
	case catalog.ActionMove:
		return e.rollbackMove(ctx, step)
	case catalog.ActionDelete:
		return fmt.Errorf("rollback: cannot reverse delete of %s: file is permanently gone", step.SourcePath)
	case catalog.ActionHardlink:
		return e.rollbackLinkLike(step, "hardlink")
	case catalog.ActionSymlink:
		return e.rollbackLinkLike(step, "symlink")
	default:
		return fmt.Errorf("rollback: unknown step action %q", step.Action)
	}
}

func (e *Engine) rollbackCopy(step catalog.Step) error {
	if step.DestPath == nil {
		return fmt.Errorf("rollback: copy step %d has no destination path", step.ID)
	}

	if _, err := os.Stat(*step.DestPath); os.IsNotExist(err) {
		e.logger.Warn("rollback: destination already removed", "path", *step.DestPath)

		return nil
	}

	if e.verifyHashes && step.PostHash != nil {
		if err := hashutil.VerifyDestination(*step.DestPath, *step.PostHash); err != nil {
			return err
		}
	}

	if err := os.Remove(*step.DestPath); err != nil {
		return &prerr.IoErr{Op: "remove copied file during rollback", Err: err}
	}

	return nil
}

func (e *Engine) rollbackMove(ctx context.Context, step catalog.Step) error {
	if step.DestPath == nil {
		return fmt.Errorf("rollback: move step %d has no destination path", step.ID)
	}

	if _, err := os.Stat(*step.DestPath); err != nil {
		return fmt.Errorf("rollback: cannot restore move: destination %s not found", *step.DestPath)
	}

	if e.verifyHashes && step.PreHash != nil {
		if err := hashutil.VerifyDestination(*step.DestPath, *step.PreHash); err != nil {
			return err
		}
	}

	if step.DestDriveID == nil {
		return fmt.Errorf("rollback: move step %d has no destination drive", step.ID)
	}

	drive, err := e.drives.GetDrive(ctx, *step.DestDriveID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(step.SourcePath), 0o755); err != nil {
		return &prerr.IoErr{Op: "create move source parent during rollback", Err: err}
	}

	switch drive.Backend {
	case catalog.BackendLocal:
		if err := copytool.DefaultLocal().Copy(ctx, *step.DestPath, step.SourcePath); err != nil {
			return err
		}
	case catalog.BackendRclone:
		if drive.RcloneRemote == nil {
			return fmt.Errorf("rollback: drive %d uses rclone backend with no remote configured", drive.ID)
		}

		if err := copytool.DefaultRemote(*drive.RcloneRemote).CopyFromRemote(ctx, *step.DestPath, step.SourcePath); err != nil {
			return err
		}
	default:
		return &prerr.InvalidBackendError{Backend: drive.Backend}
	}

	if e.verifyHashes && step.PreHash != nil {
		if err := hashutil.VerifyDestination(step.SourcePath, *step.PreHash); err != nil {
			return err
		}
	}

	if err := os.Remove(*step.DestPath); err != nil {
		return &prerr.IoErr{Op: "remove move destination after restore", Err: err}
	}

	return nil
}

func (e *Engine) rollbackLinkLike(step catalog.Step, kind string) error {
	if step.DestPath == nil {
		return fmt.Errorf("rollback: %s step %d has no destination path", kind, step.ID)
	}

	if _, err := os.Stat(*step.DestPath); os.IsNotExist(err) {
		e.logger.Warn("rollback: "+kind+" already removed", "path", *step.DestPath)

		return nil
	}

	if err := os.Remove(*step.DestPath); err != nil {
		return &prerr.IoErr{Op: "remove " + kind + " during rollback", Err: err}
	}

	return nil
}
