// Package engine executes an approved plan's pending steps in order,
// performing the per-action safety protocol (hash re-verification before
// anything destructive) and recording progress and audit entries as it goes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/copytool"
	"github.com/prune-dev/prune/internal/hashutil"
	"github.com/prune-dev/prune/internal/prerr"
	"github.com/prune-dev/prune/internal/space"
)

// Options configures one execution run.
type Options struct {
	DryRun        bool
	VerifyHashes  bool
	RetryCount    int
	EnforceSafety bool
}

// DefaultOptions matches the source engine's conservative defaults.
func DefaultOptions() Options {
	return Options{DryRun: true, VerifyHashes: true, RetryCount: 3, EnforceSafety: true}
}

// DriveResolver looks up a drive by id, giving the engine the backend and
// rclone-remote fields it needs to pick a copy tool per step.
type DriveResolver interface {
	GetDrive(ctx context.Context, id int64) (catalog.Drive, error)
}

// Engine walks a plan's pending steps under the configured safety policy.
type Engine struct {
	store  *catalog.Store
	drives DriveResolver
	opts   Options
	logger *slog.Logger
}

// New returns an Engine bound to store for the duration of its calls.
func New(store *catalog.Store, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{store: store, drives: store, opts: opts, logger: logger}
}

// Execute runs every pending step of an approved plan in order. On the
// first step failure it marks the step failed, writes a step_failed audit
// entry, marks the plan aborted, and returns the error; no later step runs.
func (e *Engine) Execute(ctx context.Context, planID int64) error {
	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return err
	}

	if plan.Status != catalog.PlanStatusApproved {
		return &prerr.InvalidStateError{Kind: "plan", ID: planID, Status: plan.Status, Requested: "execute"}
	}

	if e.opts.DryRun {
		return e.dryRun(ctx, planID)
	}

	if err := e.store.SetPlanStatus(ctx, planID, catalog.PlanStatusInProgress); err != nil {
		return err
	}

	runID := uuid.New().String()

	if err := e.store.WriteAudit(ctx, "plan_execution_started", nil, &planID, nil,
		fmt.Sprintf("starting plan execution (run %s)", runID), catalog.AgentModeAutomated); err != nil {
		return err
	}

	steps, err := e.store.ListPendingStepsOrdered(ctx, planID)
	if err != nil {
		return err
	}

	var completedFiles, completedBytes int64

	for _, step := range steps {
		bytesMoved, err := e.executeStep(ctx, step)
		if err != nil {
			e.logger.Error("engine: step failed", "step_id", step.ID, "error", err)

			errMsg := err.Error()
			if setErr := e.store.SetStepStatus(ctx, step.ID, catalog.StepStatusFailed, nil, nil, &errMsg); setErr != nil {
				return setErr
			}

			if auditErr := e.store.WriteAudit(ctx, "step_failed", &step.FileID, &planID, step.SourceDriveID,
				fmt.Sprintf("step failed: %v", err), catalog.AgentModeAutomated); auditErr != nil {
				return auditErr
			}

			if abortErr := e.store.SetPlanStatus(ctx, planID, catalog.PlanStatusAborted); abortErr != nil {
				return abortErr
			}

			return err
		}

		completedFiles++
		completedBytes += bytesMoved

		if err := e.store.AddPlanProgress(ctx, planID, 1, bytesMoved); err != nil {
			return err
		}
	}

	if err := e.store.SetPlanStatus(ctx, planID, catalog.PlanStatusCompleted); err != nil {
		return err
	}

	return e.store.WriteAudit(ctx, "plan_execution_completed", nil, &planID, nil,
		fmt.Sprintf("completed %d files, %d bytes (run %s)", completedFiles, completedBytes, runID), catalog.AgentModeAutomated)
}

func (e *Engine) executeStep(ctx context.Context, step catalog.Step) (int64, error) {
	e.logger.Info("engine: executing step", "step_id", step.ID, "action", step.Action, "source", step.SourcePath)

	if err := e.store.SetStepStatus(ctx, step.ID, catalog.StepStatusInProgress, nil, nil, nil); err != nil {
		return 0, err
	}

	var (
		bytesMoved int64
		err        error
	)

	switch step.Action {
	case catalog.ActionCopy:
		bytesMoved, err = e.executeCopy(ctx, step)
	case catalog.ActionMove:
		bytesMoved, err = e.executeMove(ctx, step)
	case catalog.ActionDelete:
		bytesMoved, err = e.executeDelete(ctx, step)
	case catalog.ActionHardlink:
		bytesMoved, err = e.executeHardlink(ctx, step)
	case catalog.ActionSymlink:
		bytesMoved, err = e.executeSymlink(ctx, step)
	default:
		err = fmt.Errorf("engine: unknown step action %q", step.Action)
	}

	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := e.store.SetStepStatus(ctx, step.ID, catalog.StepStatusCompleted, nil, &now, nil); err != nil {
		return 0, err
	}

	if auditErr := e.store.WriteAudit(ctx, "step_completed_"+step.Action, &step.FileID, &step.PlanID, step.SourceDriveID,
		fmt.Sprintf("step %d completed successfully", step.ID), catalog.AgentModeAutomated); auditErr != nil {
		return 0, auditErr
	}

	return bytesMoved, nil
}

func (e *Engine) resolveCopyTool(ctx context.Context, destDriveID *int64) (copytool.CopyTool, bool, error) {
	if destDriveID == nil {
		return nil, false, fmt.Errorf("engine: step has no destination drive")
	}

	drive, err := e.drives.GetDrive(ctx, *destDriveID)
	if err != nil {
		return nil, false, err
	}

	switch drive.Backend {
	case catalog.BackendLocal:
		return copytool.DefaultLocal(), true, nil
	case catalog.BackendRclone:
		if drive.RcloneRemote == nil {
			return nil, false, fmt.Errorf("engine: drive %d uses rclone backend with no remote configured", drive.ID)
		}

		return copytool.DefaultRemote(*drive.RcloneRemote), false, nil
	default:
		return nil, false, &prerr.InvalidBackendError{Backend: drive.Backend}
	}
}

func (e *Engine) executeCopy(ctx context.Context, step catalog.Step) (int64, error) {
	if step.DestPath == nil {
		return 0, fmt.Errorf("engine: copy step %d has no destination path", step.ID)
	}

	info, err := os.Stat(step.SourcePath)
	if err != nil {
		return 0, &prerr.IoErr{Op: "stat copy source", Err: err}
	}

	preHash := step.PreHash

	if e.opts.VerifyHashes {
		computed, err := hashutil.Compute(step.SourcePath)
		if err != nil {
			return 0, err
		}

		preHash = &computed

		if err := e.store.SetStepHashes(ctx, step.ID, preHash, nil); err != nil {
			return 0, err
		}
	}

	if preHash == nil {
		return 0, fmt.Errorf("engine: copy step %d has no pre-hash available", step.ID)
	}

	tool, isLocal, err := e.resolveCopyTool(ctx, step.DestDriveID)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(*step.DestPath), 0o755); err != nil {
		return 0, &prerr.IoErr{Op: "create copy destination parent", Err: err}
	}

	if err := tool.Copy(ctx, step.SourcePath, *step.DestPath); err != nil {
		return 0, err
	}

	if e.opts.VerifyHashes && isLocal {
		if err := hashutil.VerifyDestination(*step.DestPath, *preHash); err != nil {
			return 0, err
		}

		if err := e.store.SetStepHashes(ctx, step.ID, preHash, preHash); err != nil {
			return 0, err
		}
	}

	return info.Size(), nil
}

func (e *Engine) executeMove(ctx context.Context, step catalog.Step) (int64, error) {
	bytesMoved, err := e.executeCopy(ctx, step)
	if err != nil {
		return 0, err
	}

	refreshed, err := e.store.GetStep(ctx, step.ID)
	if err != nil {
		return 0, err
	}

	if e.opts.EnforceSafety && e.opts.VerifyHashes && refreshed.PreHash != nil {
		if err := hashutil.VerifySourceUnchanged(step.SourcePath, *refreshed.PreHash); err != nil {
			return 0, err
		}
	}

	if err := os.Remove(step.SourcePath); err != nil {
		return 0, &prerr.IoErr{Op: "remove move source", Err: err}
	}

	return bytesMoved, nil
}

func (e *Engine) executeDelete(ctx context.Context, step catalog.Step) (int64, error) {
	info, err := os.Stat(step.SourcePath)
	if os.IsNotExist(err) {
		e.logger.Warn("engine: file already deleted", "path", step.SourcePath)

		return 0, nil
	}

	if err != nil {
		return 0, &prerr.IoErr{Op: "stat delete target", Err: err}
	}

	if e.opts.EnforceSafety {
		if step.PreHash == nil {
			return 0, fmt.Errorf("engine: cannot delete %s without a stored pre-hash", step.SourcePath)
		}

		if err := hashutil.VerifySourceUnchanged(step.SourcePath, *step.PreHash); err != nil {
			return 0, err
		}
	}

	if err := os.Remove(step.SourcePath); err != nil {
		return 0, &prerr.IoErr{Op: "remove delete target", Err: err}
	}

	return info.Size(), nil
}

func (e *Engine) executeHardlink(_ context.Context, step catalog.Step) (int64, error) {
	if step.DestPath == nil {
		return 0, fmt.Errorf("engine: hardlink step %d has no destination path", step.ID)
	}

	info, err := os.Stat(step.SourcePath)
	if err != nil {
		return 0, &prerr.IoErr{Op: "stat hardlink source", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(*step.DestPath), 0o755); err != nil {
		return 0, &prerr.IoErr{Op: "create hardlink destination parent", Err: err}
	}

	if err := os.Link(step.SourcePath, *step.DestPath); err != nil {
		return 0, &prerr.IoErr{Op: "hardlink", Err: err}
	}

	return info.Size(), nil
}

func (e *Engine) executeSymlink(_ context.Context, step catalog.Step) (int64, error) {
	if step.DestPath == nil {
		return 0, fmt.Errorf("engine: symlink step %d has no destination path", step.ID)
	}

	if _, err := os.Stat(step.SourcePath); err != nil {
		return 0, &prerr.IoErr{Op: "stat symlink source", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(*step.DestPath), 0o755); err != nil {
		return 0, &prerr.IoErr{Op: "create symlink destination parent", Err: err}
	}

	if err := os.Symlink(step.SourcePath, *step.DestPath); err != nil {
		return 0, &prerr.IoErr{Op: "symlink", Err: err}
	}

	return 0, nil
}

func (e *Engine) dryRun(ctx context.Context, planID int64) error {
	steps, err := e.store.ListStepsForPlan(ctx, planID)
	if err != nil {
		return err
	}

	e.logger.Info("engine: dry run", "plan_id", planID, "steps", len(steps))

	for _, step := range steps {
		e.logger.Info("engine: dry run step", "action", step.Action, "source", step.SourcePath, "dest", step.DestPath)
		e.probeFreeSpace(ctx, step)
	}

	return nil
}

// probeFreeSpace checks the destination parent's free-space budget for a
// local destination, logging a warning rather than failing the dry run when
// the mount isn't reachable or the probe itself errors.
func (e *Engine) probeFreeSpace(ctx context.Context, step catalog.Step) {
	if step.DestPath == nil || step.DestDriveID == nil {
		return
	}

	drive, err := e.drives.GetDrive(ctx, *step.DestDriveID)
	if err != nil || drive.Backend != catalog.BackendLocal {
		return
	}

	info, err := os.Stat(step.SourcePath)
	if err != nil {
		return
	}

	parent := filepath.Dir(*step.DestPath)
	if err := space.VerifySufficientSpace(parent, uint64(info.Size())); err != nil {
		e.logger.Warn("engine: dry run free-space probe", "step_id", step.ID, "dest_parent", parent, "error", err)
	}
}
