// Package prerr defines the error taxonomy shared by the catalog, planner,
// engine, and rollback packages. Callers use errors.Is/errors.As against the
// sentinel values below rather than comparing error strings.
package prerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is.
var (
	ErrNotFound      = errors.New("prune: not found")
	ErrInvalidState  = errors.New("prune: invalid state")
	ErrHashMismatch  = errors.New("prune: hash mismatch")
	ErrSourceChanged = errors.New("prune: source changed")
	ErrDestVerify    = errors.New("prune: destination verification failed")
	ErrInsufficient  = errors.New("prune: insufficient space")
	ErrExternalTool  = errors.New("prune: external tool failed")
	ErrDriveOffline  = errors.New("prune: drive offline")
	ErrInvalidBackend = errors.New("prune: invalid backend")
	ErrConfig        = errors.New("prune: invalid configuration")
)

// NotFoundError names the kind and identifier that could not be located.
type NotFoundError struct {
	Kind string // "drive", "file", "plan", "step", "duplicate_group"
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports that an entity's current status forbids the
// requested transition.
type InvalidStateError struct {
	Kind      string // "plan", "step"
	ID        any
	Status    string
	Requested string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %v has status %q, cannot %s", e.Kind, e.ID, e.Status, e.Requested)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// SourceChangedError reports that a file's hash changed between planning
// and the pre-destructive-action re-verification.
type SourceChangedError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *SourceChangedError) Error() string {
	return fmt.Sprintf("source changed: %s: expected hash %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *SourceChangedError) Unwrap() error { return ErrSourceChanged }

// DestinationVerificationError reports that a freshly copied destination
// file's hash does not match the source's pre_hash.
type DestinationVerificationError struct {
	Path string
}

func (e *DestinationVerificationError) Error() string {
	return fmt.Sprintf("destination verification failed: %s", e.Path)
}

func (e *DestinationVerificationError) Unwrap() error { return ErrDestVerify }

// InsufficientSpaceError carries both the required byte count and the
// safe-write budget that rejected it.
type InsufficientSpaceError struct {
	Required int64
	SafeMax  int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient space: required %d bytes, safe budget %d bytes", e.Required, e.SafeMax)
}

func (e *InsufficientSpaceError) Unwrap() error { return ErrInsufficient }

// ExternalToolError carries the tool name and its captured output.
type ExternalToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *ExternalToolError) Unwrap() error { return ErrExternalTool }

// DriveOfflineError reports an attempt to use an offline drive as a source
// or destination for execution.
type DriveOfflineError struct {
	Label string
}

func (e *DriveOfflineError) Error() string {
	return fmt.Sprintf("drive %q is offline", e.Label)
}

func (e *DriveOfflineError) Unwrap() error { return ErrDriveOffline }

// InvalidBackendError reports a backend string outside {local, rclone}.
type InvalidBackendError struct {
	Backend string
}

func (e *InvalidBackendError) Error() string {
	return fmt.Sprintf("invalid backend %q", e.Backend)
}

func (e *InvalidBackendError) Unwrap() error { return ErrInvalidBackend }

// ConfigError reports an operator-input error surfaced before any I/O.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func (e *ConfigError) Unwrap() error { return ErrConfig }

// IoErr wraps an underlying filesystem or catalog I/O failure, preserving
// the original cause via Unwrap.
type IoErr struct {
	Op  string
	Err error
}

func (e *IoErr) Error() string { return fmt.Sprintf("io: %s: %v", e.Op, e.Err) }

func (e *IoErr) Unwrap() error { return e.Err }
