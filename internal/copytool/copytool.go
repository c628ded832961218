// Package copytool wraps the external bulk-copy executables the engine
// invokes for local and remote-backend destinations, per the subprocess
// contract: explicit checksum verification, optional transfer parallelism,
// source/destination as trailing positional arguments, captured output on
// failure.
package copytool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/prune-dev/prune/internal/prerr"
)

// CopyTool copies src to dst, verifying checksums where the underlying
// tool supports it natively.
type CopyTool interface {
	Copy(ctx context.Context, src, dst string) error
}

// Local wraps an rsync-compatible executable for same-host (or
// locally-mounted) transfers.
type Local struct {
	// Path to the executable; defaults to "rsync" when empty.
	Path string
	// Archive preserves permissions, timestamps, and symlinks (-a).
	Archive bool
	// Checksum forces content comparison rather than size/mtime (--checksum).
	Checksum bool
	// Partial and Sparse match rsync's keep-partial and sparse-file flags.
	Partial bool
	Sparse  bool
	// RetryCount bounds retries of the subprocess invocation itself —
	// scoped only to this call, never across engine steps.
	RetryCount int
}

// DefaultLocal mirrors the original tool's conservative default: archive,
// checksummed, partial-resumable, sparse-aware.
func DefaultLocal() Local {
	return Local{Archive: true, Checksum: true, Partial: true, Sparse: true, RetryCount: 1}
}

func (l Local) exe() string {
	if l.Path == "" {
		return "rsync"
	}

	return l.Path
}

// Copy invokes the local sync tool with checksum verification enabled.
func (l Local) Copy(ctx context.Context, src, dst string) error {
	var args []string

	if l.Archive {
		args = append(args, "--archive")
	}

	if l.Checksum {
		args = append(args, "--checksum")
	}

	if l.Partial {
		args = append(args, "--partial")
	}

	if l.Sparse {
		args = append(args, "--sparse")
	}

	args = append(args, src, dst)

	return runWithRetry(ctx, l.exe(), args, max(l.RetryCount, 1))
}

// Remote wraps an rclone-compatible executable for transfers whose
// destination drive uses the remote backend.
type Remote struct {
	// Path to the executable; defaults to "rclone" when empty.
	Path string
	// RemoteName is the destination drive's configured rclone remote name.
	RemoteName string
	Checksum   bool
	// Transfers and Checkers are optional parallelism hints; zero omits
	// the flag and lets rclone use its own default.
	Transfers  int
	Checkers   int
	RetryCount int
}

// DefaultRemote mirrors the original tool's default rclone invocation.
func DefaultRemote(remoteName string) Remote {
	return Remote{RemoteName: remoteName, Checksum: true, Transfers: 4, Checkers: 8, RetryCount: 1}
}

func (r Remote) exe() string {
	if r.Path == "" {
		return "rclone"
	}

	return r.Path
}

// Copy invokes the remote sync tool against "<remote>:<dst>", trusting its
// own checksum verification (explicitly requested via --checksum).
func (r Remote) Copy(ctx context.Context, src, dst string) error {
	args := []string{"copy"}

	if r.Checksum {
		args = append(args, "--checksum")
	}

	if r.Transfers > 0 {
		args = append(args, "--transfers", fmt.Sprintf("%d", r.Transfers))
	}

	if r.Checkers > 0 {
		args = append(args, "--checkers", fmt.Sprintf("%d", r.Checkers))
	}

	remoteDst := fmt.Sprintf("%s:%s", r.RemoteName, dst)
	args = append(args, src, remoteDst)

	return runWithRetry(ctx, r.exe(), args, max(r.RetryCount, 1))
}

// CopyFromRemote pulls remotePath on the named remote down to localDst,
// used by the rollback engine to restore a source after an rclone-backed
// move or copy.
func (r Remote) CopyFromRemote(ctx context.Context, remotePath, localDst string) error {
	args := []string{"copy"}

	if r.Checksum {
		args = append(args, "--checksum")
	}

	args = append(args, fmt.Sprintf("%s:%s", r.RemoteName, remotePath), localDst)

	return runWithRetry(ctx, r.exe(), args, max(r.RetryCount, 1))
}

func runWithRetry(ctx context.Context, name string, args []string, attempts int) error {
	var lastErr error

	for i := 0; i < attempts; i++ {
		var stdout, stderr bytes.Buffer

		cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // tool path is operator-configured
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			lastErr = &prerr.ExternalToolError{
				Tool:   name,
				Output: stdout.String() + stderr.String(),
				Err:    err,
			}

			continue
		}

		return nil
	}

	return lastErr
}

func max(a, b int) int {
	if a > b {
		return a
	}

	return b
}
