// Package space provides a conservative free-space estimate for local
// mounts and the safe-write budget the planner enforces.
package space

import (
	"os"

	"github.com/prune-dev/prune/internal/prerr"
)

// defaultHeadroomPercent is the policy default: never plan to write more
// than this fraction of currently-free bytes. Operators can lower (never
// raise) it via the config key safety.space_headroom_percent; see
// SetHeadroomPercent.
const defaultHeadroomPercent = 0.50

var headroomPercent = defaultHeadroomPercent

// SetHeadroomPercent overrides the fraction of free space MaxSafeWriteBytes
// treats as available for writes. pct must be in (0, 0.5]; out-of-range
// values are ignored and the previous setting is kept.
func SetHeadroomPercent(pct float64) {
	if pct <= 0 || pct > defaultHeadroomPercent {
		return
	}

	headroomPercent = pct
}

// Info reports the quantities the operating system's statvfs-equivalent
// call exposes for one mount.
type Info struct {
	TotalBytes     uint64
	FreeBytes      uint64
	UsedBytes      uint64
	AvailableBytes uint64
}

// MaxSafeWriteBytes returns min(available, free * headroom fraction); the
// fraction is 0.5 unless SetHeadroomPercent has lowered it.
func (i Info) MaxSafeWriteBytes() uint64 {
	maxUse := uint64(float64(i.FreeBytes) * headroomPercent)
	if i.AvailableBytes < maxUse {
		return i.AvailableBytes
	}

	return maxUse
}

// CanSafelyWrite reports whether bytes fits within the safe-write budget.
func (i Info) CanSafelyWrite(bytes uint64) bool {
	return bytes <= i.MaxSafeWriteBytes()
}

// statfsFunc is an injectable seam for testing, mirroring the teacher's
// SafetyChecker.statfsFunc pattern.
type statfsFunc func(path string) (Info, error)

var getFreeSpaceImpl statfsFunc = platformFreeSpace

// GetFreeSpace queries free-space information for the mount containing path.
func GetFreeSpace(path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, &prerr.IoErr{Op: "stat mount path", Err: err}
	}

	return getFreeSpaceImpl(path)
}

// VerifySufficientSpace checks requiredBytes against the mount's safe-write
// budget, returning *prerr.InsufficientSpaceError carrying both figures on
// failure.
func VerifySufficientSpace(path string, requiredBytes uint64) error {
	info, err := GetFreeSpace(path)
	if err != nil {
		return err
	}

	if !info.CanSafelyWrite(requiredBytes) {
		return &prerr.InsufficientSpaceError{
			Required: int64(requiredBytes),
			SafeMax:  int64(info.MaxSafeWriteBytes()),
		}
	}

	return nil
}

// SizedFile is a minimal (id, size) pair used by CalculateBatchSize.
type SizedFile struct {
	ID   int64
	Size uint64
}

// CalculateBatchSize returns the leading run of file ids whose cumulative
// size fits within maxBytes, preserving input order.
func CalculateBatchSize(files []SizedFile, maxBytes uint64) []int64 {
	var (
		running uint64
		ids     []int64
	)

	for _, f := range files {
		if running+f.Size > maxBytes {
			break
		}

		running += f.Size
		ids = append(ids, f.ID)
	}

	return ids
}
