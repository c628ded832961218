//go:build !linux && !darwin

package scanner

import (
	"os"

	"github.com/prune-dev/prune/internal/catalog"
)

// applyPlatformStat is a no-op on platforms without a syscall.Stat_t shape
// this package understands. Inode, device number, and link count are left
// nil rather than guessed.
func applyPlatformStat(rec *catalog.File, info os.FileInfo) {}
