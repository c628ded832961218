//go:build linux

package scanner

import (
	"os"
	"syscall"

	"github.com/prune-dev/prune/internal/catalog"
)

// applyPlatformStat fills inode, device number, link count, and ctime from
// the platform-specific portion of info, when available.
func applyPlatformStat(rec *catalog.File, info os.FileInfo) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}

	inode := int64(stat.Ino) //nolint:unconvert // Ino's width varies by arch.
	rec.Inode = &inode

	dev := int64(stat.Dev) //nolint:unconvert // Dev's width varies by arch.
	rec.DeviceNum = &dev

	nlinks := int64(stat.Nlink) //nolint:unconvert // Nlink is uint64 on linux, uint16 on darwin.
	rec.Nlinks = &nlinks

	ctime := secondsToRFC3339(stat.Ctim.Sec)
	if rec.CreatedAt == nil {
		rec.CreatedAt = &ctime
	}
}
