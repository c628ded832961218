//go:build linux

package space

import (
	"golang.org/x/sys/unix"

	"github.com/prune-dev/prune/internal/prerr"
)

func platformFreeSpace(path string) (Info, error) {
	var stat unix.Statfs_t

	if err := unix.Statfs(path, &stat); err != nil {
		return Info{}, &prerr.IoErr{Op: "statfs", Err: err}
	}

	blockSize := uint64(stat.Bsize) //nolint:unconvert // Bsize's width varies by arch.
	total := stat.Blocks * blockSize
	free := stat.Bfree * blockSize
	available := stat.Bavail * blockSize

	var used uint64
	if total > free {
		used = total - free
	}

	return Info{
		TotalBytes:     total,
		FreeBytes:      free,
		UsedBytes:      used,
		AvailableBytes: available,
	}, nil
}
