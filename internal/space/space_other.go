//go:build !linux && !darwin

package space

import "github.com/prune-dev/prune/internal/prerr"

func platformFreeSpace(path string) (Info, error) {
	return Info{}, &prerr.ConfigError{Msg: "space: free-space checking is not implemented for this platform"}
}
