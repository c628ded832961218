package scanner

import "time"

// secondsToRFC3339 formats a Unix seconds timestamp as used by
// syscall.Stat_t's Ctim/Ctimespec fields.
func secondsToRFC3339(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
