// Package monotime provides process-local monotonic timestamps as float64
// seconds, the unit used by the probe's wire format. Values are measured
// from an arbitrary per-process epoch, so only differences between two
// timestamps from the same process are meaningful. Translating a remote
// timestamp requires the clock offset measured during synchronization.
package monotime

import "time"

var epoch = time.Now()

// Seconds returns the monotonic time elapsed since the process epoch.
func Seconds() float64 {
	return time.Since(epoch).Seconds()
}
