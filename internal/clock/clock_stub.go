//go:build !linux

package clock

import "time"

var processStart = time.Now()

func monotonicNow() time.Duration {
	return time.Since(processStart)
}
