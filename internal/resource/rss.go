package resource

import "runtime"

// CurrentRSSBytes estimates the process's resident memory footprint using
// Go's own runtime accounting rather than a platform-specific syscall
// (grounded on the teacher's internal/preflight/memory.go, which takes the
// same runtime.MemStats-based approach rather than shelling out to
// /proc/meminfo or similar). HeapSys+StackSys approximates memory the Go
// runtime has obtained from the OS, which tracks resident size closely
// enough for the batch optimizer's halve-and-retry decision.
func CurrentRSSBytes() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapSys + m.StackSys)
}
