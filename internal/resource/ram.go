package resource

import "runtime"

// readRAMMB reports the process's current heap footprint in MB. It is
// shared by both platform samplers since runtime.MemStats needs no OS
// support beyond the Go runtime itself.
func readRAMMB() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return float64(stats.Alloc) / (1024 * 1024)
}
