// Package metrics provides helper functions for Prometheus metrics
package metrics

import (
	"runtime"
)

// RecordMemoryUsage updates memory usage metrics
func RecordMemoryUsage() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsageBytes.Set(float64(m.Alloc))
}
