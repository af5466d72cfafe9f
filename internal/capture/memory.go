package capture

import (
	"runtime"
	"runtime/debug"

	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// MemoryReport is the outcome of one CheckMemoryUsage call
type MemoryReport struct {
	HeapBytes    uint64 `json:"heap_bytes"`
	CeilingBytes uint64 `json:"ceiling_bytes"`
	Evicted      bool   `json:"evicted"`
}

// CheckMemoryUsage samples heap usage and, above the ceiling, evicts the
// capture cache and asks the runtime to return memory to the OS. It is a
// pressure valve for retained bitmaps, not a hard limit.
func (o *Orchestrator) CheckMemoryUsage() MemoryReport {
	report := MemoryReport{
		HeapBytes:    o.readMemory(),
		CeilingBytes: o.ceiling,
	}

	if report.HeapBytes <= o.ceiling {
		return report
	}

	logger.WithComponent("capture").Warn().
		Uint64("heap_mb", report.HeapBytes>>20).
		Uint64("ceiling_mb", o.ceiling>>20).
		Msg("Memory above ceiling, evicting capture cache")

	o.Invalidate()
	o.freeMemory()
	report.Evicted = true
	return report
}

func heapInUse() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// releaseMemory forces a collection and returns freed pages to the OS
func releaseMemory() {
	debug.FreeOSMemory()
}
