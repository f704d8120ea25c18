package helpers

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceStats is the process/host snapshot reported by the health endpoint.
type ResourceStats struct {
	TotalMemoryMB   uint64  `json:"total_memory_mb"`
	UsedMemoryPct   float64 `json:"used_memory_pct"`
	HeapAllocMB     uint64  `json:"heap_alloc_mb"`
	Goroutines      int     `json:"goroutines"`
	HostStatsFailed bool    `json:"host_stats_failed,omitempty"`
}

// CollectResourceStats reads host memory via gopsutil and the Go runtime's
// own counters. Host failures are flagged rather than returned.
func CollectResourceStats(ctx context.Context) ResourceStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := ResourceStats{
		HeapAllocMB: ms.HeapAlloc / 1024 / 1024,
		Goroutines:  runtime.NumGoroutine(),
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		stats.HostStatsFailed = true
		return stats
	}
	stats.TotalMemoryMB = vm.Total / 1024 / 1024
	stats.UsedMemoryPct = vm.UsedPercent
	return stats
}
