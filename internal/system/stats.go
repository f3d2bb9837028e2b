package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats is a point-in-time view of the machine and this process.
type HostStats struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	MemoryTotal   uint64  `json:"memoryTotal"`
	ProcessRSS    uint64  `json:"processRss"`
	Goroutines    int     `json:"goroutines"`
}

// CollectHostStats samples CPU over interval. A zero interval compares against the
// previous call and returns immediately.
func CollectHostStats(ctx context.Context, interval time.Duration) (*HostStats, error) {
	stats := &HostStats{Goroutines: runtime.NumGoroutine()}

	percents, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return nil, fmt.Errorf("cpu stats: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}
	stats.MemoryPercent = vm.UsedPercent
	stats.MemoryTotal = vm.Total

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSS = info.RSS
		}
	}

	return stats, nil
}

func (s *HostStats) String() string {
	return fmt.Sprintf("CPU %.1f%% | Memory %.1f%% of %d MB | RSS %d MB | Goroutines %d",
		s.CPUPercent, s.MemoryPercent, s.MemoryTotal>>20, s.ProcessRSS>>20, s.Goroutines)
}
