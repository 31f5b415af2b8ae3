// Package hostmonitor reports the orchestrator daemon's own host resource
// pressure. It is lifted directly from the teacher's SystemMonitor but
// repurposed: instead of answering "can this worker accept a transcode",
// it answers "is this host healthy enough to keep probing providers" —
// surfaced as an informational field on GET /health, never a gate on any
// operation.
package hostmonitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is the informational snapshot of host resource pressure.
type Stats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	UnderLoad  bool    `json:"under_load"`
}

// Monitor samples host CPU/RAM on demand.
type Monitor struct{}

// New builds a Monitor. It carries no state.
func New() *Monitor {
	return &Monitor{}
}

// Stats gathers a fresh CPU/RAM snapshot. Same high-CPU/high-RAM
// threshold as the teacher's IsBusy flag, renamed to UnderLoad: informational
// only, it never skips or gates a health probe.
func (m *Monitor) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get mem stats: %w", err)
	}
	stats.RAMPercent = v.UsedPercent

	cpuPct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil {
		return stats, fmt.Errorf("failed to get cpu stats: %w", err)
	}
	if len(cpuPct) > 0 {
		stats.CPUPercent = cpuPct[0]
	}

	stats.UnderLoad = stats.CPUPercent > 80.0 || stats.RAMPercent > 90.0
	return stats, nil
}
