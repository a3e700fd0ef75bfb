package observability

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is the snapshot reported by the health endpoint.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float32 `json:"mem_percent"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
	Uptime     string  `json:"uptime"`
}

var startedAt = time.Now()

// CurrentProcess reads the stats of the running server.
// Runtime figures are always filled; the OS figures are best effort.
func CurrentProcess() (ProcessStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		PID:        int32(os.Getpid()),
		AllocMemMb: m.Alloc / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(startedAt).Truncate(time.Second).String(),
	}

	p, err := process.NewProcess(stats.PID)
	if err != nil {
		return stats, err
	}
	if status, err := p.Status(); err == nil {
		stats.Status = status
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if ram, err := p.MemoryPercent(); err == nil {
		stats.MemPercent = ram
	}
	return stats, nil
}
