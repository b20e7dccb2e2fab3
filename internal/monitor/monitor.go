// Package monitor samples OS process state on behalf of the supervisor
// loop: liveness for crash detection, and CPU/memory stats for limit
// enforcement, per §4.5.
package monitor

import (
	"sync"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/adasa/adasa/internal/registry"
)

// minSampleInterval is the "no sample may occur more frequently than every
// 200ms per call site" rate limit from §4.5.
const minSampleInterval = 200 * time.Millisecond

// CrashEvent reports a pid previously observed alive and now gone or
// terminated with a non-Running exit.
type CrashEvent struct {
	ID         uint64
	ExitCode   int
	ExitSignal string
}

// ViolationKind names which configured limit was exceeded.
type ViolationKind string

const (
	ViolationMemory ViolationKind = "memory"
	ViolationCPU    ViolationKind = "cpu"
)

// Monitor samples liveness and resource usage for the registry's entries.
// Its only state is the time of the last liveness sample, used for rate
// limiting; crash detection compares each call's sample with the registry.
type Monitor struct {
	reg *registry.Registry

	mu             sync.Mutex
	lastLivenessAt time.Time
	lastStatsAt    time.Time
}

func New(reg *registry.Registry) *Monitor {
	return &Monitor{reg: reg}
}

// RefreshAll batches a liveness probe for every pid currently tracked by the
// registry into a single OS query, rate-limited to minSampleInterval.
func (m *Monitor) RefreshAll() map[int]bool {
	m.mu.Lock()
	if time.Since(m.lastLivenessAt) < minSampleInterval {
		m.mu.Unlock()
		return nil
	}
	m.lastLivenessAt = time.Now()
	m.mu.Unlock()

	pids, err := gopsproc.Pids()
	if err != nil {
		return nil
	}
	alive := make(map[int]bool, len(pids))
	for _, p := range pids {
		alive[int(p)] = true
	}
	return alive
}

// DetectCrashes compares the registry's pid-bearing entries against a
// liveness snapshot (as returned by RefreshAll) and reports every entry
// whose pid has disappeared, or whose child was already reaped.
func (m *Monitor) DetectCrashes(alive map[int]bool) []CrashEvent {
	if alive == nil {
		return nil
	}
	var events []CrashEvent
	for _, mp := range m.reg.Snapshot() {
		if mp.State != registry.StateRunning && mp.State != registry.StateStarting {
			continue
		}
		if mp.Pid == 0 {
			// The dispatcher's wait goroutine clears the pid and stamps
			// LastExitAt when the child exits on its own.
			if mp.LastExitAt.After(mp.SpawnedAt) && mp.LastExitAt.After(mp.LastRestartAt) {
				events = append(events, CrashEvent{ID: mp.ID, ExitCode: mp.ExitCode, ExitSignal: mp.ExitSignal})
			}
			continue
		}
		if !alive[mp.Pid] {
			events = append(events, CrashEvent{ID: mp.ID, ExitCode: mp.ExitCode, ExitSignal: mp.ExitSignal})
		}
	}
	return events
}

// UpdateAllStats refreshes CPU percent and RSS bytes for every entry that
// currently has a pid, rate-limited to the 2s supervisor-loop cadence by the
// caller.
func (m *Monitor) UpdateAllStats() {
	for _, mp := range m.reg.Snapshot() {
		if mp.Pid == 0 {
			continue
		}
		proc, err := gopsproc.NewProcess(int32(mp.Pid))
		if err != nil {
			continue
		}
		cpuPct, _ := proc.CPUPercent()
		memInfo, memErr := proc.MemoryInfo()
		var rss uint64
		if memErr == nil && memInfo != nil {
			rss = memInfo.RSS
		}
		now := time.Now()
		_ = m.reg.WithMut(mp.ID, func(mp *registry.ManagedProcess) {
			mp.Stats = registry.Stats{CPUPercent: cpuPct, MemoryBytes: rss, UpdatedAt: now}
		})
	}
}

// CheckLimits compares an entry's latest stats against its configured
// max_memory/max_cpu and returns every limit currently being violated.
func (m *Monitor) CheckLimits(mp *registry.ManagedProcess) []ViolationKind {
	var violations []ViolationKind
	if mp.Config.MaxMemory > 0 && mp.Stats.MemoryBytes > uint64(mp.Config.MaxMemory) {
		violations = append(violations, ViolationMemory)
	}
	if mp.Config.MaxCPU > 0 && mp.Stats.CPUPercent > float64(mp.Config.MaxCPU) {
		violations = append(violations, ViolationCPU)
	}
	return violations
}
