package registry

import (
	"time"

	"github.com/adasa/adasa/internal/config"
)

// State is one node of the lifecycle state machine (§4.3).
type State string

const (
	StateStarting   State = "Starting"
	StateRunning    State = "Running"
	StateStopping   State = "Stopping"
	StateStopped    State = "Stopped"
	StateRestarting State = "Restarting"
	StateErrored    State = "Errored"
	StateDeleted    State = "Deleted"
)

// hasPid reports whether a ManagedProcess in this state is expected to carry
// a live OS pid, per invariant 1.
func (s State) hasPid() bool {
	switch s {
	case StateStarting, StateRunning, StateStopping, StateRestarting:
		return true
	default:
		return false
	}
}

// Stats holds the most recent resource sample for a managed process.
type Stats struct {
	CPUPercent  float64
	MemoryBytes uint64
	UpdatedAt   time.Time
}

// Violations counts the resource-limit breaches the supervisor loop has
// observed. The counts are only recorded; limit_action is applied on every
// breach regardless of them.
type Violations struct {
	MemoryCount int
	CPUCount    int
}

// ManagedProcess is the mutable runtime entity tracked by the registry, one
// per spawned instance. Field shapes follow §3 exactly.
type ManagedProcess struct {
	ID     uint64
	Name   string
	Config *config.ProcessConfig

	// InstanceIndex identifies which of Config.Instances copies this is;
	// BaseName is Config.Name, Name is "<BaseName>-<InstanceIndex>" when
	// Config.Instances > 1 and BaseName itself otherwise.
	BaseName     string
	InstanceIndex int

	State State
	Pid   int // 0 when State.hasPid() is false

	SpawnedAt     time.Time
	LastExitAt    time.Time
	LastRestartAt time.Time

	RestartCount   int
	RecentRestarts []time.Time // sliding window, §4.4/invariant 4

	ExitCode   int
	ExitSignal string

	Stats      Stats
	Violations Violations

	BackoffUntil time.Time

	// ConsecutiveFailures counts crash-triggered restarts scheduled since the
	// entry was created or last restarted by a client; feeds the exponential
	// backoff formula in §4.4. It is not reset when a respawned process
	// reaches Running.
	ConsecutiveFailures int

	// OrphanReason is set when Persistence could not re-attach this entry to
	// a live process at daemon startup (§4.9, §9(b)).
	OrphanReason string
}

// Clone returns a deep-enough copy suitable for serialization to a client;
// the registry never hands out a live pointer from list().
func (m *ManagedProcess) Clone() *ManagedProcess {
	cp := *m
	if m.Config != nil {
		cfgCopy := *m.Config
		cp.Config = &cfgCopy
	}
	cp.RecentRestarts = append([]time.Time(nil), m.RecentRestarts...)
	return &cp
}
