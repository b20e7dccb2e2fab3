package supervisor

import (
	"testing"
	"time"

	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/registry"
)

func TestHandleCrash_EntryRemovedConcurrently(t *testing.T) {
	reg := registry.New(1)
	mon := monitor.New(reg)
	loop := NewLoop(reg, mon, func(mp *registry.ManagedProcess) {}, func(mp *registry.ManagedProcess, kind monitor.ViolationKind) {})

	mp, err := reg.Create("worker", entryConfig(true, 5), "worker", 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// The entry disappears (e.g. deleted by a client) between crash
	// detection and handleCrash running for it.
	reg.Remove(mp.ID)

	// Must not panic on the now-missing entry.
	loop.handleCrash(mp.ID, time.Now())
}

func TestHandleCrash_OnCrashInvoked(t *testing.T) {
	reg := registry.New(1)
	mon := monitor.New(reg)
	loop := NewLoop(reg, mon, func(mp *registry.ManagedProcess) {}, func(mp *registry.ManagedProcess, kind monitor.ViolationKind) {})

	var got *registry.ManagedProcess
	loop.OnCrash(func(mp *registry.ManagedProcess, exitCode int, exitSignal string) {
		got = mp
	})

	cfg := entryConfig(true, 5)
	mp, err := reg.Create("worker", cfg, "worker", 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_ = reg.WithMut(mp.ID, func(m *registry.ManagedProcess) { m.State = registry.StateRunning; m.Pid = 1 })

	loop.handleCrash(mp.ID, time.Now())

	if got == nil || got.Name != "worker" {
		t.Fatalf("expected OnCrash to be invoked with the crashed entry, got %+v", got)
	}
}
