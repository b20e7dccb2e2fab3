package dispatcher

import (
	"testing"

	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/testutil"
)

func TestDispatcher_Respawn(t *testing.T) {
	d := newTestDispatcher(t)
	if _, err := d.Start(sleeperConfig("worker")); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	mp := waitRunning(t, d, "worker")
	originalPid := mp.Pid

	_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
		m.State = registry.StateRestarting
	})

	d.Respawn(mp)

	testutil.Eventually(t, func() bool {
		current := d.Registry.LookupByID(mp.ID)
		return current != nil && current.State == registry.StateRunning && current.Pid != originalPid
	}, "respawned process to reach Running with a new pid")

	if current := d.Registry.LookupByID(mp.ID); current.RestartCount != 1 {
		t.Errorf("expected RestartCount 1 after an actual respawn, got %d", current.RestartCount)
	}
}

func TestDispatcher_Respawn_MissingEntry(t *testing.T) {
	d := newTestDispatcher(t)
	ghost := &registry.ManagedProcess{ID: 9999, Name: "ghost"}

	// Respawn on an id no longer in the registry must return without
	// panicking; there is nothing to spawn.
	d.Respawn(ghost)
}

func TestDispatcher_EnforceLimit_Stop(t *testing.T) {
	d := newTestDispatcher(t)
	cfg := sleeperConfig("leaky")
	cfg.LimitAction = "stop"
	if _, err := d.Start(cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	mp := waitRunning(t, d, "leaky")

	d.EnforceLimit(mp, monitor.ViolationMemory)

	testutil.Eventually(t, func() bool {
		current := d.Registry.LookupByID(mp.ID)
		return current != nil && current.State == registry.StateStopped
	}, "entry to stop after a limit violation")
}

func TestDispatcher_EnforceLimit_Restart(t *testing.T) {
	d := newTestDispatcher(t)
	cfg := sleeperConfig("hot")
	cfg.LimitAction = "restart"
	if _, err := d.Start(cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	mp := waitRunning(t, d, "hot")
	originalPid := mp.Pid

	d.EnforceLimit(mp, monitor.ViolationCPU)

	testutil.Eventually(t, func() bool {
		current := d.Registry.LookupByID(mp.ID)
		return current != nil && current.State == registry.StateRunning && current.Pid != originalPid
	}, "entry to restart with a new pid after a limit violation")
}

func TestDispatcher_EnforceLimit_LogOnly(t *testing.T) {
	d := newTestDispatcher(t)
	cfg := sleeperConfig("quiet")
	if _, err := d.Start(cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	mp := waitRunning(t, d, "quiet")

	// No LimitAction configured: EnforceLimit must default to logging only,
	// leaving the entry running untouched.
	d.EnforceLimit(mp, monitor.ViolationMemory)

	current := d.Registry.LookupByID(mp.ID)
	if current.State != registry.StateRunning || current.Pid != mp.Pid {
		t.Errorf("expected entry untouched by a log-only limit action, got state=%s pid=%d", current.State, current.Pid)
	}
}
