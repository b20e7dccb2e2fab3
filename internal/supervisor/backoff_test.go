package supervisor

import (
	"testing"
	"time"

	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/registry"
)

func entryConfig(autoRestart bool, maxRestarts int) *config.ProcessConfig {
	cfg := &config.ProcessConfig{
		Name:             "worker",
		Script:           "sleep",
		AutoRestart:      autoRestart,
		MaxRestarts:      maxRestarts,
		RestartDelaySecs: 1,
	}
	return cfg
}

func TestEvaluateCrash_NoAutoRestart(t *testing.T) {
	mp := &registry.ManagedProcess{Name: "worker", State: registry.StateRunning, Config: entryConfig(false, 5)}
	if evaluateCrash(mp, time.Now()) {
		t.Fatal("expected no respawn when AutoRestart is disabled")
	}
	if mp.State != registry.StateErrored {
		t.Errorf("expected state Errored, got %s", mp.State)
	}
}

func TestEvaluateCrash_QuotaExceeded(t *testing.T) {
	mp := &registry.ManagedProcess{Name: "worker", State: registry.StateRunning, Config: entryConfig(true, 1)}
	now := time.Now()
	mp.RecentRestarts = []time.Time{now, now}
	if evaluateCrash(mp, now) {
		t.Fatal("expected no respawn once the restart quota is exhausted")
	}
	if mp.State != registry.StateErrored {
		t.Errorf("expected state Errored, got %s", mp.State)
	}
}

func TestEvaluateCrash_SchedulesRestart(t *testing.T) {
	mp := &registry.ManagedProcess{Name: "worker", State: registry.StateRunning, Config: entryConfig(true, 5)}
	now := time.Now()
	if !evaluateCrash(mp, now) {
		t.Fatal("expected a scheduled respawn")
	}
	if mp.State != registry.StateRestarting {
		t.Errorf("expected state Restarting, got %s", mp.State)
	}
	if !mp.BackoffUntil.After(now) {
		t.Errorf("expected BackoffUntil to be in the future, got %v", mp.BackoffUntil)
	}
}

func TestEvaluateCrash_FromStarting(t *testing.T) {
	mp := &registry.ManagedProcess{Name: "worker", State: registry.StateStarting, Config: entryConfig(true, 5)}
	if !evaluateCrash(mp, time.Now()) {
		t.Fatal("expected a scheduled respawn for a crash during Starting")
	}
	if mp.State != registry.StateRestarting {
		t.Errorf("expected state Restarting, got %s", mp.State)
	}
}

func TestBackoffDuration_Caps(t *testing.T) {
	d := BackoffDuration(1, 10)
	if d != MaxBackoff {
		t.Errorf("expected backoff to cap at %s, got %s", MaxBackoff, d)
	}
}
