package dispatcher

import (
	"log/slog"
	"syscall"
	"time"

	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/spawner"
	"github.com/adasa/adasa/internal/supervisor"
)

// reapPollInterval is how often stopEntry polls for the child's exit while
// waiting out stop_timeout_secs.
const reapPollInterval = 100 * time.Millisecond

// stopEntry sends the entry's configured stop_signal (or KILL if force),
// arms a deadline, and polls until the process exits or the deadline
// passes, escalating to KILL on expiry. It returns once the pid has been
// reaped (or was never present), and reports whether KILL had to be used.
func (d *Dispatcher) stopEntry(mp *registry.ManagedProcess, force bool) (escalated bool) {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()

	pid := mp.Pid
	if pid == 0 {
		_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
			if m.State == registry.StateStopped {
				return
			}
			if terr := supervisor.Transition(m, registry.StateStopping); terr != nil {
				slog.Warn("rejected illegal state transition", "error", terr)
				return
			}
			if terr := supervisor.Transition(m, registry.StateStopped); terr != nil {
				slog.Warn("rejected illegal state transition", "error", terr)
			}
		})
		return false
	}

	_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
		if terr := supervisor.Transition(m, registry.StateStopping); terr != nil {
			slog.Warn("rejected illegal state transition", "error", terr)
		}
	})

	sig := syscall.SIGKILL
	if !force {
		parsed, err := spawner.ParseSignal(mp.Config.StopSignal)
		if err == nil {
			sig = parsed
		}
	}
	_ = spawner.Signal(pid, sig)

	timeout := time.Duration(mp.Config.StopTimeoutSecs) * time.Second
	if force {
		timeout = 5 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		if !processAlive(pid) {
			break
		}
		if time.Now().After(deadline) {
			escalated = true
			_ = spawner.Signal(pid, syscall.SIGKILL)
			waitForExit(pid, 5*time.Second)
			break
		}
		time.Sleep(reapPollInterval)
	}

	_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
		if terr := supervisor.Transition(m, registry.StateStopped); terr != nil {
			slog.Warn("rejected illegal state transition", "error", terr)
		}
		m.Pid = 0
		if escalated {
			m.ExitSignal = "KILL"
		}
	})
	spawner.RemoveCgroup(mp.Name)
	if d.audit != nil {
		d.audit.ProcessStop(mp.Name, pid, escalated)
	}
	return escalated
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func waitForExit(pid int, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return
		}
		time.Sleep(reapPollInterval)
	}
}

// Stop resolves a selector to one or more entries and stops each, per
// §4.7's Stop contract. It returns once every selected process has been
// reaped or declared force-killed.
func (d *Dispatcher) Stop(selector string, force bool) error {
	entries, err := d.resolveSelector(selector)
	if err != nil {
		return err
	}
	for _, mp := range entries {
		d.stopEntry(mp, force)
	}
	d.markDirty()
	return nil
}

// Delete stops (graceful then force) and removes each selected entry from
// the registry once reaped.
func (d *Dispatcher) Delete(selector string) error {
	entries, err := d.resolveSelector(selector)
	if err != nil {
		return err
	}
	for _, mp := range entries {
		d.stopEntry(mp, false)
		_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
			if terr := supervisor.Transition(m, registry.StateDeleted); terr != nil {
				slog.Warn("rejected illegal state transition", "error", terr)
			}
		})
		d.Registry.Remove(mp.ID)
	}
	d.markDirty()
	return nil
}
