package dispatcher

import (
	"log/slog"

	"github.com/adasa/adasa/internal/metrics"
	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/supervisor"
)

// Respawn re-spawns a Restarting entry whose backoff has elapsed. It
// satisfies supervisor.Respawner so the daemon bootstrap can wire the
// supervisor loop directly to the dispatcher without either package
// importing the other's concrete type beyond this function value.
// RestartCount is incremented here rather than at crash-detection time,
// since it counts actual restarts, not every crash (a crash that exhausts
// the restart quota and lands in Errored never reaches this function).
func (d *Dispatcher) Respawn(mp *registry.ManagedProcess) {
	_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
		if terr := supervisor.Transition(m, registry.StateStarting); terr != nil {
			slog.Warn("rejected illegal state transition", "error", terr)
		}
		m.RestartCount++
	})

	live := d.Registry.LookupByID(mp.ID)
	if live == nil {
		return
	}
	if err := d.spawnEntry(live); err != nil {
		slog.Error("respawn failed", "name", mp.Name, "id", mp.ID, "error", err)
		return
	}
	d.markDirty()
}

// EnforceLimit applies mp.Config.LimitAction to an entry the monitor found
// over a configured resource limit. It satisfies supervisor.LimitEnforcer.
func (d *Dispatcher) EnforceLimit(mp *registry.ManagedProcess, kind monitor.ViolationKind) {
	metrics.RecordLimitViolation(mp.Name, string(kind))

	action := "log"
	if mp.Config != nil && mp.Config.LimitAction != "" {
		action = mp.Config.LimitAction
	}

	switch action {
	case "restart":
		slog.Warn("limit violation, restarting", "name", mp.Name, "kind", kind)
		if err := d.Restart(mp.Name, false); err != nil {
			slog.Error("limit-triggered restart failed", "name", mp.Name, "error", err)
		}
	case "stop":
		slog.Warn("limit violation, stopping", "name", mp.Name, "kind", kind)
		if err := d.Stop(mp.Name, false); err != nil {
			slog.Error("limit-triggered stop failed", "name", mp.Name, "error", err)
		}
	default:
		slog.Warn("limit violation", "name", mp.Name, "kind", kind)
	}
}
