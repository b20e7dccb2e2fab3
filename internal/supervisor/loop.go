package supervisor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/tracing"
)

// TickInterval is the crash-detection cadence from §4.6.
const TickInterval = 500 * time.Millisecond

// StatsInterval is the interleaved stats/limit-check cadence from §4.6.
const StatsInterval = 2 * time.Second

// Respawner re-spawns a Restarting entry whose backoff has elapsed.
type Respawner func(mp *registry.ManagedProcess)

// LimitEnforcer applies limit_action (log/restart/stop) to an entry that has
// exceeded a configured resource limit.
type LimitEnforcer func(mp *registry.ManagedProcess, kind monitor.ViolationKind)

// CrashRecorder is notified once per detected crash, after the registry has
// been updated, so the caller can append an audit entry without the
// supervisor package needing to import the audit package.
type CrashRecorder func(mp *registry.ManagedProcess, exitCode int, exitSignal string)

// Loop is the single periodic task that drives crash detection,
// backoff-scheduled restarts, and resource-limit checks (§4.6). It holds no
// state of its own beyond timing — every mutation goes through the
// registry, so the loop and command handlers may interleave freely.
type Loop struct {
	reg     *registry.Registry
	mon     *monitor.Monitor
	respawn Respawner
	enforce LimitEnforcer
	onCrash CrashRecorder
}

func NewLoop(reg *registry.Registry, mon *monitor.Monitor, respawn Respawner, enforce LimitEnforcer) *Loop {
	return &Loop{reg: reg, mon: mon, respawn: respawn, enforce: enforce}
}

// OnCrash registers a callback invoked whenever the loop detects a process
// exited on its own. Optional; nil means no notification.
func (l *Loop) OnCrash(fn CrashRecorder) {
	l.onCrash = fn
}

// Run blocks until ctx is cancelled, firing ticks on TickInterval with a
// "skip missed ticks" policy: time.Ticker already drops ticks a slow
// consumer cannot keep up with, which is exactly the correctness-preserving
// behavior §4.6 calls for since every tick body is idempotent.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	lastStats := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.tick(now, &lastStats)
		}
	}
}

func (l *Loop) tick(now time.Time, lastStats *time.Time) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("supervisor loop tick panicked", "panic", r)
		}
	}()

	// Step 1: detect_crashes, then transition each crashed entry.
	alive := l.mon.RefreshAll()
	for _, ev := range l.mon.DetectCrashes(alive) {
		l.handleCrash(ev.ID, now)
	}

	// Step 2: re-spawn anything whose backoff has elapsed.
	for _, mp := range l.reg.Snapshot() {
		if mp.State == registry.StateRestarting && !mp.BackoffUntil.After(now) {
			l.respawn(mp)
		}
	}

	// Step 3: every 2s, refresh stats and check limits.
	if now.Sub(*lastStats) >= StatsInterval {
		*lastStats = now
		l.mon.UpdateAllStats()
		for _, mp := range l.reg.Snapshot() {
			if mp.State != registry.StateRunning {
				continue
			}
			for _, kind := range l.mon.CheckLimits(mp) {
				l.recordViolation(mp.ID, kind)
				l.enforce(mp, kind)
			}
		}
	}
}

func (l *Loop) handleCrash(id uint64, now time.Time) {
	_, span := tracing.StartSupervisorSpan(context.Background(), "", "detect_crash",
		attribute.Int64("process.id", int64(id)))
	defer span.End()

	var shouldRespawn bool
	var mp *registry.ManagedProcess
	err := l.reg.WithMut(id, func(m *registry.ManagedProcess) {
		m.LastExitAt = now
		shouldRespawn = evaluateCrash(m, now)
		mp = m
	})
	if err != nil || mp == nil {
		// The entry was removed (e.g. deleted) between crash detection and
		// this tick; nothing left to restart or report on.
		return
	}
	tracing.SetAttributes(span, attribute.String("process.name", mp.Name), attribute.Bool("will_respawn", shouldRespawn))
	if shouldRespawn {
		slog.Info("process crashed, scheduled for restart", "id", id, "name", mp.Name, "backoff_until", mp.BackoffUntil)
	} else {
		slog.Warn("process crashed, restart quota exhausted or autorestart disabled", "id", id, "name", mp.Name)
		tracing.AddEvent(span, "restart_quota_exhausted_or_disabled")
	}
	if l.onCrash != nil {
		l.onCrash(mp, mp.ExitCode, mp.ExitSignal)
	}
}

func (l *Loop) recordViolation(id uint64, kind monitor.ViolationKind) {
	_ = l.reg.WithMut(id, func(mp *registry.ManagedProcess) {
		switch kind {
		case monitor.ViolationMemory:
			mp.Violations.MemoryCount++
		case monitor.ViolationCPU:
			mp.Violations.CPUCount++
		}
	})
}
