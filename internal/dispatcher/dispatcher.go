// Package dispatcher implements the Command Dispatcher: the single entry
// point client requests go through to mutate the registry, per §4.7. Every
// command acquires the registry lock only long enough to read or mutate
// entries; blocking I/O (signal delivery, waiting for exit) always happens
// outside the lock.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adasa/adasa/internal/audit"
	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/logcapture"
	"github.com/adasa/adasa/internal/metrics"
	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/spawner"
	"github.com/adasa/adasa/internal/supervisor"
	"github.com/adasa/adasa/internal/tracing"
)

// HealthCheckDelay is the wait between starting a rolling-restart
// replacement instance and checking it reached Running, per §4.7.
const HealthCheckDelay = 3 * time.Second

// Dispatcher owns the registry and every collaborator needed to carry out a
// command: the spawner, the monitor, the log sink, and the audit trail.
type Dispatcher struct {
	Registry *registry.Registry

	mon       *monitor.Monitor
	logDir    string
	logBuffer *logcapture.RingBuffer
	audit     *audit.Logger

	// stopMu serializes graceful-stop sequences so the supervisor loop's
	// limit-action stop/restart path and a client-issued Stop/Restart never
	// race over the same entry's deadline escalation.
	stopMu sync.Mutex

	// dirty is set whenever a mutating command or loop tick changes
	// registry state and cleared by ConsumeDirty. No periodic checkpoint
	// reads it: the snapshot is written only by the shutdown coordinator.
	dirty bool
	mu    sync.Mutex
}

func New(reg *registry.Registry, mon *monitor.Monitor, logDir string, logBuffer *logcapture.RingBuffer, auditLogger *audit.Logger) *Dispatcher {
	return &Dispatcher{Registry: reg, mon: mon, logDir: logDir, logBuffer: logBuffer, audit: auditLogger}
}

func (d *Dispatcher) markDirty() {
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
}

// ConsumeDirty reports whether anything changed since the last call and
// resets the flag. Nothing in the daemon calls it at present.
func (d *Dispatcher) ConsumeDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.dirty
	d.dirty = false
	return v
}

// StartedInstance is one (id, name) pair returned by Start.
type StartedInstance struct {
	ID   uint64
	Name string
}

// StartResult reports which instances started and which failed, since
// partial failure in a multi-instance start does not roll back the rest.
// Failed holds error strings rather than error values so the result survives
// a round trip over the IPC wire intact.
type StartResult struct {
	Started []StartedInstance
	Failed  map[string]string
}

// Start validates cfg, then creates and spawns one registry entry per
// configured instance, per §4.7.
func (d *Dispatcher) Start(cfg *config.ProcessConfig) (*StartResult, error) {
	_, span := tracing.StartDispatchSpan(context.Background(), "start",
		attribute.String("process.name", cfg.Name), attribute.Int("process.instances", cfg.Instances))
	defer span.End()

	if err := cfg.Validate(); err != nil {
		tracing.RecordError(span, err, "config validation failed")
		return nil, registry.Wrap(registry.KindValidationFailed, "start", err)
	}

	result := &StartResult{Failed: make(map[string]string)}
	for i := 0; i < cfg.Instances; i++ {
		name := instanceName(cfg.Name, cfg.Instances, i)
		mp, err := d.Registry.Create(name, cfg, cfg.Name, i)
		if err != nil {
			result.Failed[name] = err.Error()
			continue
		}
		if err := d.spawnEntry(mp); err != nil {
			result.Failed[name] = err.Error()
			_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
				if terr := supervisor.Transition(m, registry.StateErrored); terr != nil {
					slog.Warn("rejected illegal state transition", "error", terr)
				}
			})
			continue
		}
		result.Started = append(result.Started, StartedInstance{ID: mp.ID, Name: name})
	}
	d.markDirty()
	if len(result.Failed) == 0 {
		tracing.RecordSuccess(span)
	} else {
		tracing.AddEvent(span, "partial_start_failure", attribute.Int("failed.count", len(result.Failed)))
	}
	return result, nil
}

func instanceName(base string, instances, index int) string {
	if instances <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, index)
}

// spawnEntry performs the actual fork/exec for a freshly-created entry and
// records the resulting pid, transitioning Starting -> Running as soon as
// the spawn itself succeeds. No liveness sample is taken before the entry
// is marked Running; the supervisor loop never promotes Starting entries.
func (d *Dispatcher) spawnEntry(mp *registry.ManagedProcess) error {
	stdout, stdoutErr := logcapture.Open(d.logDir, mp.Name, "stdout", d.logBuffer)
	stderr, stderrErr := logcapture.Open(d.logDir, mp.Name, "stderr", d.logBuffer)
	stdio := spawner.Stdio{}
	if stdoutErr == nil {
		stdio.Stdout = stdout
	}
	if stderrErr == nil {
		stdio.Stderr = stderr
	}

	handle, err := spawner.Spawn(mp.Config, mp.Name, stdio)
	if err != nil {
		_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
			if terr := supervisor.Transition(m, registry.StateErrored); terr != nil {
				slog.Warn("rejected illegal state transition", "error", terr)
			}
		})
		return err
	}
	for _, w := range handle.Warnings {
		slog.Warn("resource limit not applied", "process", mp.Name, "error", w)
	}

	now := time.Now()
	_ = d.Registry.WithMut(mp.ID, func(m *registry.ManagedProcess) {
		m.Pid = handle.Pid
		m.SpawnedAt = now
		if terr := supervisor.Transition(m, registry.StateRunning); terr != nil {
			slog.Warn("rejected illegal state transition", "error", terr)
		}
	})
	if d.audit != nil {
		d.audit.ProcessStart(mp.Name, handle.Pid)
	}
	metrics.RecordProcessStart(mp.Name, float64(now.Unix()))
	metrics.SetRegistrySize(len(d.Registry.Snapshot()))

	go d.awaitExit(mp.ID, handle)
	return nil
}

// awaitExit blocks on the child's exit in its own goroutine so no command
// or loop tick ever blocks on a live process; the exit is reflected into the
// registry strictly as a state update, picked up by the next monitor tick.
func (d *Dispatcher) awaitExit(id uint64, handle *spawner.Handle) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("awaitExit panicked", "panic", r)
		}
	}()
	err := handle.Cmd.Wait()
	exitCode, exitSignal := exitDetails(err)
	var name string
	_ = d.Registry.WithMut(id, func(mp *registry.ManagedProcess) {
		mp.ExitCode = exitCode
		mp.ExitSignal = exitSignal
		mp.Pid = 0
		if mp.State != registry.StateStopping && mp.State != registry.StateDeleted {
			// Unexpected exit: leave the transition to the supervisor loop's
			// crash-detection pass so backoff/quota bookkeeping stays in one
			// place (§4.4).
			mp.LastExitAt = time.Now()
		}
		name = mp.Name
	})
	metrics.RecordProcessStop(name, exitCode)
}
