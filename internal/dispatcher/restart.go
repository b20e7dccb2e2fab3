package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/supervisor"
	"github.com/adasa/adasa/internal/tracing"
)

// Restart resolves selector and either restarts every matched entry in
// place (non-rolling: stop then start, preserving id) or, if rolling is
// true, restarts the instances of a multi-instance selector one at a time
// with a health-check delay between each (§4.7).
func (d *Dispatcher) Restart(selector string, rolling bool) error {
	_, span := tracing.StartDispatchSpan(context.Background(), "restart",
		attribute.String("selector", selector), attribute.Bool("rolling", rolling))
	defer span.End()

	entries, err := d.resolveSelector(selector)
	if err != nil {
		tracing.RecordError(span, err, "selector did not resolve")
		return err
	}

	if !rolling || len(entries) == 1 {
		for _, mp := range entries {
			if err := d.restartOne(mp); err != nil {
				tracing.RecordError(span, err, "restart failed")
				return err
			}
		}
		d.markDirty()
		tracing.RecordSuccess(span)
		return nil
	}

	for _, mp := range entries {
		if err := d.restartOne(mp); err != nil {
			err = fmt.Errorf("rolling restart aborted at %s: %w", mp.Name, err)
			tracing.RecordError(span, err, "rolling restart failed")
			return err
		}

		_, checkSpan := tracing.StartRollingCheckSpan(context.Background(), mp.Name)
		time.Sleep(HealthCheckDelay)
		current := d.Registry.LookupByID(mp.ID)
		if current == nil || current.State != registry.StateRunning {
			err := fmt.Errorf("rolling restart aborted: %s did not reach Running within %s", mp.Name, HealthCheckDelay)
			tracing.RecordError(checkSpan, err, "instance did not reach Running")
			checkSpan.End()
			tracing.RecordError(span, err, "rolling restart aborted")
			return err
		}
		tracing.RecordSuccess(checkSpan)
		checkSpan.End()
	}
	d.markDirty()
	tracing.RecordSuccess(span)
	return nil
}

// restartOne stops the entry (preserving its id and config) and re-spawns
// it, the non-rolling restart contract from §4.7.
func (d *Dispatcher) restartOne(mp *registry.ManagedProcess) error {
	oldPid := mp.Pid
	d.stopEntry(mp, false)

	current := d.Registry.LookupByID(mp.ID)
	if current == nil {
		return registry.NewError(registry.KindNotFound, mp.Name)
	}

	_ = d.Registry.WithMut(current.ID, func(m *registry.ManagedProcess) {
		if terr := supervisor.Transition(m, registry.StateStarting); terr != nil {
			slog.Warn("rejected illegal state transition", "error", terr)
		}
		m.LastRestartAt = time.Now()
		m.RestartCount++
		m.ConsecutiveFailures = 0
	})

	refreshed := d.Registry.LookupByID(current.ID)
	if err := d.spawnEntry(refreshed); err != nil {
		return err
	}
	if d.audit != nil {
		d.audit.ProcessRestart(refreshed.Name, oldPid, refreshed.Pid)
	}
	return nil
}
