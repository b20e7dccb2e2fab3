// Package shutdown implements the Signal/Shutdown Coordinator (§4.8):
// it waits for a termination signal or a client-issued daemon_shutdown
// request, then stops every managed process, persists a final snapshot,
// and closes any registered closers — grounded on the teacher's
// waitForShutdown/performGracefulShutdown flow in cmd/phpeek-pm/serve.go,
// generalized from a fixed process.Manager to the registry/dispatcher pair.
package shutdown

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adasa/adasa/internal/audit"
	"github.com/adasa/adasa/internal/dispatcher"
	"github.com/adasa/adasa/internal/metrics"
	"github.com/adasa/adasa/internal/persistence"
	"github.com/adasa/adasa/internal/registry"
)

// Closer is anything the coordinator must shut down alongside the
// processes themselves. The daemon registers none; it closes the IPC
// listener itself once Wait returns.
type Closer interface {
	Close() error
}

// Coordinator owns the termination signal channel and the client-issued
// request channel, and carries out the full stop-everything-then-persist
// sequence exactly once.
type Coordinator struct {
	reg        *registry.Registry
	dispatcher *dispatcher.Dispatcher
	statePath  string
	audit      *audit.Logger
	closers    []Closer

	sigCh        chan os.Signal
	requestCh    chan string
	stopDeadline time.Duration
}

// New creates a Coordinator that will stop every entry in reg via d, persist
// a final snapshot to statePath, and close every closer, once triggered.
func New(reg *registry.Registry, d *dispatcher.Dispatcher, statePath string, auditLogger *audit.Logger, closers ...Closer) *Coordinator {
	return &Coordinator{
		reg:          reg,
		dispatcher:   d,
		statePath:    statePath,
		audit:        auditLogger,
		closers:      closers,
		sigCh:        make(chan os.Signal, 1),
		requestCh:    make(chan string, 1),
		stopDeadline: 30 * time.Second,
	}
}

// Notify arms the OS signal handler for SIGTERM/SIGINT/SIGQUIT.
func (c *Coordinator) Notify() {
	signal.Notify(c.sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
}

// RequestShutdown lets a client-facing handler (the IPC server's
// daemon_shutdown command) trigger the same sequence a signal would. Safe to
// call more than once; only the first call is honored.
func (c *Coordinator) RequestShutdown(reason string) {
	select {
	case c.requestCh <- reason:
	default:
	}
}

// Wait blocks until a signal arrives or RequestShutdown is called, then runs
// the graceful shutdown sequence and returns the reason it happened.
func (c *Coordinator) Wait() string {
	var reason string
	select {
	case sig := <-c.sigCh:
		reason = "signal: " + sig.String()
	case r := <-c.requestCh:
		reason = r
	}

	slog.Info("initiating graceful shutdown", "reason", reason)
	start := time.Now()
	c.shutdownAll()
	metrics.RecordShutdownDuration(time.Since(start).Seconds())
	return reason
}

// shutdownAll stops every managed process (each respecting its own
// stop_signal/stop_timeout_secs), persists a final snapshot, and closes
// every registered closer, per §4.8 and §4.9. Processes are stopped one
// after another. stopDeadline is checked before each stop: once it has
// passed, a warning is logged, but every remaining process is still stopped
// in turn, each bounded only by its own stop_timeout_secs.
func (c *Coordinator) shutdownAll() {
	deadline := time.Now().Add(c.stopDeadline)
	for _, mp := range c.reg.List() {
		if mp.State == registry.StateStopped || mp.State == registry.StateDeleted {
			continue
		}
		if time.Now().After(deadline) {
			slog.Warn("shutdown deadline exceeded, leaving remaining processes to their own stop timeout", "name", mp.Name)
		}
		if err := c.dispatcher.Stop(mp.Name, false); err != nil {
			slog.Warn("error stopping process during shutdown", "name", mp.Name, "error", err)
		}
	}

	snap := persistence.Build(c.reg)
	if err := persistence.Write(c.statePath, snap); err != nil {
		slog.Error("failed to persist final snapshot", "error", err)
	}

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			slog.Warn("error closing shutdown resource", "error", err)
		}
	}

	if c.audit != nil {
		c.audit.DaemonShutdown("graceful", true)
	}
	slog.Info("shutdown complete")
}
