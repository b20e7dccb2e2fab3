// Package audit provides structured audit logging for the daemon's process
// lifecycle and configuration events, independent of the regular diagnostic
// logger so audit trails can be filtered and retained separately.
package audit

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event.
type EventType string

const (
	EventProcessStart   EventType = "process.start"
	EventProcessStop    EventType = "process.stop"
	EventProcessRestart EventType = "process.restart"
	EventProcessCrash   EventType = "process.crash"

	EventConfigLoad   EventType = "config.load"
	EventConfigReload EventType = "config.reload"

	EventDaemonStart    EventType = "daemon.start"
	EventDaemonShutdown EventType = "daemon.shutdown"
)

// Status represents the outcome of an audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Resource represents what was affected by the action.
type Resource struct {
	Type string `json:"type"` // "process", "config", "daemon"
	ID   string `json:"id"`
}

// Event represents a single audit log entry. ID is a fresh opaque token per
// event, letting retained audit logs be cross-referenced even across
// daemon restarts where timestamps alone could collide.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Action    string                 `json:"action"`
	Resource  Resource               `json:"resource"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Logger provides structured audit logging over the daemon's process
// lifecycle and configuration events.
type Logger struct {
	logger  *slog.Logger
	enabled bool
}

// NewLogger creates an audit logger. When enabled is false every event
// method (Log and the helpers built on it) is a no-op, letting the daemon keep call sites unconditional.
func NewLogger(log *slog.Logger, enabled bool) *Logger {
	return &Logger{
		logger:  log.With("subsystem", "audit"),
		enabled: enabled,
	}
}

// Log emits a single audit event.
func (l *Logger) Log(event Event) {
	if !l.enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	eventJSON, _ := json.Marshal(event)

	args := []any{
		"id", event.ID,
		"event_type", event.EventType,
		"action", event.Action,
		"resource", event.Resource.ID,
		"status", event.Status,
		"message", event.Message,
		"event_json", string(eventJSON),
	}
	if event.Status == StatusError {
		l.logger.Error("audit_event", args...)
		return
	}
	l.logger.Info("audit_event", args...)
}

// ProcessStart records a successful spawn.
func (l *Logger) ProcessStart(name string, pid int) {
	l.Log(Event{
		EventType: EventProcessStart,
		Action:    "start",
		Resource:  Resource{Type: "process", ID: name},
		Status:    StatusSuccess,
		Message:   "process started",
		Context:   map[string]interface{}{"pid": pid},
	})
}

// ProcessStop records a stop command's outcome, noting whether the stop
// deadline was exceeded and SIGKILL had to be used.
func (l *Logger) ProcessStop(name string, pid int, escalated bool) {
	status := StatusSuccess
	msg := "process stopped"
	if escalated {
		status = StatusError
		msg = "process stop escalated to SIGKILL after deadline"
	}
	l.Log(Event{
		EventType: EventProcessStop,
		Action:    "stop",
		Resource:  Resource{Type: "process", ID: name},
		Status:    status,
		Message:   msg,
		Context:   map[string]interface{}{"pid": pid, "escalated": escalated},
	})
}

// ProcessCrash records an unexpected exit detected by the supervisor loop.
func (l *Logger) ProcessCrash(name string, pid int, exitCode int, signal string) {
	l.Log(Event{
		EventType: EventProcessCrash,
		Action:    "crash",
		Resource:  Resource{Type: "process", ID: name},
		Status:    StatusError,
		Message:   "process exited unexpectedly",
		Context: map[string]interface{}{
			"pid":       pid,
			"exit_code": exitCode,
			"signal":    signal,
		},
	})
}

// ProcessRestart records a restart, automatic or client-issued.
func (l *Logger) ProcessRestart(name string, oldPID, newPID int) {
	l.Log(Event{
		EventType: EventProcessRestart,
		Action:    "restart",
		Resource:  Resource{Type: "process", ID: name},
		Status:    StatusSuccess,
		Message:   "process restarted",
		Context:   map[string]interface{}{"old_pid": oldPID, "new_pid": newPID},
	})
}

// ConfigLoad records an initial config load at daemon start or via
// start_from_config.
func (l *Logger) ConfigLoad(path string, processCount int) {
	l.Log(Event{
		EventType: EventConfigLoad,
		Action:    "load",
		Resource:  Resource{Type: "config", ID: path},
		Status:    StatusSuccess,
		Message:   "configuration loaded",
		Context:   map[string]interface{}{"process_count": processCount},
	})
}

// ConfigReload records a reload_config command's additive result.
func (l *Logger) ConfigReload(path string, added, existing int) {
	l.Log(Event{
		EventType: EventConfigReload,
		Action:    "reload",
		Resource:  Resource{Type: "config", ID: path},
		Status:    StatusSuccess,
		Message:   "configuration reloaded",
		Context:   map[string]interface{}{"added": added, "existing": existing},
	})
}

// DaemonStart records daemon startup.
func (l *Logger) DaemonStart(version string) {
	l.Log(Event{
		EventType: EventDaemonStart,
		Action:    "start",
		Resource:  Resource{Type: "daemon", ID: "adasa"},
		Status:    StatusSuccess,
		Message:   "daemon started",
		Context:   map[string]interface{}{"version": version},
	})
}

// DaemonShutdown records daemon shutdown, graceful or not.
func (l *Logger) DaemonShutdown(reason string, graceful bool) {
	status := StatusSuccess
	if !graceful {
		status = StatusError
	}
	l.Log(Event{
		EventType: EventDaemonShutdown,
		Action:    "shutdown",
		Resource:  Resource{Type: "daemon", ID: "adasa"},
		Status:    status,
		Message:   "daemon shutdown",
		Context:   map[string]interface{}{"reason": reason, "graceful": graceful},
	})
}
