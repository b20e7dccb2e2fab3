// Package config loads process definitions and daemon settings from TOML
// or JSON files, expanding environment variable references at load time.
package config

import "fmt"

// ProcessConfig is the immutable declaration of a process to be supervised.
// It is produced by the config loader and handed to the dispatcher, which
// turns it into one or more ManagedProcess registry entries.
type ProcessConfig struct {
	Name             string            `toml:"name" json:"name"`
	Script           string            `toml:"script" json:"script"`
	Args             []string          `toml:"args" json:"args"`
	Cwd              string            `toml:"cwd" json:"cwd,omitempty"`
	Env              map[string]string `toml:"env" json:"env,omitempty"`
	Instances        int               `toml:"instances" json:"instances"`
	AutoRestart      bool              `toml:"autorestart" json:"autorestart"`
	MaxRestarts      int               `toml:"max_restarts" json:"max_restarts"`
	RestartDelaySecs int               `toml:"restart_delay_secs" json:"restart_delay_secs"`
	MaxMemory        int64             `toml:"max_memory" json:"max_memory,omitempty"` // bytes, 0 = unlimited
	MaxCPU           int               `toml:"max_cpu" json:"max_cpu,omitempty"`       // percent of one core, 1-100, 0 = unlimited
	LimitAction      string            `toml:"limit_action" json:"limit_action"`       // log | restart | stop
	StopSignal       string            `toml:"stop_signal" json:"stop_signal"`         // TERM|INT|QUIT|HUP|USR1|USR2
	StopTimeoutSecs  int               `toml:"stop_timeout_secs" json:"stop_timeout_secs"`
}

// validStopSignals mirrors §3 of the process-config schema: KILL is reachable
// only through a forced stop, never as a configured graceful signal.
var validStopSignals = map[string]bool{
	"TERM": true, "INT": true, "QUIT": true, "HUP": true, "USR1": true, "USR2": true,
}

var validLimitActions = map[string]bool{"log": true, "restart": true, "stop": true}

// SetDefaults fills in zero-valued fields with the documented defaults.
func (p *ProcessConfig) SetDefaults() {
	if p.Instances == 0 {
		p.Instances = 1
	}
	if p.RestartDelaySecs == 0 {
		p.RestartDelaySecs = 1
	}
	if p.LimitAction == "" {
		p.LimitAction = "log"
	}
	if p.StopSignal == "" {
		p.StopSignal = "TERM"
	}
	if p.StopTimeoutSecs == 0 {
		p.StopTimeoutSecs = 10
	}
}

// Validate rejects a config before any spawn is attempted, per the
// ValidationFailed{field, reason} error kind.
func (p *ProcessConfig) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Script == "" {
		return &ValidationError{Field: "script", Reason: "must not be empty"}
	}
	if p.Instances < 1 || p.Instances > 100 {
		return &ValidationError{Field: "instances", Reason: "must be between 1 and 100"}
	}
	if p.MaxRestarts < 0 {
		return &ValidationError{Field: "max_restarts", Reason: "must be >= 0"}
	}
	if p.MaxCPU != 0 && (p.MaxCPU < 1 || p.MaxCPU > 100) {
		return &ValidationError{Field: "max_cpu", Reason: "must be between 1 and 100"}
	}
	if p.MaxMemory < 0 {
		return &ValidationError{Field: "max_memory", Reason: "must be >= 0"}
	}
	if !validLimitActions[p.LimitAction] {
		return &ValidationError{Field: "limit_action", Reason: "must be one of log, restart, stop"}
	}
	if !validStopSignals[p.StopSignal] {
		return &ValidationError{Field: "stop_signal", Reason: "must be one of TERM, INT, QUIT, HUP, USR1, USR2"}
	}
	if p.Cwd != "" {
		if err := checkDirExists(p.Cwd); err != nil {
			return &ValidationError{Field: "cwd", Reason: err.Error()}
		}
	}
	return nil
}

// ValidationError reports a single rejected field, matching the core's
// ValidationFailed{field, reason} error kind.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: field %q: %s", e.Field, e.Reason)
}

// multiDocument is the "processes" key form of a multi-process config file.
type multiDocument struct {
	Processes []*ProcessConfig `toml:"processes" json:"processes"`
}
