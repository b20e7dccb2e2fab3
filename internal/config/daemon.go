package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// DaemonConfig holds the ambient settings for the daemon process itself —
// none of this is part of the supervised-process schema in §3, it is the
// surrounding configuration every long-running service needs.
type DaemonConfig struct {
	Home              string // base directory for pid/sock/state/logs, default ~/.adasa
	LogLevel          string // debug|info|warn|error
	LogFormat         string // json|text
	MetricsEnabled    bool
	MetricsPort       int
	MetricsPath       string
	TracingEnabled    bool
	TracingEndpoint   string // OTLP gRPC endpoint; empty means stdout exporter
	CheckpointSeconds int    // persistence checkpoint cadence; not read by the daemon, which writes the snapshot only at shutdown
	RestartWindowSecs int    // sliding window for recent_restarts, §4.4/§9(a)
}

// DefaultDaemonConfig returns the documented defaults, overridable by flags
// or the ADASA_* environment variables applied in ApplyEnvOverrides.
func DefaultDaemonConfig() *DaemonConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &DaemonConfig{
		Home:              filepath.Join(home, ".adasa"),
		LogLevel:          "info",
		LogFormat:         "text",
		MetricsEnabled:    false,
		MetricsPort:       9090,
		MetricsPath:       "/metrics",
		TracingEnabled:    false,
		CheckpointSeconds: 30,
		RestartWindowSecs: 60,
	}
}

// ApplyEnvOverrides layers ADASA_* environment variables on top of the
// defaults, mirroring the teacher's PHPEEK_PM_GLOBAL_* override convention
// but scoped to the daemon's much smaller settings surface.
func (d *DaemonConfig) ApplyEnvOverrides() {
	if v := os.Getenv("ADASA_HOME"); v != "" {
		d.Home = v
	}
	if v := os.Getenv("ADASA_LOG_LEVEL"); v != "" {
		d.LogLevel = v
	}
	if v := os.Getenv("ADASA_LOG_FORMAT"); v != "" {
		d.LogFormat = v
	}
	if v := os.Getenv("ADASA_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			d.MetricsPort = n
		}
	}
	if v := os.Getenv("ADASA_TRACING_ENDPOINT"); v != "" {
		d.TracingEndpoint = v
		d.TracingEnabled = true
	}
}

func (d *DaemonConfig) PidFile() string     { return filepath.Join(d.Home, "adasa.pid") }
func (d *DaemonConfig) SocketPath() string  { return filepath.Join(d.Home, "adasa.sock") }
func (d *DaemonConfig) StatePath() string   { return filepath.Join(d.Home, "state.json") }
func (d *DaemonConfig) LogsDir() string     { return filepath.Join(d.Home, "logs") }
func (d *DaemonConfig) EnsureDirs() error {
	if err := os.MkdirAll(d.Home, 0o700); err != nil {
		return err
	}
	return os.MkdirAll(d.LogsDir(), 0o700)
}
