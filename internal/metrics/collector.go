// Package metrics exposes the daemon's Prometheus collectors, grounded on
// the teacher's internal/metrics package, trimmed to the registry/
// supervisor/resource-limit concerns Adasa actually has (no HTTP API,
// health-check, hook, or scheduled-task metrics — those domains don't
// exist here).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProcessUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adasa_process_up",
			Help: "Process status (1=running, 0=stopped)",
		},
		[]string{"name"},
	)

	ProcessRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adasa_process_restarts_total",
			Help: "Total number of process restarts",
		},
		[]string{"name", "reason"}, // reason: crash, manual, rolling
	)

	ProcessStartTime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adasa_process_start_time_seconds",
			Help: "Unix timestamp when process started",
		},
		[]string{"name"},
	)

	ProcessLastExitCode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adasa_process_last_exit_code",
			Help: "Last exit code of process",
		},
		[]string{"name"},
	)

	ProcessCPUPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adasa_process_cpu_percent",
			Help: "Process CPU usage percentage",
		},
		[]string{"name"},
	)

	ProcessMemoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adasa_process_memory_bytes",
			Help: "Process resident memory usage in bytes",
		},
		[]string{"name"},
	)

	ResourceLimitViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adasa_resource_limit_violations_total",
			Help: "Total resource-limit violations observed",
		},
		[]string{"name", "kind"}, // kind: memory, cpu
	)

	RegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adasa_registry_size",
			Help: "Total number of non-deleted managed processes",
		},
	)

	DaemonStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adasa_daemon_start_time_seconds",
			Help: "Unix timestamp when the daemon started",
		},
	)

	ShutdownDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adasa_shutdown_duration_seconds",
			Help:    "Duration of graceful shutdown",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adasa_build_info",
			Help: "Adasa build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordProcessStart records a process start event.
func RecordProcessStart(name string, startTime float64) {
	ProcessUp.WithLabelValues(name).Set(1)
	ProcessStartTime.WithLabelValues(name).Set(startTime)
}

// RecordProcessStop records a process stop event.
func RecordProcessStop(name string, exitCode int) {
	ProcessUp.WithLabelValues(name).Set(0)
	ProcessLastExitCode.WithLabelValues(name).Set(float64(exitCode))
}

// RecordProcessRestart records a restart and its trigger.
func RecordProcessRestart(name, reason string) {
	ProcessRestarts.WithLabelValues(name, reason).Inc()
}

// RecordResourceSample updates the CPU/memory gauges for name.
func RecordResourceSample(name string, cpuPercent float64, memoryBytes uint64) {
	ProcessCPUPercent.WithLabelValues(name).Set(cpuPercent)
	ProcessMemoryBytes.WithLabelValues(name).Set(float64(memoryBytes))
}

// RecordLimitViolation increments the violation counter for a limit kind.
func RecordLimitViolation(name, kind string) {
	ResourceLimitViolations.WithLabelValues(name, kind).Inc()
}

// SetRegistrySize sets the current registry size gauge.
func SetRegistrySize(count int) {
	RegistrySize.Set(float64(count))
}

// SetDaemonStartTime records when the daemon came up.
func SetDaemonStartTime(startTime float64) {
	DaemonStartTime.Set(startTime)
}

// RecordShutdownDuration records how long a graceful shutdown took.
func RecordShutdownDuration(seconds float64) {
	ShutdownDuration.Observe(seconds)
}

// SetBuildInfo sets the build-info gauge to 1 for the running version.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
