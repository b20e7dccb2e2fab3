package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adasa/adasa/internal/audit"
	"github.com/adasa/adasa/internal/dispatcher"
	"github.com/adasa/adasa/internal/ipc"
	"github.com/adasa/adasa/internal/logcapture"
	"github.com/adasa/adasa/internal/logx"
	"github.com/adasa/adasa/internal/metrics"
	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/persistence"
	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/shutdown"
	"github.com/adasa/adasa/internal/signals"
	"github.com/adasa/adasa/internal/supervisor"
	"github.com/adasa/adasa/internal/tracing"
	"github.com/adasa/adasa/internal/watcher"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the adasa daemon itself",
}

var (
	daemonLogLevel        string
	daemonLogFormat       string
	daemonConfigPath      string
	daemonWatch           bool
	daemonBackground      bool
	daemonMetricsEnabled  bool
	daemonMetricsPort     int
	daemonTracingEnabled  bool
	daemonTracingEndpoint string
)

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the supervisor daemon",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running daemon to shut down gracefully",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newClient().DaemonShutdown()
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is reachable and how many processes it manages",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().DaemonStatus()
		if err != nil {
			return err
		}
		fmt.Printf("status: %s\nprocesses: %d\n", status.Status, status.Count)
		return nil
	},
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the daemon process itself (shutdown, then relaunch in the background)",
	RunE:  runDaemonRestart,
}

func init() {
	daemonStartCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "debug|info|warn|error")
	daemonStartCmd.Flags().StringVar(&daemonLogFormat, "log-format", "text", "text|json")
	daemonStartCmd.Flags().StringVarP(&daemonConfigPath, "config", "c", "", "process config file to load at startup")
	daemonStartCmd.Flags().BoolVar(&daemonWatch, "watch", false, "reload --config additively whenever it changes on disk")
	daemonStartCmd.Flags().BoolVar(&daemonBackground, "background", false, "detach and run the daemon in the background")
	daemonStartCmd.Flags().BoolVar(&daemonMetricsEnabled, "metrics", false, "serve Prometheus metrics on localhost")
	daemonStartCmd.Flags().IntVar(&daemonMetricsPort, "metrics-port", 0, "metrics port (default from daemon config)")
	daemonStartCmd.Flags().BoolVar(&daemonTracingEnabled, "tracing", false, "emit OpenTelemetry traces")
	daemonStartCmd.Flags().StringVar(&daemonTracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint; empty uses the stdout exporter")

	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonRestartCmd)
}

// runDaemonStart is the supervisor daemon's entire bootstrap sequence:
// config, logging, persisted state restore, the registry/monitor/dispatcher/
// supervisor stack, the IPC and metrics listeners, and the shutdown wait.
// When --background is set, it re-execs itself detached and returns
// immediately instead of running the sequence itself.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	if daemonBackground {
		childArgs := make([]string, 0, len(os.Args)-1)
		for _, a := range os.Args[1:] {
			if a != "--background" {
				childArgs = append(childArgs, a)
			}
		}
		return relaunchDetached(childArgs)
	}

	dcfg := daemonConfig()
	dcfg.LogLevel = daemonLogLevel
	dcfg.LogFormat = daemonLogFormat
	if daemonMetricsEnabled {
		dcfg.MetricsEnabled = true
	}
	if daemonMetricsPort != 0 {
		dcfg.MetricsPort = daemonMetricsPort
	}
	if daemonTracingEnabled {
		dcfg.TracingEnabled = true
	}
	if daemonTracingEndpoint != "" {
		dcfg.TracingEndpoint = daemonTracingEndpoint
		dcfg.TracingEnabled = true
	}

	if err := dcfg.EnsureDirs(); err != nil {
		return fmt.Errorf("prepare %s: %w", dcfg.Home, err)
	}

	log := logx.New(dcfg.LogLevel, dcfg.LogFormat)
	slog.SetDefault(log)

	if err := writePidFile(dcfg.PidFile()); err != nil {
		return err
	}
	defer os.Remove(dcfg.PidFile())

	auditLogger := audit.NewLogger(log, true)

	snap, err := persistence.Read(dcfg.StatePath())
	if err != nil {
		return fmt.Errorf("read persisted state: %w", err)
	}
	reg := registry.New(snap.NextID)
	restoreSnapshot(reg, snap, log)

	mon := monitor.New(reg)
	logBuffer := logcapture.NewRingBuffer(1024)
	d := dispatcher.New(reg, mon, dcfg.LogsDir(), logBuffer, auditLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceExporter := "stdout"
	if dcfg.TracingEndpoint != "" {
		traceExporter = "otlp-grpc"
	}
	tracingProvider, err := tracing.NewProvider(ctx, tracing.TracerConfig{
		Enabled:     dcfg.TracingEnabled,
		Exporter:    traceExporter,
		Endpoint:    dcfg.TracingEndpoint,
		SampleRate:  1.0,
		ServiceName: "adasa",
		Version:     version,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracingProvider.Shutdown(context.Background())

	loop := supervisor.NewLoop(reg, mon, d.Respawn, d.EnforceLimit)
	loop.OnCrash(func(mp *registry.ManagedProcess, exitCode int, exitSignal string) {
		auditLogger.ProcessCrash(mp.Name, mp.Pid, exitCode, exitSignal)
		metrics.RecordProcessRestart(mp.Name, "crash")
	})
	go loop.Run(ctx)

	if signals.IsPID1() {
		go signals.ReapZombies(2 * time.Second)
	}

	var metricsServer *metrics.Server
	if dcfg.MetricsEnabled {
		metricsServer = metrics.NewServer(dcfg.MetricsPort, dcfg.MetricsPath, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		metrics.SetBuildInfo(version, "go")
		metrics.SetDaemonStartTime(float64(time.Now().Unix()))
	}

	coord := shutdown.New(reg, d, dcfg.StatePath(), auditLogger)
	coord.Notify()

	ipcServer := ipc.New(dcfg.SocketPath(), d, logBuffer, log, coord.RequestShutdown)
	if err := ipcServer.Listen(); err != nil {
		return fmt.Errorf("listen on %s: %w", dcfg.SocketPath(), err)
	}
	go ipcServer.Serve()

	if daemonConfigPath != "" {
		if _, err := d.StartFromConfig(daemonConfigPath); err != nil {
			log.Error("failed to start processes from config", "path", daemonConfigPath, "error", err)
		}
		if daemonWatch {
			w, err := watcher.New(watcher.Config{
				ConfigPath: daemonConfigPath,
				Logger:     log,
				Handler: func() error {
					_, err := d.ReloadConfig(daemonConfigPath)
					return err
				},
			})
			if err != nil {
				log.Error("failed to start config watcher", "error", err)
			} else if err := w.Start(ctx); err != nil {
				log.Error("failed to start config watcher", "error", err)
			} else {
				defer w.Stop()
			}
		}
	}

	auditLogger.DaemonStart(version)
	log.Info("adasa daemon started", "pid", os.Getpid(), "socket", dcfg.SocketPath())

	reason := coord.Wait()
	log.Info("adasa daemon shutting down", "reason", reason)
	cancel()
	if metricsServer != nil {
		_ = metricsServer.Stop(context.Background())
	}
	_ = ipcServer.Close()
	return nil
}

// restoreSnapshot re-inserts every persisted record into reg. A record whose
// pid is no longer alive is marked Errored with OrphanReason
// "OrphanedAtRestart" rather than silently dropped, per §4.9/§9(b).
func restoreSnapshot(reg *registry.Registry, snap persistence.Snapshot, log *slog.Logger) {
	for _, rec := range snap.Records {
		mp := &registry.ManagedProcess{
			ID:            rec.ID,
			Name:          rec.Name,
			BaseName:      rec.BaseName,
			InstanceIndex: rec.InstanceIndex,
			Config:        rec.Config,
			State:         rec.State,
			Pid:           rec.Pid,
			RestartCount:  rec.RestartCount,
			SpawnedAt:     rec.SpawnedAt,
			LastExitAt:    rec.LastExitAt,
		}
		if mp.Pid != 0 && !processAlive(mp.Pid) {
			mp.State = registry.StateErrored
			mp.Pid = 0
			mp.OrphanReason = "OrphanedAtRestart"
			log.Warn("orphaned entry at restart", "name", mp.Name, "id", mp.ID)
		}
		reg.Insert(mp)
	}
}

func writePidFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// relaunchDetached re-execs the current binary with childArgs as a session
// leader detached from this terminal, then returns so the calling CLI
// invocation can exit immediately.
func relaunchDetached(childArgs []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	child := exec.Command(exe, childArgs...)
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("launch background daemon: %w", err)
	}
	fmt.Printf("adasa daemon started in the background, pid %d\n", child.Process.Pid)
	return nil
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	client := newClient()
	if err := client.DaemonShutdown(); err != nil {
		return err
	}

	dcfg := daemonConfig()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pidFromFile(dcfg.PidFile())) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	return relaunchDetached([]string{"daemon", "start"})
}

// processAlive reports whether pid refers to a live process, via the
// null-signal probe (no permission to signal still means "alive").
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

func pidFromFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return pid
}
