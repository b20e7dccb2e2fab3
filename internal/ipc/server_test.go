package ipc

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adasa/adasa/internal/audit"
	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/dispatcher"
	"github.com/adasa/adasa/internal/logcapture"
	"github.com/adasa/adasa/internal/monitor"
	"github.com/adasa/adasa/internal/registry"
	"github.com/adasa/adasa/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *Client, *registry.Registry, chan string) {
	t.Helper()
	reg := registry.New(1)
	mon := monitor.New(reg)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	auditLogger := audit.NewLogger(logger, false)
	d := dispatcher.New(reg, mon, t.TempDir(), logcapture.NewRingBuffer(64), auditLogger)

	shutdownCh := make(chan string, 1)
	socketPath := filepath.Join(t.TempDir(), "adasa.sock")
	srv := New(socketPath, d, logcapture.NewRingBuffer(64), logger, func(reason string) {
		shutdownCh <- reason
	})
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { _ = srv.Close() })

	return srv, NewClient(socketPath), reg, shutdownCh
}

func TestServer_StartListStatusStop(t *testing.T) {
	_, client, reg, _ := newTestServer(t)

	cfg := &config.ProcessConfig{Name: "worker", Script: "sleep", Args: []string{"30"}}
	result, err := client.Start(cfg)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(result.Started) != 1 {
		t.Fatalf("unexpected start result: %+v", result)
	}

	testutil.Eventually(t, func() bool {
		mp := reg.LookupByName("worker")
		return mp != nil && mp.State == registry.StateRunning
	}, "process to start")

	entries, err := client.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "worker" {
		t.Fatalf("unexpected list result: %+v", entries)
	}

	status, err := client.Status("worker")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status) != 1 {
		t.Fatalf("unexpected status result: %+v", status)
	}

	if err := client.Stop("worker", false); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	testutil.Eventually(t, func() bool {
		mp := reg.LookupByName("worker")
		return mp != nil && mp.State == registry.StateStopped
	}, "process to stop")
}

func TestServer_UnknownSelectorReturnsTypedError(t *testing.T) {
	_, client, _, _ := newTestServer(t)

	_, err := client.Status("does-not-exist")
	if err == nil {
		t.Fatal("expected an error")
	}
	replyErr, ok := err.(*ReplyError)
	if !ok {
		t.Fatalf("expected a *ReplyError, got %T: %v", err, err)
	}
	if replyErr.Kind != string(registry.KindNotFound) {
		t.Errorf("expected kind %s, got %s", registry.KindNotFound, replyErr.Kind)
	}
}

func TestServer_DaemonStatus(t *testing.T) {
	_, client, _, _ := newTestServer(t)

	status, err := client.DaemonStatus()
	if err != nil {
		t.Fatalf("DaemonStatus failed: %v", err)
	}
	if status.Status != "running" {
		t.Errorf("expected status running, got %s", status.Status)
	}
	if status.Count != 0 {
		t.Errorf("expected count 0, got %d", status.Count)
	}
}

func TestServer_DaemonShutdownTriggersCallback(t *testing.T) {
	_, client, _, shutdownCh := newTestServer(t)

	if err := client.DaemonShutdown(); err != nil {
		t.Fatalf("DaemonShutdown failed: %v", err)
	}

	select {
	case reason := <-shutdownCh:
		if reason == "" {
			t.Error("expected a non-empty shutdown reason")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback was not invoked")
	}
}

func TestServer_LogsFiltering(t *testing.T) {
	_, client, _, _ := newTestServer(t)

	lines, err := client.Logs("worker", 10, false)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no captured lines yet, got %d", len(lines))
	}
}
