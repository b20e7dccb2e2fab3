package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, false)
	auditLogger.DaemonStart("1.0.0")
	auditLogger.ProcessStart("worker", 1234)

	if buf.String() != "" {
		t.Errorf("expected no output when disabled, got: %s", buf.String())
	}
}

func TestLogger_DaemonStart(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.DaemonStart("1.0.0")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	if entry["event_type"] != string(EventDaemonStart) {
		t.Errorf("expected event_type=%s, got %v", EventDaemonStart, entry["event_type"])
	}
	if !strings.Contains(entry["event_json"].(string), "1.0.0") {
		t.Errorf("expected event_json to contain version, got %s", entry["event_json"])
	}
}

func TestLogger_DaemonShutdown(t *testing.T) {
	tests := []struct {
		name     string
		graceful bool
		wantLvl  string
	}{
		{"graceful", true, "INFO"},
		{"ungraceful", false, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

			auditLogger := NewLogger(logger, true)
			auditLogger.DaemonShutdown("signal: SIGTERM", tt.graceful)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("parse log output: %v", err)
			}
			if entry["level"].(string) != tt.wantLvl {
				t.Errorf("expected level=%s, got %v", tt.wantLvl, entry["level"])
			}
		})
	}
}

func TestLogger_ProcessStart(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.ProcessStart("php-fpm", 1234)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	if entry["event_type"] != string(EventProcessStart) {
		t.Errorf("expected event_type=%s, got %v", EventProcessStart, entry["event_type"])
	}
	if entry["resource"] != "php-fpm" {
		t.Errorf("expected resource=php-fpm, got %v", entry["resource"])
	}
	if !strings.Contains(entry["event_json"].(string), "1234") {
		t.Errorf("expected event_json to contain pid, got %s", entry["event_json"])
	}
}

func TestLogger_ProcessStop(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.ProcessStop("nginx", 5678, true)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	if entry["event_type"] != string(EventProcessStop) {
		t.Errorf("expected event_type=%s, got %v", EventProcessStop, entry["event_type"])
	}
	if entry["level"].(string) != "ERROR" {
		t.Errorf("expected escalated stop to log at ERROR, got %v", entry["level"])
	}
	if !strings.Contains(entry["event_json"].(string), `"escalated":true`) {
		t.Errorf("expected event_json to contain escalated flag, got %s", entry["event_json"])
	}
}

func TestLogger_ProcessCrash(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.ProcessCrash("horizon", 9999, 137, "SIGKILL")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	if entry["event_type"] != string(EventProcessCrash) {
		t.Errorf("expected event_type=%s, got %v", EventProcessCrash, entry["event_type"])
	}
	if entry["level"].(string) != "ERROR" {
		t.Errorf("expected level=ERROR, got %v", entry["level"])
	}
	eventJSON := entry["event_json"].(string)
	if !strings.Contains(eventJSON, `"exit_code":137`) {
		t.Errorf("expected event_json to contain exit_code, got %s", eventJSON)
	}
	if !strings.Contains(eventJSON, "SIGKILL") {
		t.Errorf("expected event_json to contain signal, got %s", eventJSON)
	}
}

func TestLogger_ProcessRestart(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.ProcessRestart("queue-worker", 1111, 2222)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	eventJSON := entry["event_json"].(string)
	if !strings.Contains(eventJSON, `"old_pid":1111`) || !strings.Contains(eventJSON, `"new_pid":2222`) {
		t.Errorf("expected event_json to contain both pids, got %s", eventJSON)
	}
}

func TestLogger_ConfigLoad(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.ConfigLoad("/etc/adasa/adasa.toml", 5)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	if !strings.Contains(entry["event_json"].(string), `"process_count":5`) {
		t.Errorf("expected event_json to contain process_count, got %s", entry["event_json"])
	}
}

func TestLogger_ConfigReload(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.ConfigReload("/etc/adasa/adasa.toml", 2, 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	eventJSON := entry["event_json"].(string)
	if !strings.Contains(eventJSON, `"added":2`) || !strings.Contains(eventJSON, `"existing":3`) {
		t.Errorf("expected event_json to contain added/existing counts, got %s", eventJSON)
	}
}

func TestLogger_IDAutoSet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	auditLogger.DaemonStart("1.0.0")
	auditLogger.DaemonStart("1.0.0")

	dec := json.NewDecoder(&buf)
	var first, second map[string]interface{}
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("parse first log line: %v", err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("parse second log line: %v", err)
	}

	id1, id2 := first["id"], second["id"]
	if id1 == "" || id1 == nil {
		t.Fatal("expected a non-empty id")
	}
	if id1 == id2 {
		t.Errorf("expected distinct ids across events, got %v twice", id1)
	}
}

func TestLogger_TimestampAutoSet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	auditLogger := NewLogger(logger, true)
	before := time.Now()
	auditLogger.DaemonStart("1.0.0")
	after := time.Now()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log output: %v", err)
	}
	var event Event
	if err := json.Unmarshal([]byte(entry["event_json"].(string)), &event); err != nil {
		t.Fatalf("parse event json: %v", err)
	}
	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Errorf("timestamp %v not within [%v, %v]", event.Timestamp, before, after)
	}
}
