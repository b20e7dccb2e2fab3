package tui

import (
	"testing"
	"time"

	"github.com/adasa/adasa/internal/registry"
)

func TestNew_Defaults(t *testing.T) {
	m := New(nil)
	if m.currentView != viewProcessList {
		t.Errorf("expected initial view to be the process list, got %v", m.currentView)
	}
	if m.logLines != 200 {
		t.Errorf("expected default logLines 200, got %d", m.logLines)
	}
}

func TestModel_SelectedEntry(t *testing.T) {
	m := New(nil)
	m.entries = []*registry.ManagedProcess{
		{Name: "worker", State: registry.StateRunning},
		{Name: "api", State: registry.StateStopped},
	}
	m.selectedName = "api"

	got := m.selectedEntry()
	if got == nil || got.Name != "api" {
		t.Fatalf("expected to find entry %q, got %+v", "api", got)
	}

	m.selectedName = "does-not-exist"
	if got := m.selectedEntry(); got != nil {
		t.Errorf("expected nil for an unknown name, got %+v", got)
	}
}

func TestShowToastAndExpiry(t *testing.T) {
	m := New(nil)
	m.showToast("hello", time.Millisecond)
	if m.toast != "hello" {
		t.Fatalf("expected toast to be set, got %q", m.toast)
	}

	time.Sleep(5 * time.Millisecond)
	m.clearToastIfExpired()
	if m.toast != "" {
		t.Errorf("expected expired toast to be cleared, got %q", m.toast)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "-", 7: "7", 1234: "1234", -3: "-3"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Errorf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatState(t *testing.T) {
	for _, s := range []string{"Running", "Starting", "Stopping", "Stopped", "Restarting", "Errored", "Deleted"} {
		if out := formatState(s); out == "" {
			t.Errorf("formatState(%q) returned an empty string", s)
		}
	}
}
