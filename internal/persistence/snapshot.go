// Package persistence snapshots the registry to disk and restores it on
// daemon startup, per §4.9.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/registry"
)

// SnapshotVersion is bumped whenever the on-disk record shape changes.
const SnapshotVersion = 1

// Record is one serialized ManagedProcess, per the field list in §4.9.
type Record struct {
	ID           uint64                `json:"id"`
	Name         string                `json:"name"`
	BaseName     string                `json:"base_name"`
	InstanceIndex int                  `json:"instance_index"`
	Config       *config.ProcessConfig `json:"config"`
	State        registry.State        `json:"state"`
	Pid          int                   `json:"pid,omitempty"`
	RestartCount int                   `json:"restart_count"`
	SpawnedAt    time.Time             `json:"spawned_at"`
	LastExitAt   time.Time             `json:"last_exit_at"`
}

// Snapshot is the top-level on-disk document.
type Snapshot struct {
	Version int      `json:"version"`
	NextID  uint64   `json:"next_id"`
	Records []Record `json:"records"`
}

// Build takes the registry lock via Snapshot() just long enough to copy
// every non-Deleted entry into a Record list — no I/O happens while holding
// the lock, per invariant 6 and the "never mid-transition" requirement.
func Build(reg *registry.Registry) Snapshot {
	entries := reg.Snapshot()
	records := make([]Record, 0, len(entries))
	for _, mp := range entries {
		records = append(records, Record{
			ID:            mp.ID,
			Name:          mp.Name,
			BaseName:      mp.BaseName,
			InstanceIndex: mp.InstanceIndex,
			Config:        mp.Config,
			State:         mp.State,
			Pid:           mp.Pid,
			RestartCount:  mp.RestartCount,
			SpawnedAt:     mp.SpawnedAt,
			LastExitAt:    mp.LastExitAt,
		})
	}
	return Snapshot{Version: SnapshotVersion, NextID: reg.NextID(), Records: records}
}

// Write serializes snap to path using write-to-temp-then-rename, the only
// atomic update pattern for a regular file on POSIX.
func Write(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Read loads a snapshot from path. A missing file is not an error: it means
// this is the daemon's first run.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{Version: SnapshotVersion}, nil
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}
