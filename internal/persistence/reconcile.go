package persistence

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/adasa/adasa/internal/registry"
)

// probeAlive probes whether pid exists by sending the null signal, the
// standard POSIX liveness check.
func probeAlive(pid int) error {
	return syscall.Kill(pid, 0)
}

// Restore populates reg from snap. Every record with a pid is probed
// against live OS state: if the pid exists and its start time is
// consistent with the persisted SpawnedAt, the entry is re-attached in its
// prior state; otherwise it is marked Errored with OrphanReason
// "OrphanedAtRestart", per §4.9 and §9(b) (best-effort matching — process
// start time is not portable across platforms, so any uncertainty resolves
// to Orphaned rather than a false re-attachment).
func Restore(reg *registry.Registry, snap Snapshot) {
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

		if rec.Pid != 0 {
			if matchesLiveProcess(rec.Pid, rec.SpawnedAt) {
				// Re-attached as-is: the daemon's own supervisor loop will
				// resume observing it on the next tick.
			} else {
				mp.State = registry.StateErrored
				mp.Pid = 0
				mp.OrphanReason = "OrphanedAtRestart"
			}
		}

		reg.Insert(mp)
	}
}

// matchesLiveProcess reports whether pid is currently alive and its start
// time is within a coarse tolerance of spawnedAt. Start-time comparison
// uses /proc/<pid>/stat's starttime field (jiffies since boot), which is
// Linux-specific; on any read failure this conservatively returns false so
// the caller marks the entry orphaned instead of risking a false match.
func matchesLiveProcess(pid int, spawnedAt time.Time) bool {
	if err := probeAlive(pid); err != nil {
		return false
	}
	if spawnedAt.IsZero() {
		// No recorded spawn time to compare against; liveness alone is the
		// best available signal.
		return true
	}
	startedAt, err := processStartTime(pid)
	if err != nil {
		return false
	}
	const tolerance = 5 * time.Second
	delta := startedAt.Sub(spawnedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= tolerance
}

// processStartTime reads the process start time from /proc/<pid>/stat,
// approximated against the system boot time from /proc/stat.
func processStartTime(pid int) (time.Time, error) {
	bootTime, err := bootTime()
	if err != nil {
		return time.Time{}, err
	}

	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return time.Time{}, err
	}

	// Field 22 (starttime) follows a ")" that closes the process name,
	// which may itself contain spaces or parentheses.
	s := string(data)
	close := strings.LastIndex(s, ")")
	if close == -1 {
		return time.Time{}, os.ErrInvalid
	}
	fields := strings.Fields(s[close+1:])
	const starttimeField = 19 // index within fields[] after the name, 0-based
	if len(fields) <= starttimeField {
		return time.Time{}, os.ErrInvalid
	}
	ticks, err := strconv.ParseInt(fields[starttimeField], 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	const clockTicksPerSec = 100 // USER_HZ, standard on Linux
	return bootTime.Add(time.Duration(ticks) * time.Second / clockTicksPerSec), nil
}

func bootTime() (time.Time, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "btime ") {
			secs, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "btime ")), 10, 64)
			if err != nil {
				return time.Time{}, err
			}
			return time.Unix(secs, 0), nil
		}
	}
	return time.Time{}, os.ErrNotExist
}
