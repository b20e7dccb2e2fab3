package spawner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// cgroupRoot is the cgroup v2 unified hierarchy mountpoint. adasaCgroupBase
// is where per-process cgroups are created, per §4.2's
// "/sys/fs/cgroup/adasa/<name>" path.
const cgroupRoot = "/sys/fs/cgroup"

var adasaCgroupBase = filepath.Join(cgroupRoot, "adasa")

// ensureSubtreeControl enables the cpu controller on adasaCgroupBase's
// parent and on adasaCgroupBase itself, so leaf cgroups created under
// adasaCgroupBase may set cpu.max. Failure here is
// expected on systems without cgroup v2 or without delegation and is not
// fatal: the caller reports LimitApplyFailed and the process still runs.
func ensureSubtreeControl() error {
	if err := os.MkdirAll(adasaCgroupBase, 0o755); err != nil {
		return err
	}
	controlPath := filepath.Join(cgroupRoot, "cgroup.subtree_control")
	if err := os.WriteFile(controlPath, []byte("+cpu"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(adasaCgroupBase, "cgroup.subtree_control"), []byte("+cpu"), 0o644)
}

// applyCPULimit attaches pid to a dedicated cgroup under adasaCgroupBase and
// sets cpu.max = "<period*pct/100> <period>", giving the process pct percent
// of one core.
func applyCPULimit(name string, pid int, pct int) error {
	if err := ensureSubtreeControl(); err != nil {
		// subtree_control may already be enabled by a prior process; only
		// treat a missing cgroup filesystem as fatal.
		if _, statErr := os.Stat(cgroupRoot); statErr != nil {
			return fmt.Errorf("cgroup v2 not mounted: %w", statErr)
		}
	}

	path := filepath.Join(adasaCgroupBase, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create cgroup: %w", err)
	}

	procsPath := filepath.Join(path, "cgroup.procs")
	if err := os.WriteFile(procsPath, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("attach pid to cgroup: %w", err)
	}

	const period = 100000 // microseconds; 100ms is the conventional cpu.max period
	quota := (pct * period) / 100
	cpuMaxPath := filepath.Join(path, "cpu.max")
	value := fmt.Sprintf("%d %d", quota, period)
	if err := os.WriteFile(cpuMaxPath, []byte(value), 0o644); err != nil {
		return fmt.Errorf("set cpu.max: %w", err)
	}
	return nil
}

// RemoveCgroup is called once a process has been reaped, so its per-process
// cgroup (now empty) can be cleaned up. A no-op if no cgroup was ever
// created for name.
func RemoveCgroup(name string) {
	_ = os.Remove(filepath.Join(adasaCgroupBase, name))
}
