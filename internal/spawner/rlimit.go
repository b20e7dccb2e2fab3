package spawner

import "golang.org/x/sys/unix"

// applyMemoryLimit sets the child's address-space rlimit (RLIMIT_AS) to
// bytes, per §4.2/§9 ("memory limits use the standard address-space
// rlimit"). Go's os/exec offers no fork/exec hook to apply an rlimit to the
// child before it execs, so this uses prlimit(2) on the already-started pid
// immediately after Start() returns; the window between fork and the
// child's first allocation is small in practice, and on failure (permission
// denied, or the child has already exited) the caller logs
// LimitApplyFailed and proceeds without refusing to run the process.
func applyMemoryLimit(pid int, bytes int64) error {
	limit := unix.Rlimit{Cur: uint64(bytes), Max: uint64(bytes)}
	return unix.Prlimit(pid, unix.RLIMIT_AS, &limit, nil)
}
