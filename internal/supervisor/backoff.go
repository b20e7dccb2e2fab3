// Package supervisor implements the lifecycle state machine, the
// restart/backoff policy, and the periodic supervisor loop that drives
// crash detection, scheduled restarts, and resource-limit checks.
package supervisor

import (
	"log/slog"
	"time"

	"github.com/adasa/adasa/internal/registry"
)

// RestartWindow is the sliding window over which recent_restarts is kept,
// resolved per the open question in §9(a): the source was ambiguous about
// whether the window is 60s or tied to max_restarts directly; this adopts a
// fixed 60s window and exposes it as a constant, as instructed.
const RestartWindow = 60 * time.Second

// MaxBackoff caps the exponential backoff delay, per §4.4 step 3.
const MaxBackoff = 60 * time.Second

// recordRestart pushes now onto the entry's sliding window and drops
// timestamps older than RestartWindow, maintaining invariant 4.
func recordRestart(mp *registry.ManagedProcess, now time.Time) {
	mp.RecentRestarts = append(mp.RecentRestarts, now)
	cutoff := now.Add(-RestartWindow)
	kept := mp.RecentRestarts[:0]
	for _, t := range mp.RecentRestarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	mp.RecentRestarts = kept
}

// BackoffDuration computes delay = min(restart_delay_secs * 2^consecutive,
// 60s), the exact formula from §4.4 step 3.
func BackoffDuration(restartDelaySecs int, consecutiveFailures int) time.Duration {
	if restartDelaySecs <= 0 {
		restartDelaySecs = 1
	}
	const maxShift = 62 // avoid overflow on the bit shift below
	n := consecutiveFailures
	if n < 0 {
		n = 0
	}
	if n > maxShift {
		n = maxShift
	}
	delay := time.Duration(restartDelaySecs) * time.Second * time.Duration(uint64(1)<<uint(n))
	if delay > MaxBackoff || delay <= 0 {
		return MaxBackoff
	}
	return delay
}

// evaluateCrash applies §4.4 steps 1-4 to a ManagedProcess whose process has
// just exited unexpectedly. It mutates mp in place and returns true if the
// process should be re-spawned (state becomes Restarting with BackoffUntil
// set), or false if the restart quota was exhausted (state becomes Errored).
// Callers are expected to invoke this from inside registry.WithMut.
func evaluateCrash(mp *registry.ManagedProcess, now time.Time) bool {
	if !mp.Config.AutoRestart {
		transitionOrWarn(mp, registry.StateErrored)
		return false
	}

	recordRestart(mp, now)

	if len(mp.RecentRestarts) > mp.Config.MaxRestarts {
		transitionOrWarn(mp, registry.StateErrored)
		return false
	}

	mp.ConsecutiveFailures++
	delay := BackoffDuration(mp.Config.RestartDelaySecs, mp.ConsecutiveFailures)
	mp.BackoffUntil = now.Add(delay)
	transitionOrWarn(mp, registry.StateRestarting)
	return true
}

// transitionOrWarn applies Transition and logs instead of returning an error,
// since the crash-handling call sites have no caller to propagate one to.
func transitionOrWarn(mp *registry.ManagedProcess, next registry.State) {
	if err := Transition(mp, next); err != nil {
		slog.Warn("rejected illegal state transition", "error", err)
	}
}
