package supervisor

import (
	"fmt"

	"github.com/adasa/adasa/internal/registry"
)

// legalTransitions encodes the table in §4.3: for each origin state, the set
// of states a single trigger may move an entry into. It is consulted
// defensively by every component that mutates State directly, so a bug that
// tries to jump between unrelated states fails loudly instead of silently
// corrupting the registry.
var legalTransitions = map[registry.State]map[registry.State]bool{
	registry.StateStarting: {
		registry.StateRunning:    true,
		registry.StateErrored:    true,
		registry.StateStopping:   true,
		registry.StateRestarting: true,
	},
	registry.StateRunning: {
		registry.StateStopping:   true,
		registry.StateErrored:    true,
		registry.StateRestarting: true,
	},
	registry.StateStopping: {
		registry.StateStopped: true,
		registry.StateDeleted: true,
	},
	registry.StateStopped: {
		registry.StateStarting: true,
		registry.StateDeleted:  true,
	},
	registry.StateRestarting: {
		registry.StateStarting: true,
		registry.StateStopping: true,
	},
	registry.StateErrored: {
		registry.StateStarting: true,
		registry.StateStopping: true,
		registry.StateDeleted:  true,
	},
}

// Transition moves mp to next if the table permits it, otherwise returns an
// error describing the illegal jump. It performs no registry I/O; callers
// invoke it from inside registry.WithMut.
func Transition(mp *registry.ManagedProcess, next registry.State) error {
	allowed, ok := legalTransitions[mp.State]
	if !ok || !allowed[next] {
		return fmt.Errorf("illegal transition %s -> %s for process %q", mp.State, next, mp.Name)
	}
	mp.State = next
	return nil
}
