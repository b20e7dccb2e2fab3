// Package registry holds the daemon's single in-memory mapping of managed
// processes, indexed by internal id, by name, and by OS pid. It performs no
// I/O: every side effect (spawn, signal, wait) happens in a caller that has
// already released the registry lock, per the concurrency model in §5.
package registry

import (
	"sync"

	"github.com/adasa/adasa/internal/config"
)

// Registry is the single shared mutable structure in the daemon.
type Registry struct {
	mu      sync.RWMutex
	byID    map[uint64]*ManagedProcess
	byName  map[string]*ManagedProcess
	byPid   map[int]*ManagedProcess
	nextID  uint64
}

// New creates an empty registry. startID seeds the id counter, restored from
// a snapshot on daemon startup so ids remain monotonic across restarts.
func New(startID uint64) *Registry {
	return &Registry{
		byID:   make(map[uint64]*ManagedProcess),
		byName: make(map[string]*ManagedProcess),
		byPid:  make(map[int]*ManagedProcess),
		nextID: startID,
	}
}

// Create allocates a new id and inserts an entry under the given name. It
// fails with NameConflict if the name is already taken by a non-Deleted
// entry. The caller is responsible for spawning and filling in Pid/State.
func (r *Registry) Create(name string, cfg *config.ProcessConfig, baseName string, instanceIndex int) (*ManagedProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, NewError(KindNameConflict, "name already in use: "+name)
	}

	r.nextID++
	mp := &ManagedProcess{
		ID:            r.nextID,
		Name:          name,
		Config:        cfg,
		BaseName:      baseName,
		InstanceIndex: instanceIndex,
		State:         StateStarting,
	}
	r.byID[mp.ID] = mp
	r.byName[mp.Name] = mp
	return mp, nil
}

// Insert adds a fully-formed entry directly, used by Persistence when
// restoring a snapshot (ids and names are already assigned).
func (r *Registry) Insert(mp *ManagedProcess) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[mp.ID] = mp
	r.byName[mp.Name] = mp
	if mp.Pid != 0 {
		r.byPid[mp.Pid] = mp
	}
	if mp.ID >= r.nextID {
		r.nextID = mp.ID
	}
}

// LookupByID returns the entry for id, or nil.
func (r *Registry) LookupByID(id uint64) *ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// LookupByName returns the entry for name, or nil.
func (r *Registry) LookupByName(name string) *ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// LookupByPid returns the entry currently holding pid, or nil. Only entries
// in a pid-bearing state are ever indexed here (invariant 2).
func (r *Registry) LookupByPid(pid int) *ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPid[pid]
}

// List returns a snapshot of every non-Deleted entry, safe to serialize to a
// client without holding the registry lock.
func (r *Registry) List() []*ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ManagedProcess, 0, len(r.byID))
	for _, mp := range r.byID {
		if mp.State == StateDeleted {
			continue
		}
		out = append(out, mp.Clone())
	}
	return out
}

// ListByBaseName returns, in instance-index order, every non-Deleted entry
// spawned from the given base config name (used for rolling restarts and
// multi-instance selectors).
func (r *Registry) ListByBaseName(baseName string) []*ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ManagedProcess, 0)
	for _, mp := range r.byID {
		if mp.BaseName == baseName && mp.State != StateDeleted {
			out = append(out, mp)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].InstanceIndex < out[j-1].InstanceIndex; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// WithMut applies f to the entry for id under the registry lock, keeping
// the pid index consistent with any state/pid change f makes. f must not
// perform I/O or block: mutation paths are read → compute → short write.
func (r *Registry) WithMut(id uint64, f func(mp *ManagedProcess)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mp, ok := r.byID[id]
	if !ok {
		return NewError(KindNotFound, "no entry with that id")
	}

	oldPid := mp.Pid
	f(mp)

	if oldPid != 0 && oldPid != mp.Pid {
		delete(r.byPid, oldPid)
	}
	if mp.State.hasPid() && mp.Pid != 0 {
		r.byPid[mp.Pid] = mp
	} else if !mp.State.hasPid() && mp.Pid != 0 {
		delete(r.byPid, mp.Pid)
	}
	return nil
}

// Remove deletes an entry from every index. Called once the OS process (if
// any) has been reaped, per the Deleted lifecycle terminal state.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mp, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byName, mp.Name)
	if mp.Pid != 0 {
		delete(r.byPid, mp.Pid)
	}
}

// Snapshot returns every non-Deleted entry without cloning, for internal use
// by the supervisor loop and persistence layer (callers must not mutate the
// returned pointers outside WithMut).
func (r *Registry) Snapshot() []*ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ManagedProcess, 0, len(r.byID))
	for _, mp := range r.byID {
		if mp.State != StateDeleted {
			out = append(out, mp)
		}
	}
	return out
}

// NextID returns the current id counter, used when writing a snapshot so it
// can be restored on the next startup.
func (r *Registry) NextID() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}
