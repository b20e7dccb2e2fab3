package dispatcher

import (
	"strconv"

	"github.com/adasa/adasa/internal/registry"
)

// resolveSelector resolves a client-supplied selector — an id, a bare name,
// or a base name with all its instances — to one or more registry entries,
// per the Selector definition in the glossary.
func (d *Dispatcher) resolveSelector(selector string) ([]*registry.ManagedProcess, error) {
	if id, err := strconv.ParseUint(selector, 10, 64); err == nil {
		mp := d.Registry.LookupByID(id)
		if mp == nil {
			return nil, registry.NewError(registry.KindNotFound, selector)
		}
		return []*registry.ManagedProcess{mp}, nil
	}

	if mp := d.Registry.LookupByName(selector); mp != nil {
		return []*registry.ManagedProcess{mp}, nil
	}

	// Not a single name: try it as a base name covering every "<base>-N"
	// instance.
	if instances := d.Registry.ListByBaseName(selector); len(instances) > 0 {
		return instances, nil
	}

	return nil, registry.NewError(registry.KindNotFound, selector)
}
