package dispatcher

import (
	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/registry"
)

// List returns a snapshot of every non-deleted managed process, per the
// List command's contract in §4.7.
func (d *Dispatcher) List() []*registry.ManagedProcess {
	return d.Registry.List()
}

// Status returns every entry selector resolves to: a single entry for an id
// or instance name, or all instances of a base-name group.
func (d *Dispatcher) Status(selector string) ([]*registry.ManagedProcess, error) {
	return d.resolveSelector(selector)
}

// ReloadResult reports how many processes a reload_config call added versus
// left untouched because a name was already registered.
type ReloadResult struct {
	Added    int
	Existing int
}

// StartFromConfig loads every process definition in path and starts each,
// per §4.7. A NameConflict for one entry does not block the rest.
func (d *Dispatcher) StartFromConfig(path string) (*ReloadResult, error) {
	cfgs, err := config.Load(path)
	if err != nil {
		return nil, registry.Wrap(registry.KindValidationFailed, "start_from_config", err)
	}

	result := &ReloadResult{}
	for _, cfg := range cfgs {
		if d.Registry.LookupByName(cfg.Name) != nil || len(d.Registry.ListByBaseName(cfg.Name)) > 0 {
			result.Existing++
			continue
		}
		if _, err := d.Start(cfg); err != nil {
			continue
		}
		result.Added++
	}
	if d.audit != nil {
		d.audit.ConfigLoad(path, len(cfgs))
	}
	return result, nil
}

// ReloadConfig re-reads path and starts any process defined there that is
// not already registered under that name; existing entries are left
// running untouched, the additive-only semantics from §4.7/§9.
func (d *Dispatcher) ReloadConfig(path string) (*ReloadResult, error) {
	cfgs, err := config.Load(path)
	if err != nil {
		return nil, registry.Wrap(registry.KindValidationFailed, "reload_config", err)
	}

	result := &ReloadResult{}
	for _, cfg := range cfgs {
		if d.Registry.LookupByName(cfg.Name) != nil || len(d.Registry.ListByBaseName(cfg.Name)) > 0 {
			result.Existing++
			continue
		}
		if _, err := d.Start(cfg); err != nil {
			continue
		}
		result.Added++
	}
	if d.audit != nil {
		d.audit.ConfigReload(path, result.Added, result.Existing)
	}
	return result, nil
}
