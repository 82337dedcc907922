package hooks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PluginFactory installs a plugin's hooks into the broker.
type PluginFactory func(broker *PluginBroker) error

type plugin struct {
	desc    PluginDescriptor
	install PluginFactory
	loaded  bool
}

// Registry maps plugin names from the configuration onto factories. Loading a
// plugin installs its hooks once, however often it is named.
type Registry struct {
	mu      sync.Mutex
	broker  *PluginBroker
	plugins map[string]*plugin
}

// NewRegistry binds a registry to broker, creating one when nil.
func NewRegistry(broker *PluginBroker) *Registry {
	if broker == nil {
		broker = NewPluginBroker()
	}
	return &Registry{broker: broker, plugins: make(map[string]*plugin)}
}

// Broker returns the broker plugins are installed into.
func (r *Registry) Broker() *PluginBroker {
	if r == nil {
		return nil
	}
	return r.broker
}

func (r *Registry) Register(name string, desc PluginDescriptor, factory PluginFactory) error {
	switch {
	case r == nil:
		return errors.New("hooks: registry is nil")
	case name == "":
		return errors.New("hooks: plugin name is empty")
	case factory == nil:
		return fmt.Errorf("hooks: plugin %q has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.plugins[name]; dup {
		return fmt.Errorf("hooks: plugin %q registered twice", name)
	}
	r.plugins[name] = &plugin{desc: desc, install: factory}
	return nil
}

// Load installs the named plugins in order. Unknown names fail before anything
// is installed.
func (r *Registry) Load(names []string) error {
	if r == nil {
		return errors.New("hooks: registry is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	selected := make([]*plugin, 0, len(names))
	for _, name := range names {
		p, ok := r.plugins[name]
		if !ok {
			return fmt.Errorf("hooks: unknown plugin %q (available: %s)", name, strings.Join(r.namesLocked(), ", "))
		}
		selected = append(selected, p)
	}
	for _, p := range selected {
		if p.loaded {
			continue
		}
		if err := p.install(r.broker); err != nil {
			return fmt.Errorf("hooks: install %q: %w", p.desc.Name, err)
		}
		p.loaded = true
		r.broker.RegisterPluginMetadata(p.desc)
	}
	return nil
}

// Descriptor returns the metadata of a registered plugin.
func (r *Registry) Descriptor(name string) (PluginDescriptor, bool) {
	if r == nil {
		return PluginDescriptor{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plugins[name]; ok {
		return p.desc, true
	}
	return PluginDescriptor{}, false
}

// Names lists registered plugins alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	out := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
