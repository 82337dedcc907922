package hooks

import (
	"sort"
	"sync"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
)

// PluginCategory represents the high-level role of a plugin.
type PluginCategory string

const (
	// PluginCategoryChecker covers scoreboards and other consumers that judge behaviour.
	PluginCategoryChecker PluginCategory = "checker"
	// PluginCategoryInstrumentation covers tracing and diagnostics.
	PluginCategoryInstrumentation PluginCategory = "instrumentation"
)

// PluginDescriptor describes a plugin registered with the broker.
type PluginDescriptor struct {
	Name        string
	Category    PluginCategory
	Description string
}

// HookBundle groups multiple hook handlers that belong to one plugin.
type HookBundle struct {
	Observed  []ObservedHook
	Driven    []DrivenHook
	Handshake []HandshakeHook
}

// ObservedContext carries a transaction reconstructed by a monitor.
type ObservedContext struct {
	Source      string
	Cycle       int
	Transaction core.Transaction
}

// DrivenContext carries a transaction completed by a driver.
type DrivenContext struct {
	Source      string
	Cycle       int
	Transaction core.Transaction
}

// HandshakeContext describes one channel transfer on one edge.
type HandshakeContext struct {
	Cycle   int
	Channel bus.Channel
	Signals bus.Signals
}

type ObservedHook func(ctx *ObservedContext) error
type DrivenHook func(ctx *DrivenContext) error
type HandshakeHook func(ctx *HandshakeContext) error

// chain is an ordered, concurrency-safe list of handlers for one event kind.
type chain[C any] struct {
	mu       sync.RWMutex
	handlers []func(*C) error
}

func (c *chain[C]) add(hs ...func(*C) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			c.handlers = append(c.handlers, h)
		}
	}
}

func (c *chain[C]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// emit runs the handlers in registration order and stops at the first error.
// Handlers may register further hooks; those apply from the next event on.
func (c *chain[C]) emit(ctx *C) error {
	if ctx == nil {
		return nil
	}
	c.mu.RLock()
	handlers := c.handlers[:len(c.handlers):len(c.handlers)]
	c.mu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PluginBroker fans component events out to registered hooks. Monitors publish
// here instead of calling their consumers directly.
type PluginBroker struct {
	observed  chain[ObservedContext]
	driven    chain[DrivenContext]
	handshake chain[HandshakeContext]

	catalogMu sync.RWMutex
	catalog   map[string]PluginDescriptor
}

func NewPluginBroker() *PluginBroker {
	return &PluginBroker{catalog: make(map[string]PluginDescriptor)}
}

// RegisterObserved adds a hook run for every monitored transaction.
func (p *PluginBroker) RegisterObserved(h ObservedHook) {
	if p != nil && h != nil {
		p.observed.add(h)
	}
}

// RegisterDriven adds a hook run when a driver completes a transaction.
func (p *PluginBroker) RegisterDriven(h DrivenHook) {
	if p != nil && h != nil {
		p.driven.add(h)
	}
}

// RegisterHandshake adds a hook run for every channel transfer.
func (p *PluginBroker) RegisterHandshake(h HandshakeHook) {
	if p != nil && h != nil {
		p.handshake.add(h)
	}
}

// HasHandshakeHooks lets the clock skip building per-edge contexts.
func (p *PluginBroker) HasHandshakeHooks() bool {
	return p != nil && p.handshake.len() > 0
}

func (p *PluginBroker) EmitObserved(ctx *ObservedContext) error {
	if p == nil {
		return nil
	}
	return p.observed.emit(ctx)
}

func (p *PluginBroker) EmitDriven(ctx *DrivenContext) error {
	if p == nil {
		return nil
	}
	return p.driven.emit(ctx)
}

func (p *PluginBroker) EmitHandshake(ctx *HandshakeContext) error {
	if p == nil {
		return nil
	}
	return p.handshake.emit(ctx)
}

// RegisterBundle records a plugin and installs all of its handlers.
func (p *PluginBroker) RegisterBundle(desc PluginDescriptor, bundle HookBundle) {
	if p == nil {
		return
	}
	p.RegisterPluginMetadata(desc)
	for _, h := range bundle.Observed {
		p.observed.add(h)
	}
	for _, h := range bundle.Driven {
		p.driven.add(h)
	}
	for _, h := range bundle.Handshake {
		p.handshake.add(h)
	}
}

// RegisterPluginMetadata records a plugin without installing hooks. The first
// descriptor registered under a name wins.
func (p *PluginBroker) RegisterPluginMetadata(desc PluginDescriptor) {
	if p == nil || desc.Name == "" {
		return
	}
	p.catalogMu.Lock()
	defer p.catalogMu.Unlock()
	if _, exists := p.catalog[desc.Name]; !exists {
		p.catalog[desc.Name] = desc
	}
}

// ListPlugins returns the plugins of one category, sorted by name.
func (p *PluginBroker) ListPlugins(category PluginCategory) []PluginDescriptor {
	var out []PluginDescriptor
	for _, desc := range p.ListAllPlugins() {
		if desc.Category == category {
			out = append(out, desc)
		}
	}
	return out
}

// ListAllPlugins returns every recorded plugin, sorted by name.
func (p *PluginBroker) ListAllPlugins() []PluginDescriptor {
	if p == nil {
		return nil
	}
	p.catalogMu.RLock()
	out := make([]PluginDescriptor, 0, len(p.catalog))
	for _, desc := range p.catalog {
		out = append(out, desc)
	}
	p.catalogMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
