package tool

import (
	"sort"
	"sync"
)

// Registry is the namespaced catalog of tool capabilities. It holds a base
// layer of permanently registered tools plus an ephemeral overlay for
// benchmark-injected tools. Lookup checks the overlay first, then the base
// layer. Duplicate registration in the same layer overwrites.
//
// Tool names are treated as opaque dot-separated namespaces; the registry
// never parses them.
//
// Registry is read-heavy and safe for concurrent use: lookups take a read
// lock, registrations an exclusive lock.
type Registry struct {
	mu        sync.RWMutex
	base      map[string]Tool
	ephemeral map[string]Tool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		base:      make(map[string]Tool),
		ephemeral: make(map[string]Tool),
	}
}

// Register adds a tool to the base layer, overwriting any previous tool of the
// same name in that layer.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base[t.Name()] = t
}

// RegisterEphemeral adds a tool to the ephemeral overlay. Overlay entries
// shadow base entries of the same name until ClearEphemeral is called.
func (r *Registry) RegisterEphemeral(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ephemeral[t.Name()] = t
}

// ClearEphemeral wipes only the overlay; the base layer is untouched.
func (r *Registry) ClearEphemeral() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ephemeral = make(map[string]Tool)
}

// Get returns the tool registered under name, checking the ephemeral overlay
// before the base layer. The second return reports whether it was found.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.ephemeral[name]; ok {
		return t, true
	}
	t, ok := r.base[name]
	return t, ok
}

// List returns the sorted names of all visible tools (overlay plus base).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.base)+len(r.ephemeral))
	names := make([]string, 0, len(r.base)+len(r.ephemeral))
	for name := range r.ephemeral {
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for name := range r.base {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Descriptions returns a name → description mapping for all visible tools,
// with overlay entries shadowing base entries.
func (r *Registry) Descriptions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.base)+len(r.ephemeral))
	for name, t := range r.base {
		out[name] = t.Description()
	}
	for name, t := range r.ephemeral {
		out[name] = t.Description()
	}
	return out
}
