package plugin

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// DuplicateNameError is returned when a plugin is registered under a name
// that is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("plugin %q is already registered", e.Name)
}

// Registry is the catalogue of plugin instances for one player session.
// Registration order is preserved and is meaningful: it is the default
// selection and layout priority.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		order:   make([]string, 0),
	}
}

// Register stores p under its name. It fails with *DuplicateNameError if
// another plugin already uses that name.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin cannot be nil")
	}
	if p.Name() == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.Name()]; exists {
		return &DuplicateNameError{Name: p.Name()}
	}

	r.plugins[p.Name()] = p
	r.order = append(r.order, p.Name())
	return nil
}

// Get returns the plugin registered under name, or nil if not found.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[name]
}

// Query returns the plugins of type t for which pred holds, in registration
// order. A nil predicate matches every plugin of the type.
func (r *Registry) Query(t Type, pred Predicate) []Plugin {
	if pred == nil {
		pred = Any
	}
	return lo.Filter(r.List(), func(p Plugin, _ int) bool {
		return p.Type() == t && pred(p)
	})
}

// List returns every registered plugin in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// Names returns the names of all registered plugins in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes all registered plugins. Useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins = make(map[string]Plugin)
	r.order = make([]string, 0)
}
