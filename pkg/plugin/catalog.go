package plugin

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Priority constants for factory registration.
// Higher priority values override lower priority factories with the same name.
const (
	// PriorityDefault is the default priority for plugins.
	// Public/reference implementations should use this priority.
	PriorityDefault = 0

	// PriorityOverride is used by private implementations to override
	// public plugins.
	PriorityOverride = 100
)

// defaultOrder is applied when FactoryInfo.Order is left at zero.
const defaultOrder = 50

// FactoryInfo contains metadata about a registered plugin factory.
type FactoryInfo struct {
	// Name is the unique identifier of the plugin the factory builds.
	Name string

	// Description is a human-readable description of the plugin.
	Description string

	// Priority determines which factory wins when several register
	// under the same name. Higher priority wins.
	Priority int

	// Factory creates the plugin instance.
	Factory Factory

	// Order is the instantiation order. Lower values are created and
	// registered first, which makes them win first-match format selection.
	// Default is 50.
	Order int
}

// Catalog manages factory registration and instantiation.
// It supports priority-based override, allowing private implementations
// to replace public ones at compile time through import ordering.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]FactoryInfo
	order     []string
}

// NewCatalog creates an empty factory catalogue.
func NewCatalog() *Catalog {
	return &Catalog{
		factories: make(map[string]FactoryInfo),
		order:     make([]string, 0),
	}
}

// RegisterFactory adds a factory to the catalogue.
// If a factory with the same name already exists, the one with higher
// priority wins. If priorities are equal, the later registration wins.
func (c *Catalog) RegisterFactory(info FactoryInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if info.Name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}

	if info.Factory == nil {
		return fmt.Errorf("plugin %s: factory cannot be nil", info.Name)
	}

	if info.Order == 0 {
		info.Order = defaultOrder
	}

	existing, exists := c.factories[info.Name]
	if exists && info.Priority < existing.Priority {
		return nil
	}

	c.factories[info.Name] = info
	if !exists {
		c.order = append(c.order, info.Name)
	}
	return nil
}

// Get returns the factory info for a given name, or nil if not found.
func (c *Catalog) Get(name string) *FactoryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.factories[name]
	if !ok {
		return nil
	}
	return &info
}

// List returns all registered factories sorted by Order, then by name.
func (c *Catalog) List() []FactoryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]FactoryInfo, 0, len(c.factories))
	for _, name := range c.order {
		result = append(result, c.factories[name])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// CreateAll instantiates every factory in List order and registers the
// instances into registry. A factory that returns a plugin whose name
// collides with an instance already in registry fails the whole call with
// the registry's *DuplicateNameError.
func (c *Catalog) CreateAll(ctx *Context, registry *Registry) error {
	logger := zap.NewNop()
	if ctx != nil && ctx.Logger != nil {
		logger = ctx.Logger.Named("registry")
	}

	for _, info := range c.List() {
		p, err := info.Factory(ctx)
		if err != nil {
			return fmt.Errorf("failed to create plugin %s: %w", info.Name, err)
		}
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", info.Name, err)
		}
		logger.Info("Plugin registered",
			zap.String("name", p.Name()),
			zap.String("type", string(p.Type())),
			zap.Bool("enabled", p.IsEnabled()),
			zap.Int("order", info.Order),
			zap.Int("priority", info.Priority))
	}

	return nil
}

// Names returns the names of all registered factories.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// Clear removes all registered factories. Useful for testing.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories = make(map[string]FactoryInfo)
	c.order = make([]string, 0)
}

// Global catalogue instance
var globalCatalog = NewCatalog()

// RegisterFactory adds a factory to the global catalogue.
// This is typically called from init() functions in plugin packages.
func RegisterFactory(info FactoryInfo) error {
	return globalCatalog.RegisterFactory(info)
}

// GetFactory returns factory info from the global catalogue.
func GetFactory(name string) *FactoryInfo {
	return globalCatalog.Get(name)
}

// ListFactories returns all factories from the global catalogue.
func ListFactories() []FactoryInfo {
	return globalCatalog.List()
}

// CreateAll instantiates the global catalogue into registry.
func CreateAll(ctx *Context, registry *Registry) error {
	return globalCatalog.CreateAll(ctx, registry)
}

// ClearGlobal clears the global catalogue. Useful for testing.
func ClearGlobal() {
	globalCatalog.Clear()
}
