package shadowstate

import (
	"sort"
	"sync"
)

// Provider returns the current shadow state of a stream.
type Provider func() StreamShadowState

// Tracker manages shadow state providers for all loaded streams.
type Tracker struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewTracker creates a new shadow state tracker
func NewTracker() *Tracker {
	return &Tracker{
		providers: make(map[string]Provider),
	}
}

// Register installs the provider for a stream, replacing any previous one.
func (t *Tracker) Register(stream string, provider Provider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers[stream] = provider
}

// Unregister removes a stream's provider.
func (t *Tracker) Unregister(stream string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.providers, stream)
}

// Clear removes every provider.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers = make(map[string]Provider)
}

// Get retrieves a stream's shadow state
func (t *Tracker) Get(stream string) (StreamShadowState, bool) {
	t.mu.RLock()
	provider, ok := t.providers[stream]
	t.mu.RUnlock()

	if !ok {
		return StreamShadowState{}, false
	}
	return provider(), true
}

// All returns every stream's shadow state keyed by stream name.
// Providers are called outside the tracker lock.
func (t *Tracker) All() map[string]StreamShadowState {
	t.mu.RLock()
	providers := make(map[string]Provider, len(t.providers))
	for k, v := range t.providers {
		providers[k] = v
	}
	t.mu.RUnlock()

	states := make(map[string]StreamShadowState, len(providers))
	for k, provider := range providers {
		states[k] = provider()
	}
	return states
}

// Streams returns the tracked stream names, sorted.
func (t *Tracker) Streams() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.providers))
	for k := range t.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
