package player

import (
	"sync"
	"time"

	"mediaplayer/internal/clock"
	"mediaplayer/pkg/surface"
)

// MemorySurfaces creates in-memory surfaces that buffer for a fixed delay on
// the given clock. It keeps every surface it created so callers can drive
// them (end of stream, readiness) by stream name.
type MemorySurfaces struct {
	clk     clock.Clock
	delay   time.Duration
	options []surface.MemoryOption

	mu       sync.Mutex
	surfaces map[string]*surface.Memory
}

// NewMemorySurfaces creates the provider. A nil clock yields surfaces that
// become ready as soon as a source is assigned.
func NewMemorySurfaces(clk clock.Clock, delay time.Duration, options ...surface.MemoryOption) *MemorySurfaces {
	return &MemorySurfaces{
		clk:      clk,
		delay:    delay,
		options:  options,
		surfaces: make(map[string]*surface.Memory),
	}
}

// NewSurface implements SurfaceProvider.
func (m *MemorySurfaces) NewSurface(content string) (surface.Surface, error) {
	opts := append([]surface.MemoryOption{}, m.options...)
	if m.clk != nil {
		opts = append(opts, surface.WithClock(m.clk, m.delay))
	} else {
		opts = append(opts, surface.WithReadyOnSource())
	}

	s := surface.NewMemory(opts...)

	m.mu.Lock()
	m.surfaces[content] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the surface created for a stream.
func (m *MemorySurfaces) Get(content string) (*surface.Memory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surfaces[content]
	return s, ok
}

// Probe answers media type queries for format negotiation with a surface
// configured like the ones this provider creates.
func (m *MemorySurfaces) Probe() surface.TypeProber {
	return surface.NewMemory(m.options...)
}
