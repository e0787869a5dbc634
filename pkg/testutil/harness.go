// Package testutil provides testing utilities for media player plugins.
// This file provides a TestEnv for end-to-end tests of the player stack.
package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"time"

	"mediaplayer/internal/api"
	"mediaplayer/internal/clock"
	"mediaplayer/internal/player"
	"mediaplayer/internal/remote"
	"mediaplayer/internal/resource"
	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/surface"
	"mediaplayer/pkg/video"

	// Built-in plugins register their factories in init()
	_ "mediaplayer/internal/buttons"
	_ "mediaplayer/internal/formats/mp4"

	"go.uber.org/zap"
)

// TestEnv provides a complete test environment: every registered plugin,
// a player on clock-driven in-memory surfaces, the HTTP API with the remote
// control mounted, and a connected remote client.
type TestEnv struct {
	Clock    *clock.MockClock
	Surfaces *player.MemorySurfaces
	Registry *plugin.Registry
	Player   *player.Player
	Remote   *remote.Server
	Client   *remote.Client
	Logger   *zap.Logger

	// URL is the base http:// address of the API
	URL string

	httpServer *httptest.Server
	readyDelay time.Duration
}

// Options configures NewTestEnv
type Options struct {
	// ReadyDelay is how long surfaces buffer after a source is assigned
	ReadyDelay time.Duration

	// Plugins holds per-plugin configuration keyed by plugin name
	Plugins map[string]plugin.Config

	// ManifestURL is the location sources are resolved against
	ManifestURL string

	// Surface options applied to every surface, e.g. WithMedia
	SurfaceOptions []surface.MemoryOption
}

// NewTestEnv creates a fully configured test environment.
//
// Example usage:
//
//	env, err := testutil.NewTestEnv(testutil.Options{ReadyDelay: time.Second})
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer env.Cleanup()
//
//	err = env.Load(ctx, manifest)
func NewTestEnv(opts Options) (*TestEnv, error) {
	logger, _ := zap.NewDevelopment()

	clk := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	surfaces := player.NewMemorySurfaces(clk, opts.ReadyDelay, opts.SurfaceOptions...)
	registry := plugin.NewRegistry()
	p := player.NewPlayer(registry, surfaces, nil, logger)

	pctx := plugin.NewContext(logger, resource.NewResolver(opts.ManifestURL), "", opts.Plugins)
	pctx.Capabilities = surfaces.Probe()
	pctx.Player = p
	if err := plugin.CreateAll(pctx, registry); err != nil {
		return nil, fmt.Errorf("failed to create plugins: %w", err)
	}

	rs := remote.NewServer(p, registry, logger)
	apiServer := api.NewServer(p, registry, rs, logger, 0)
	httpServer := httptest.NewServer(apiServer.Handler())

	p.OnEnded(func() {
		rs.Broadcast(remote.EventEnded, map[string]string{"stream": p.MainAudioStream()})
	})

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/ws"
	client := remote.NewClient(wsURL, logger)
	if err := client.Connect(context.Background()); err != nil {
		httpServer.Close()
		return nil, fmt.Errorf("failed to connect client: %w", err)
	}

	return &TestEnv{
		Clock:      clk,
		Surfaces:   surfaces,
		Registry:   registry,
		Player:     p,
		Remote:     rs,
		Client:     client,
		Logger:     logger,
		URL:        httpServer.URL,
		httpServer: httpServer,
		readyDelay: opts.ReadyDelay,
	}, nil
}

// Load loads m, advancing the mock clock by the ready delay whenever a
// surface is buffering. It returns the error of the player's Load.
func (e *TestEnv) Load(ctx context.Context, m *video.Manifest) error {
	done := make(chan error, 1)
	go func() { done <- e.Player.Load(ctx, m) }()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			if e.Clock.Pending() > 0 {
				e.Clock.Advance(e.readyDelay)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Surface returns the surface of a stream, or nil
func (e *TestEnv) Surface(content string) *surface.Memory {
	s, _ := e.Surfaces.Get(content)
	return s
}

// Cleanup stops all components in the correct order.
// Always call this in a defer after creating the TestEnv.
func (e *TestEnv) Cleanup() {
	if e.Client != nil {
		e.Client.Disconnect()
	}
	if e.Remote != nil {
		e.Remote.Close()
	}
	if e.httpServer != nil {
		e.httpServer.Close()
	}
	if e.Player != nil {
		e.Player.Unload()
	}
}
