package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mediaplayer/internal/player"
	"mediaplayer/pkg/plugin"

	"go.uber.org/zap"
)

// StateSource provides the player state served by /api/state
type StateSource interface {
	State(ctx context.Context) player.State
}

// Server provides HTTP API endpoints for the media player
type Server struct {
	player   StateSource
	registry *plugin.Registry
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a new API server. When remote is non-nil it is mounted
// at /api/ws.
func NewServer(p StateSource, registry *plugin.Registry, remote http.Handler, logger *zap.Logger, port int) *Server {
	s := &Server{
		player:   p,
		registry: registry,
		logger:   logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/plugins", s.handleGetPlugins)
	mux.HandleFunc("/health", s.handleHealth)
	if remote != nil {
		mux.Handle("/api/ws", remote)
	}

	// WriteTimeout stays zero so the WebSocket route is not cut off.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the request router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleGetState returns the player state as JSON
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.player.State(r.Context()))

	s.logger.Debug("State request served",
		zap.String("remote_addr", r.RemoteAddr))
}

// PluginInfo describes one registered plugin
type PluginInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
	Side    string `json:"side,omitempty"`
	Parent  string `json:"parentContainer,omitempty"`
	Title   string `json:"title,omitempty"`
}

// handleGetPlugins lists the registry in registration order. An optional
// ?type= filter scopes the listing to one plugin type.
func (s *Server) handleGetPlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := s.registry.List()
	if t := r.URL.Query().Get("type"); t != "" {
		plugins = s.registry.Query(plugin.Type(t), plugin.Any)
	}

	infos := make([]PluginInfo, 0, len(plugins))
	for _, p := range plugins {
		info := PluginInfo{
			Name:    p.Name(),
			Type:    string(p.Type()),
			Enabled: p.IsEnabled(),
		}
		if b, ok := p.(plugin.Button); ok {
			info.Side = string(b.Side())
			info.Parent = string(b.ParentContainer())
			info.Title = b.Title()
		}
		infos = append(infos, info)
	}

	s.writeJSON(w, infos)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap - lists all available API endpoints"},
	{Path: "/api/state", Method: "GET", Description: "Playback state of the loaded video and its streams"},
	{Path: "/api/plugins", Method: "GET", Description: "Registered plugins, optionally filtered with ?type=button|video"},
	{Path: "/api/ws", Method: "GET", Description: "WebSocket remote control (play, pause, seek, volume, rate, enable, disable, button_press, get_state)"},
	{Path: "/health", Method: "GET", Description: "Health check endpoint - returns {\"status\": \"ok\"}"},
}

// handleSitemap returns a list of all available API endpoints
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accept := r.Header.Get("Accept")
	preferHTML := strings.Contains(accept, "text/html")

	if preferHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
    <title>Media Player API</title>
    <style>
        body { font-family: monospace; margin: 40px; background: #1e1e1e; color: #d4d4d4; }
        h1 { color: #4ec9b0; }
        .endpoint { background: #2d2d2d; padding: 15px; margin: 10px 0; border-left: 3px solid #007acc; }
        .method { color: #4ec9b0; font-weight: bold; }
        .path { color: #ce9178; }
        .description { color: #9cdcfe; margin-top: 5px; }
    </style>
</head>
<body>
    <h1>Media Player API</h1>
`)
		for _, ep := range endpoints {
			fmt.Fprintf(w, `    <div class="endpoint">
        <div><span class="method">%s</span> <span class="path">%s</span></div>
        <div class="description">%s</div>
    </div>
`, ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprint(w, "</body>\n</html>\n")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Media Player API\n")
		fmt.Fprintf(w, "================\n\n")
		for _, ep := range endpoints {
			fmt.Fprintf(w, "  %-6s %-14s %s\n", ep.Method, ep.Path, ep.Description)
		}
	}

	s.logger.Debug("Sitemap request served",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("html_format", preferHTML))
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
