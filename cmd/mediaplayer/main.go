package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mediaplayer/internal/api"
	"mediaplayer/internal/clock"
	"mediaplayer/internal/config"
	"mediaplayer/internal/manifest"
	"mediaplayer/internal/player"
	"mediaplayer/internal/remote"
	"mediaplayer/internal/resource"
	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/video"

	// Format and button plugins register their factories in init()
	_ "mediaplayer/internal/buttons"
	_ "mediaplayer/internal/formats/mp4"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Settings holds the process environment
type Settings struct {
	ConfigDir      string
	VideoID        string
	Manifest       string
	Files          []string
	APIPort        int
	ReadyDelay     time.Duration
	LogDevelopment bool
}

// AppOptions is the dependency graph of the player daemon
var AppOptions = fx.Options(
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	fx.Provide(
		loadSettings,
		newLogger,
		newConfigLoader,
		newVideoSource,
		newResolver,
		newSurfaces,
		plugin.NewRegistry,
		newPlayer,
		newRemote,
		newAPIServer,
	),

	fx.Invoke(createPlugins),
	fx.Invoke(registerHooks),
)

func main() {
	// Load environment variables before the graph reads them
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	app := fx.New(AppOptions)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stop cleanly: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the environment
func loadSettings() (Settings, error) {
	s := Settings{
		ConfigDir:      getEnv("CONFIG_DIR", "./configs"),
		VideoID:        os.Getenv("VIDEO_ID"),
		Manifest:       os.Getenv("MANIFEST"),
		APIPort:        8081,
		ReadyDelay:     500 * time.Millisecond,
		LogDevelopment: os.Getenv("LOG_DEVELOPMENT") == "true",
	}

	if files := os.Getenv("FILES"); files != "" {
		for _, f := range strings.Split(files, ",") {
			if f = strings.TrimSpace(f); f != "" {
				s.Files = append(s.Files, f)
			}
		}
	}

	if port := os.Getenv("API_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid API_PORT %q: %w", port, err)
		}
		s.APIPort = p
	}

	if delay := os.Getenv("READY_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid READY_DELAY %q: %w", delay, err)
		}
		s.ReadyDelay = d
	}

	return s, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newLogger creates a new zap logger instance
func newLogger(s Settings) (*zap.Logger, error) {
	if s.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newConfigLoader(s Settings, logger *zap.Logger) (*config.Loader, error) {
	loader := config.NewLoader(s.ConfigDir, logger)
	if err := loader.LoadAll(); err != nil {
		return nil, err
	}
	return loader, nil
}

// videoSource is where the session's streams come from: a manifest
// location, or a plain list of media files.
type videoSource struct {
	Location string
	Files    []string
}

func newVideoSource(s Settings, loader *config.Loader) (videoSource, error) {
	if len(s.Files) > 0 {
		return videoSource{Files: s.Files}, nil
	}
	if s.Manifest != "" {
		return videoSource{Location: s.Manifest}, nil
	}
	location, err := loader.ManifestLocation(s.VideoID)
	if err != nil {
		return videoSource{}, err
	}
	return videoSource{Location: location}, nil
}

func newResolver(src videoSource) *resource.Resolver {
	return resource.NewResolver(src.Location)
}

func newSurfaces(s Settings) *player.MemorySurfaces {
	return player.NewMemorySurfaces(clock.NewRealClock(), s.ReadyDelay)
}

func newPlayer(registry *plugin.Registry, surfaces *player.MemorySurfaces, logger *zap.Logger) *player.Player {
	return player.NewPlayer(registry, surfaces, nil, logger)
}

func newRemote(p *player.Player, registry *plugin.Registry, logger *zap.Logger) *remote.Server {
	return remote.NewServer(p, registry, logger)
}

func newAPIServer(s Settings, p *player.Player, registry *plugin.Registry, rs *remote.Server, logger *zap.Logger) *api.Server {
	return api.NewServer(p, registry, rs, logger, s.APIPort)
}

// createPlugins instantiates every registered factory into the registry
func createPlugins(
	loader *config.Loader,
	resolver *resource.Resolver,
	surfaces *player.MemorySurfaces,
	p *player.Player,
	registry *plugin.Registry,
	logger *zap.Logger,
) error {
	ctx := plugin.NewContext(logger, resolver, loader.ConfigDir(), loader.PluginConfigs())
	ctx.Capabilities = surfaces.Probe()
	ctx.Player = p

	if err := plugin.CreateAll(ctx, registry); err != nil {
		return fmt.Errorf("failed to create plugins: %w", err)
	}

	logger.Info("Plugins created", zap.Strings("plugins", registry.Names()))
	return nil
}

// registerHooks loads the video on start and tears everything down on stop
func registerHooks(
	lc fx.Lifecycle,
	src videoSource,
	registry *plugin.Registry,
	p *player.Player,
	rs *remote.Server,
	apiServer *api.Server,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			m, err := buildManifest(ctx, src, registry, logger)
			if err != nil {
				return err
			}

			p.OnEnded(func() {
				rs.Broadcast(remote.EventEnded, map[string]string{"stream": p.MainAudioStream()})
			})
			if err := p.Load(ctx, m); err != nil {
				return fmt.Errorf("failed to load video: %w", err)
			}

			if err := apiServer.Start(); err != nil {
				return err
			}

			logger.Info("Media player started", zap.Strings("streams", p.StreamNames()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			rs.Close()
			err := apiServer.Stop(ctx)
			p.Unload()
			_ = logger.Sync()
			return err
		},
	})
}

func buildManifest(ctx context.Context, src videoSource, registry *plugin.Registry, logger *zap.Logger) (*video.Manifest, error) {
	if len(src.Files) > 0 {
		return manifest.FromFiles(registry, src.Files)
	}
	return manifest.NewLoader(logger).Load(ctx, src.Location)
}
