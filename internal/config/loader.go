package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mediaplayer/internal/resource"
	"mediaplayer/pkg/plugin"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the player configuration file inside the config directory.
	FileName = "config.yml"

	defaultRepositoryURL    = "repository"
	defaultManifestFileName = "data.json"
)

// PlayerConfig represents the config.yml structure
type PlayerConfig struct {
	RepositoryURL    string                            `yaml:"repositoryUrl"`
	ManifestFileName string                            `yaml:"manifestFileName"`
	DefaultVideoID   string                            `yaml:"defaultVideoId"`
	Plugins          map[string]map[string]interface{} `yaml:"plugins"`
	// Raw data for any additional fields
	Raw map[string]interface{} `yaml:",inline"`
}

// Loader manages configuration file loading and reloading
type Loader struct {
	configDir string
	logger    *zap.Logger

	mu     sync.RWMutex
	player *PlayerConfig
}

// NewLoader creates a new configuration loader
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		configDir: configDir,
		logger:    logger.Named("config"),
	}
}

// ConfigDir returns the directory the loader reads from.
func (l *Loader) ConfigDir() string {
	return l.configDir
}

// LoadAll loads all configuration files
func (l *Loader) LoadAll() error {
	l.logger.Info("Loading configuration files", zap.String("dir", l.configDir))

	if err := l.LoadPlayerConfig(); err != nil {
		return fmt.Errorf("failed to load player config: %w", err)
	}

	l.logger.Info("All configuration files loaded successfully")
	return nil
}

// LoadPlayerConfig loads the config.yml file. A missing file yields the
// defaults so the player can run without any configuration.
func (l *Loader) LoadPlayerConfig() error {
	path := filepath.Join(l.configDir, FileName)
	l.logger.Debug("Loading player config", zap.String("path", path))

	var config PlayerConfig
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		l.logger.Warn("Player config not found, using defaults", zap.String("path", path))
	case err != nil:
		return fmt.Errorf("failed to read player config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse player config: %w", err)
		}
	}

	applyDefaults(&config)

	l.mu.Lock()
	l.player = &config
	l.mu.Unlock()

	l.logger.Info("Player config loaded successfully",
		zap.String("repository", config.RepositoryURL),
		zap.Int("plugins", len(config.Plugins)))
	return nil
}

func applyDefaults(c *PlayerConfig) {
	if c.RepositoryURL == "" {
		c.RepositoryURL = defaultRepositoryURL
	}
	if c.ManifestFileName == "" {
		c.ManifestFileName = defaultManifestFileName
	}
	if c.Plugins == nil {
		c.Plugins = make(map[string]map[string]interface{})
	}
}

// GetPlayerConfig returns the loaded player configuration
func (l *Loader) GetPlayerConfig() *PlayerConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.player
}

// PluginConfigs returns the per-plugin options keyed by plugin name.
func (l *Loader) PluginConfigs() map[string]plugin.Config {
	c := l.GetPlayerConfig()
	if c == nil {
		return map[string]plugin.Config{}
	}

	result := make(map[string]plugin.Config, len(c.Plugins))
	for name, options := range c.Plugins {
		result[name] = plugin.Config(options)
	}
	return result
}

// ManifestLocation returns where the manifest of videoID lives: the
// repository URL joined with the video id and the manifest file name.
// An empty videoID falls back to defaultVideoId.
func (l *Loader) ManifestLocation(videoID string) (string, error) {
	c := l.GetPlayerConfig()
	if c == nil {
		return "", fmt.Errorf("player config not loaded")
	}
	if videoID == "" {
		videoID = c.DefaultVideoID
	}
	if videoID == "" {
		return "", fmt.Errorf("no video id given and no defaultVideoId configured")
	}

	repository := c.RepositoryURL
	if !resource.IsAbsolute(repository) {
		repository = filepath.Join(l.configDir, repository)
	}
	return resource.ManifestFileURL(resource.ManifestURL(repository, videoID), c.ManifestFileName), nil
}
