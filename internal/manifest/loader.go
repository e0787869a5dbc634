// Package manifest loads video manifests from files or URLs and builds
// manifests from bare media file lists.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"mediaplayer/pkg/plugin"
	"mediaplayer/pkg/video"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const _maxManifestSize = 4 * 1024 * 1024 // 4 MB

// Loader reads video manifests.
type Loader struct {
	logger *zap.Logger
	client *http.Client
}

// NewLoader creates a manifest loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		logger: logger.Named("manifest"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load reads the manifest at location, which is either an http(s) URL or a
// filesystem path.
func (l *Loader) Load(ctx context.Context, location string) (*video.Manifest, error) {
	var (
		data []byte
		err  error
	)
	if IsRemote(location) {
		data, err = l.fetch(ctx, location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", location, err)
	}

	var m video.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", location, err)
	}
	if len(m.Streams) == 0 {
		return nil, fmt.Errorf("manifest %s has no streams", location)
	}

	l.logger.Info("Manifest loaded",
		zap.String("location", location),
		zap.Int("streams", len(m.Streams)))
	return &m, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	l.logger.Debug("Manifest fetched", zap.Int("bytes", len(data)), zap.String("url", url))
	return data, nil
}

// FromFiles builds a manifest with one stream per media file. Each file is
// handed to the first enabled video plugin that declares its extension. The
// first file carries the main audio.
func FromFiles(r *plugin.Registry, fileURLs []string) (*video.Manifest, error) {
	if len(fileURLs) == 0 {
		return nil, fmt.Errorf("no media files given")
	}

	m := &video.Manifest{
		Metadata: map[string]interface{}{"title": path.Base(fileURLs[0])},
	}
	for i, url := range fileURLs {
		ext := path.Ext(url)
		p := video.PluginForExtension(r, ext)
		if p == nil {
			return nil, fmt.Errorf("no video plugin handles %q files (%s)", ext, url)
		}

		stream := video.StreamData{
			Content: contentName(i, url),
			Sources: p.ManifestData([]string{url}),
		}
		if i == 0 {
			stream.Role = video.RoleMainAudio
		}
		m.Streams = append(m.Streams, stream)
	}

	if dup := lo.FindDuplicates(lo.Map(m.Streams, func(s video.StreamData, _ int) string { return s.Content })); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate stream names: %s", strings.Join(dup, ", "))
	}
	return m, nil
}

// contentName derives a stream name from the file name.
func contentName(i int, url string) string {
	name := strings.TrimSuffix(path.Base(url), path.Ext(url))
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("stream%d", i)
	}
	return name
}
