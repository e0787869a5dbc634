// Package resource maps manifest-relative resource paths to fetchable URLs.
package resource

import (
	"net/url"
	"path"
	"strings"
)

// Resolver resolves source paths against the URL of the manifest that
// referenced them.
type Resolver struct {
	base string
}

// NewResolver creates a resolver for resources referenced by the manifest
// located at manifestURL (a URL or a filesystem path). Sources are
// resolved relative to the manifest's directory.
func NewResolver(manifestURL string) *Resolver {
	return &Resolver{base: manifestURL}
}

// Base returns the manifest location the resolver was built with.
func (r *Resolver) Base() string {
	return r.base
}

// Resolve returns src unchanged when it is absolute (has a scheme or is a
// rooted path); otherwise it is joined to the manifest's directory.
func (r *Resolver) Resolve(src string) string {
	if src == "" || r.base == "" || IsAbsolute(src) {
		return src
	}

	if baseURL, err := url.Parse(r.base); err == nil && baseURL.Scheme != "" && baseURL.Host != "" {
		ref, err := url.Parse(src)
		if err != nil {
			return src
		}
		return baseURL.ResolveReference(ref).String()
	}

	return path.Join(path.Dir(r.base), src)
}

// IsAbsolute reports whether src carries a scheme or starts at the root.
func IsAbsolute(src string) bool {
	if strings.HasPrefix(src, "/") {
		return true
	}
	u, err := url.Parse(src)
	return err == nil && u.Scheme != ""
}

// JoinPath joins URL or path segments with single slashes, keeping the
// scheme separator of the first segment intact.
func JoinPath(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(strings.TrimRight(p, "/"))
			if i == len(parts)-1 && strings.HasSuffix(p, "/") {
				b.WriteString("/")
			}
			continue
		}
		b.WriteString("/")
		b.WriteString(strings.Trim(p, "/"))
	}
	return b.String()
}

// ManifestURL returns the location of a video's manifest directory inside
// a repository.
func ManifestURL(repositoryURL, videoID string) string {
	return JoinPath(repositoryURL, videoID)
}

// ManifestFileURL returns the location of the manifest file itself.
func ManifestFileURL(manifestURL, manifestFileName string) string {
	return JoinPath(manifestURL, manifestFileName)
}
