package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		src  string
		want string
	}{
		{
			name: "relative against http manifest",
			base: "https://media.example.com/repo/video1/data.json",
			src:  "presenter_1280.mp4",
			want: "https://media.example.com/repo/video1/presenter_1280.mp4",
		},
		{
			name: "relative subdirectory against http manifest",
			base: "https://media.example.com/repo/video1/data.json",
			src:  "media/slides.mp4",
			want: "https://media.example.com/repo/video1/media/slides.mp4",
		},
		{
			name: "absolute url passes through",
			base: "https://media.example.com/repo/video1/data.json",
			src:  "https://cdn.example.com/a.mp4",
			want: "https://cdn.example.com/a.mp4",
		},
		{
			name: "rooted path passes through",
			base: "https://media.example.com/repo/video1/data.json",
			src:  "/static/a.mp4",
			want: "/static/a.mp4",
		},
		{
			name: "relative against filesystem manifest",
			base: "repository/video1/data.json",
			src:  "a.mp4",
			want: "repository/video1/a.mp4",
		},
		{
			name: "no base",
			base: "",
			src:  "a.mp4",
			want: "a.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewResolver(tt.base).Resolve(tt.src))
		})
	}
}

func TestManifestPaths(t *testing.T) {
	assert.Equal(t, "repository/video1", ManifestURL("repository/", "video1"))
	assert.Equal(t, "https://host/repo/video1", ManifestURL("https://host/repo", "/video1/"))
	assert.Equal(t, "https://host/repo/video1/data.json", ManifestFileURL("https://host/repo/video1", "data.json"))
	assert.Equal(t, "a/b", JoinPath("", "a", "", "b"))
}
