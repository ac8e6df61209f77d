package tools

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memtwin/memtwin/internal/config"
)

func TestParseRepoName(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"ssh format", "git@github.com:owner/repo.git", "repo"},
		{"ssh without suffix", "git@github.com:owner/repo", "repo"},
		{"https format", "https://github.com/owner/repo.git", "repo"},
		{"http format", "http://github.com/owner/repo", "repo"},
		{"empty", "", ""},
		{"garbage", "not-a-url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRepoName(tt.url))
		})
	}
}

func TestDetectProjectPrecedence(t *testing.T) {
	cfg := &config.Config{DefaultProject: "from-config"}

	assert.Equal(t, "explicit", DetectProject("explicit", cfg))
	assert.Equal(t, "from-config", DetectProject("", cfg))

	// Without explicit input or config the detector falls back to git or
	// cwd, both non-empty in any realistic environment.
	assert.NotEmpty(t, DetectProject("", &config.Config{}))
}

func TestDetectProjectFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got := DetectProject("", &config.Config{})
	assert.Equal(t, filepath.Base(dir), got)
}

func TestLoadLeavesDefaultProjectEmpty(t *testing.T) {
	// An unset default must not shadow git/cwd auto-detection.
	assert.Empty(t, config.Load().DefaultProject)
}
