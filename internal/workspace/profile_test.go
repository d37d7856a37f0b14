package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileMatches(t *testing.T) {
	profile := &SyncProfile{
		Include: []string{"src/**", "*.md"},
		Exclude: []string{"src/**/*.test.ts"},
	}
	require.NoError(t, profile.Validate())

	assert.True(t, profile.Matches("src/app/main.ts"))
	assert.True(t, profile.Matches("README.md"))
	assert.False(t, profile.Matches("node_modules/x/index.js"))
	assert.False(t, profile.Matches("src/app/main.test.ts"))
}

func TestProfileMatches_EmptyIncludeMeansAll(t *testing.T) {
	profile := &SyncProfile{Exclude: []string{"tmp/**"}}

	assert.True(t, profile.Matches("anything/goes.txt"))
	assert.False(t, profile.Matches("tmp/scratch.txt"))
}

func TestLoadProfile_MissingFileYieldsDefault(t *testing.T) {
	profile, err := LoadProfile(filepath.Join(t.TempDir(), "profile.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), profile)
	assert.True(t, profile.Matches("any/file.go"))
}

func TestLoadProfile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	orig := &SyncProfile{Include: []string{"docs/**"}, Exclude: []string{"docs/drafts/**"}}
	require.NoError(t, orig.Save(path))

	loaded, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, orig, loaded)
}

func TestLoadProfile_BadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("include:\n  - \"src/[\"\n"), 0o644))

	_, err := LoadProfile(path)
	require.Error(t, err)
}
