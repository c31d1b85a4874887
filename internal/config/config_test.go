package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingConfigReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, []string{"**/*.rb"}, cfg.Include)
}

func TestLoadParsesKDL(t *testing.T) {
	dir := t.TempDir()
	kdl := `
include "**/*.rb" "**/*.erb"
exclude "**/spec/**"
required "json" "set"
domains "Kernel"
archive "/archives/stdlib.yaml"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".apimap.kdl"), []byte(kdl), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Contains(t, cfg.Include, "**/*.erb")
	assert.Contains(t, cfg.Exclude, "**/spec/**")
	assert.ElementsMatch(t, []string{"json", "set"}, cfg.Required)
	assert.Equal(t, []string{"Kernel"}, cfg.Domains)
	assert.Equal(t, []string{"/archives/stdlib.yaml"}, cfg.ArchivePaths)
}

func TestCalculatedRespectsIncludeExclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "a.rb"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "b.rb"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte(""), 0644))

	cfg := Default(dir)
	files, err := cfg.Calculated()
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(dir, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Contains(t, rel, "lib/a.rb")
	assert.NotContains(t, rel, "vendor/b.rb")
	assert.NotContains(t, rel, "readme.md")
}

func TestIsSourceFilename(t *testing.T) {
	cfg := Default(".")
	assert.True(t, cfg.IsSourceFilename(""))
	assert.True(t, cfg.IsSourceFilename("a.rb"))
	assert.False(t, cfg.IsSourceFilename("a.txt"))
}
