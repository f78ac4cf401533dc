package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTreeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "smith",
			expected: "smith",
		},
		{
			name:     "uppercase converted",
			input:    "Smith",
			expected: "smith",
		},
		{
			name:     "spaces and hyphens to underscores",
			input:    "smith-jones family",
			expected: "smith_jones_family",
		},
		{
			name:     "special characters removed",
			input:    "o'brien!",
			expected: "obrien",
		},
		{
			name:     "leading trailing underscores trimmed",
			input:    "--smith--",
			expected: "smith",
		},
		{
			name:     "empty string returns default",
			input:    "",
			expected: "default",
		},
		{
			name:     "only special chars returns default",
			input:    "!!!",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeTreeName(tt.input))
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4, cfg.Traversal.PedigreeDepth)
	assert.Equal(t, 4, cfg.Traversal.DescendantDepth)
	assert.Equal(t, 3, cfg.Traversal.HourglassDepth)
	assert.Equal(t, 10, cfg.Traversal.MaxGenerations)
	assert.Equal(t, 15, cfg.Traversal.MaxSearchDepth)
	assert.Equal(t, 30, cfg.Traversal.MaxAncestorDepth)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/home/user/project/.lineage", ConfigDir("/home/user/project"))
	assert.Equal(t, "/home/user/project/.lineage/config.yaml", ConfigFilePath("/home/user/project"))
	assert.Equal(t, "/home/user/project/.lineage/trees.yaml", TreesFilePath("/home/user/project"))
	assert.Equal(t, "/p/.lineage/trees/smith_family/lineage.db", SQLitePathForTree("/p", "Smith Family"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	yaml := "traversal:\n  max_search_depth: 8\ncache:\n  ttl: 90s\nlogging:\n  format: json\n"
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), []byte(yaml), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Traversal.MaxSearchDepth)
	assert.Equal(t, 4, cfg.Traversal.PedigreeDepth, "unset keys keep defaults")
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))
	t.Setenv("LINEAGE_LOG_LEVEL", "debug")
	t.Setenv("LINEAGE_CACHE_DISABLED", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), []byte("traversal:\n  pedigree_depth: 40\n"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pedigree_depth")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "zero generations", mutate: func(c *Config) { c.Traversal.MaxGenerations = 0 }, want: "max_generations"},
		{name: "negative search depth", mutate: func(c *Config) { c.Traversal.MaxSearchDepth = -1 }, want: "max_search_depth"},
		{name: "cache without room", mutate: func(c *Config) { c.Cache.MaxEntries = 0 }, want: "max_entries"},
		{name: "unknown level", mutate: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
		{name: "unknown format", mutate: func(c *Config) { c.Logging.Format = "xml" }, want: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	disabled := Default()
	disabled.Cache.Enabled = false
	disabled.Cache.MaxEntries = 0
	assert.NoError(t, disabled.Validate())
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	err := WriteDefault(dir)
	assert.Error(t, err, "existing config is not overwritten")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.SQLite.Path = filepath.Join(dir, "x.db")
	cfg.Cache.TTL = 3 * time.Minute

	require.NoError(t, Write(dir, cfg))
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestTreesConfig(t *testing.T) {
	dir := t.TempDir()

	trees, err := LoadTrees(dir)
	require.NoError(t, err)
	assert.Empty(t, trees.Trees)
	_, err = trees.Get("smith")
	assert.EqualError(t, err, "no trees configured")

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	trees.Add("smith", TreeEntry{ID: "tree-smith", Description: "Smiths", CreatedAt: created})
	trees.Add("jones", TreeEntry{ID: "tree-jones", CreatedAt: created})
	require.NoError(t, trees.Save(dir))

	loaded, err := LoadTrees(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"jones", "smith"}, loaded.Names())
	entry, err := loaded.Get("smith")
	require.NoError(t, err)
	assert.Equal(t, "tree-smith", entry.ID)
	assert.True(t, created.Equal(entry.CreatedAt))

	_, err = loaded.Get("brown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jones, smith")

	loaded.Remove("smith")
	assert.False(t, loaded.Exists("smith"))
	assert.True(t, loaded.Exists("jones"))
}
