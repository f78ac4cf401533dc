// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for lineage configuration.
	DefaultConfigDir = ".lineage"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultTreesFile is the default trees registry file name.
	DefaultTreesFile = "trees.yaml"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	SQLite    SQLiteConfig    `yaml:"sqlite,omitempty"`
	Traversal TraversalConfig `yaml:"traversal"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SQLiteConfig holds configuration for the SQLite graph store.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-tree databases, this is computed dynamically using SQLitePathForTree.
	Path string `yaml:"path,omitempty"`
}

// TraversalConfig bounds the read algorithms.
type TraversalConfig struct {
	PedigreeDepth    int `yaml:"pedigree_depth"`
	DescendantDepth  int `yaml:"descendant_depth"`
	HourglassDepth   int `yaml:"hourglass_depth"`
	MaxGenerations   int `yaml:"max_generations"`
	MaxSearchDepth   int `yaml:"max_search_depth"`
	MaxAncestorDepth int `yaml:"max_ancestor_depth"`
}

// CacheConfig configures the traversal cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Traversal: TraversalConfig{
			PedigreeDepth:    4,
			DescendantDepth:  4,
			HourglassDepth:   3,
			MaxGenerations:   10,
			MaxSearchDepth:   15,
			MaxAncestorDepth: 30,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 512,
			TTL:        10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the .lineage directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'lineage trees create' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("LINEAGE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("LINEAGE_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
	if v := os.Getenv("LINEAGE_CACHE_DISABLED"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = !disabled
		}
	}
}

// Validate checks that every limit is usable.
func (c *Config) Validate() error {
	var errs []error
	t := c.Traversal
	if t.MaxGenerations < 1 {
		errs = append(errs, errors.New("traversal.max_generations must be at least 1"))
	}
	for name, v := range map[string]int{
		"pedigree_depth":   t.PedigreeDepth,
		"descendant_depth": t.DescendantDepth,
		"hourglass_depth":  t.HourglassDepth,
	} {
		if v < 1 || v > t.MaxGenerations {
			errs = append(errs, fmt.Errorf("traversal.%s must be between 1 and max_generations (%d), got %d", name, t.MaxGenerations, v))
		}
	}
	if t.MaxSearchDepth < 1 {
		errs = append(errs, errors.New("traversal.max_search_depth must be at least 1"))
	}
	if t.MaxAncestorDepth < 1 {
		errs = append(errs, errors.New("traversal.max_ancestor_depth must be at least 1"))
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		errs = append(errs, errors.New("cache.max_entries must be at least 1 when the cache is enabled"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the path to the .lineage config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// TreesFilePath returns the path to the trees registry.
func TreesFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultTreesFile)
}

// Exists checks if a lineage config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}

// SanitizeTreeName converts a tree name to a safe directory name.
func SanitizeTreeName(name string) string {
	name = strings.ToLower(name)

	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	name = reNonAlphanumeric.ReplaceAllString(name, "")
	name = reMultipleUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// SQLitePathForTree returns the SQLite database path for a given tree.
func SQLitePathForTree(basePath, treeName string) string {
	return filepath.Join(TreeDir(basePath, treeName), "lineage.db")
}

// TreeDir returns the directory path for a given tree.
func TreeDir(basePath, treeName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "trees", SanitizeTreeName(treeName))
}
