// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
	"github.com/bureau-foundation/ydocsync/lib/reconcile"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "YDOCSYNC_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the complete ydocsync configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Store configures the SQLite document store.
	Store StoreConfig `yaml:"store"`

	// Reconcile configures key layout and chunk encoding.
	Reconcile ReconcileConfig `yaml:"reconcile"`

	// Chunking holds the content-defined chunking parameters. Every
	// writer of a document must use the same values, or unchanged
	// content will be re-chunked differently and lose deduplication.
	Chunking chunk.Params `yaml:"chunking"`

	// Log configures the command-line tools' logger.
	Log LogConfig `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields an environment section may override.
type Overrides struct {
	Store     *StoreConfig     `yaml:"store,omitempty"`
	Reconcile *ReconcileConfig `yaml:"reconcile,omitempty"`
	Chunking  *chunk.Params    `yaml:"chunking,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	// Path is the database file. Its directory is created on demand.
	Path string `yaml:"path"`

	// PoolSize is the connection count; zero picks a default.
	PoolSize int `yaml:"pool_size"`

	// Durable selects synchronous=FULL. An override section can turn
	// it on but not off.
	Durable bool `yaml:"durable"`
}

// ReconcileConfig configures the reconciler.
type ReconcileConfig struct {
	// Namespace is the first key segment. Default: yjs
	Namespace string `yaml:"namespace"`

	// Compression is none, lz4 or zstd. Default: none
	Compression string `yaml:"compression"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is json or text. Default: json
	Format string `yaml:"format"`
}

// Default returns the configuration values used before the file is
// applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Store: StoreConfig{
			Path: "${YDOCSYNC_DATA:-${HOME}/.local/share/ydocsync}/docs.db",
		},
		Reconcile: ReconcileConfig{
			Namespace:   reconcile.DefaultNamespace,
			Compression: "none",
		},
		Chunking: chunk.DefaultParams(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads the file named by YDOCSYNC_CONFIG. It fails if the
// variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your ydocsync.yaml, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads, overrides, expands and validates the file at path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{Store: &StoreConfig{Durable: true}}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Store != nil {
		if overrides.Store.Path != "" {
			c.Store.Path = overrides.Store.Path
		}
		if overrides.Store.PoolSize != 0 {
			c.Store.PoolSize = overrides.Store.PoolSize
		}
		if overrides.Store.Durable {
			c.Store.Durable = true
		}
	}

	if overrides.Reconcile != nil {
		if overrides.Reconcile.Namespace != "" {
			c.Reconcile.Namespace = overrides.Reconcile.Namespace
		}
		if overrides.Reconcile.Compression != "" {
			c.Reconcile.Compression = overrides.Reconcile.Compression
		}
	}

	// Chunking parameters are replaced as a unit: a partial override
	// could pair a new minimum with an old maximum.
	if overrides.Chunking != nil && *overrides.Chunking != (chunk.Params{}) {
		c.Chunking = *overrides.Chunking
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Store.Path = expandVars(c.Store.Path, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}. A default may itself
// contain one ${VAR} reference.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^}$]|\$\{[^}]*\})*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		if len(parts) >= 3 && parts[2] != "" {
			return expandVars(parts[2], vars)
		}
		return ""
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Store.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("store.pool_size must not be negative"))
	}

	if c.Reconcile.Namespace == "" || strings.Contains(c.Reconcile.Namespace, "/") {
		errs = append(errs, fmt.Errorf("reconcile.namespace must be non-empty and contain no \"/\""))
	}
	if _, err := reconcile.ParseCompression(c.Reconcile.Compression); err != nil {
		errs = append(errs, fmt.Errorf("reconcile.compression: %w", err))
	}

	if err := c.Chunking.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chunking: %w", err))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// ReconcilerConfig returns the reconciler settings in the form
// [reconcile.New] takes. Engine, Validator and Logger are left for the
// caller.
func (c *Config) ReconcilerConfig() (reconcile.Config, error) {
	compression, err := reconcile.ParseCompression(c.Reconcile.Compression)
	if err != nil {
		return reconcile.Config{}, err
	}
	return reconcile.Config{
		Namespace:   c.Reconcile.Namespace,
		Params:      c.Chunking,
		Compression: compression,
	}, nil
}

// EnsureStoreDir creates the directory holding the store file.
func (c *Config) EnsureStoreDir() error {
	dir := filepath.Dir(c.Store.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
