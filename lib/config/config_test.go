// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
	"github.com/bureau-foundation/ydocsync/lib/reconcile"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ydocsync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Reconcile.Namespace != "yjs" {
		t.Errorf("expected namespace=yjs, got %s", cfg.Reconcile.Namespace)
	}
	if cfg.Chunking != chunk.DefaultParams() {
		t.Errorf("expected default chunking, got %v", cfg.Chunking)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when YDOCSYNC_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "YDOCSYNC_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithEnvVar(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, `
environment: staging
store:
  path: /data/docs.db
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Store.Path != "/data/docs.db" {
		t.Errorf("expected path=/data/docs.db, got %s", cfg.Store.Path)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: development
store:
  path: /srv/ydocsync/docs.db
  pool_size: 6
reconcile:
  namespace: docs
  compression: zstd
chunking:
  average: 4096
  min: 1024
  max: 16384
log:
  level: debug
  format: text
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Store.PoolSize != 6 {
		t.Errorf("expected pool_size=6, got %d", cfg.Store.PoolSize)
	}
	want := chunk.Params{Average: 4096, Min: 1024, Max: 16384}
	if cfg.Chunking != want {
		t.Errorf("expected chunking %v, got %v", want, cfg.Chunking)
	}

	reconcileConfig, err := cfg.ReconcilerConfig()
	if err != nil {
		t.Fatalf("ReconcilerConfig: %v", err)
	}
	if reconcileConfig.Namespace != "docs" || reconcileConfig.Compression != reconcile.CompressionZstd || reconcileConfig.Params != want {
		t.Errorf("unexpected reconciler config %+v", reconcileConfig)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, %v; want debug", level, err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "store: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := LoadFile(writeConfig(t, "chunking:\n  average: 10\n  min: 20\n  max: 30\n")); err == nil {
		t.Error("expected error for invalid chunking parameters")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		path        string
		compression string
		durable     bool
		chunking    chunk.Params
	}{
		{
			name: "development section applies",
			content: `
environment: development
store:
  path: /base.db
development:
  store:
    path: /dev.db
  reconcile:
    compression: lz4
staging:
  store:
    path: /staging.db
`,
			path:        "/dev.db",
			compression: "lz4",
			chunking:    chunk.DefaultParams(),
		},
		{
			name: "production defaults to durable",
			content: `
environment: production
store:
  path: /prod.db
`,
			path:        "/prod.db",
			compression: "none",
			durable:     true,
			chunking:    chunk.DefaultParams(),
		},
		{
			name: "chunking replaced as a unit",
			content: `
environment: staging
store:
  path: /base.db
staging:
  chunking:
    average: 2048
    min: 512
    max: 8192
`,
			path:        "/base.db",
			compression: "none",
			chunking:    chunk.Params{Average: 2048, Min: 512, Max: 8192},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if cfg.Store.Path != tt.path {
				t.Errorf("path = %s, want %s", cfg.Store.Path, tt.path)
			}
			if cfg.Reconcile.Compression != tt.compression {
				t.Errorf("compression = %s, want %s", cfg.Reconcile.Compression, tt.compression)
			}
			if cfg.Store.Durable != tt.durable {
				t.Errorf("durable = %v, want %v", cfg.Store.Durable, tt.durable)
			}
			if cfg.Chunking != tt.chunking {
				t.Errorf("chunking = %v, want %v", cfg.Chunking, tt.chunking)
			}
		})
	}
}

func TestStorePathExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/writer")

	t.Setenv("YDOCSYNC_DATA", "")
	cfg, err := LoadFile(writeConfig(t, "environment: development\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Store.Path != "/home/writer/.local/share/ydocsync/docs.db" {
		t.Errorf("default path = %s", cfg.Store.Path)
	}

	t.Setenv("YDOCSYNC_DATA", "/var/lib/ydocsync")
	cfg, err = LoadFile(writeConfig(t, "environment: development\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Store.Path != "/var/lib/ydocsync/docs.db" {
		t.Errorf("path with YDOCSYNC_DATA = %s", cfg.Store.Path)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("YDOCSYNC_TEST_UNSET", "")
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/docs",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/docs",
		},
		{
			input:    "${YDOCSYNC_TEST_UNSET:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${YDOCSYNC_TEST_UNSET:-${HOME}/fallback}",
			vars:     map[string]string{"HOME": "/h"},
			expected: "/h/fallback",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "invalid environment", modify: func(c *Config) { c.Environment = "invalid" }, wantErr: true},
		{name: "empty store path", modify: func(c *Config) { c.Store.Path = "" }, wantErr: true},
		{name: "negative pool size", modify: func(c *Config) { c.Store.PoolSize = -1 }, wantErr: true},
		{name: "namespace with slash", modify: func(c *Config) { c.Reconcile.Namespace = "a/b" }, wantErr: true},
		{name: "unknown compression", modify: func(c *Config) { c.Reconcile.Compression = "brotli" }, wantErr: true},
		{name: "max below min", modify: func(c *Config) { c.Chunking.Max = c.Chunking.Min - 1 }, wantErr: true},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "bad log format", modify: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureStoreDir(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "dir", "docs.db")

	if err := cfg.EnsureStoreDir(); err != nil {
		t.Fatalf("EnsureStoreDir failed: %v", err)
	}
	info, err := os.Stat(filepath.Dir(cfg.Store.Path))
	if err != nil || !info.IsDir() {
		t.Errorf("store directory not created: %v", err)
	}
}
