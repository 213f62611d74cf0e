// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles docchat configuration.
//
// Configuration is loaded in layers, later layers winning:
//   - Built-in defaults
//   - ~/.docchat/config.toml
//   - Environment variables (DOCCHAT_*)
//
// The config file holds the API key, so it is created and kept at 0600.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the top-level docchat configuration.
type Config struct {
	// BackendURL is the document-chat backend address.
	BackendURL string `toml:"backend_url"`

	// APIKey is the upstream LLM key the backend forwards. Never logged.
	APIKey string `toml:"api_key"`

	// Model is the upstream model identifier sent with chat requests.
	Model string `toml:"model"`

	// DeveloperMessage is the system prompt sent with every turn.
	DeveloperMessage string `toml:"developer_message"`

	// HealthCheck enables the pre-flight reachability probe before each send.
	HealthCheck bool `toml:"health_check"`

	// Retrieval holds the document chunking and retrieval parameters.
	Retrieval RetrievalConfig `toml:"retrieval"`

	// UI holds rendering knobs.
	UI UIConfig `toml:"ui"`
}

// RetrievalConfig mirrors the backend's splitter and retriever parameters.
// Values outside the valid ranges are clamped at load time.
type RetrievalConfig struct {
	ChunkSize      int `toml:"chunk_size"`
	ChunkOverlap   int `toml:"chunk_overlap"`
	RetrievalCount int `toml:"retrieval_count"`
}

// UIConfig tunes streaming render behavior.
type UIConfig struct {
	// StreamBatchSize is how many fragments accumulate before a forced
	// repaint.
	StreamBatchSize int `toml:"stream_batch_size"`

	// MaxFPS caps repaints per second during streaming.
	MaxFPS int `toml:"max_fps"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL:       "http://localhost:8000",
		Model:            "gpt-4o-mini",
		DeveloperMessage: "You are a helpful assistant that answers questions about uploaded documents.",
		HealthCheck:      true,
		Retrieval: RetrievalConfig{
			ChunkSize:      model.DefaultChunkSize,
			ChunkOverlap:   model.DefaultChunkOverlap,
			RetrievalCount: model.DefaultRetrievalCount,
		},
		UI: UIConfig{
			StreamBatchSize: 5,
			MaxFPS:          30,
		},
	}
}

// RetrievalSettings converts the raw config values into clamped settings.
func (c *Config) RetrievalSettings() model.RetrievalSettings {
	return model.NewRetrievalSettings(c.Retrieval.ChunkSize, c.Retrieval.ChunkOverlap, c.Retrieval.RetrievalCount)
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the docchat configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".docchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes overly permissive modes on the config file,
// which holds the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file if present, applies environment overrides, and
// validates. A missing file is not an error; defaults are used.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file path, for tests and the
// -config flag.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			return nil, err
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default path with 0600 permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path, creating the directory as
// needed. The file is created 0600 because it holds the API key.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# docchat configuration file")
	fmt.Fprintln(file, "# Generated by docchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// OVERRIDES AND VALIDATION
// =============================================================================

// ApplyEnvOverrides applies DOCCHAT_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("DOCCHAT_API_KEY"); key != "" {
		c.APIKey = key
	}
	if u := os.Getenv("DOCCHAT_BACKEND_URL"); u != "" {
		c.BackendURL = u
	}
	if m := os.Getenv("DOCCHAT_MODEL"); m != "" {
		c.Model = m
	}
}

// Validate checks the configuration, filling empty fields with defaults and
// clamping numeric values into their valid ranges.
func (c *Config) Validate() error {
	def := Default()

	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	if c.BackendURL == "" {
		c.BackendURL = def.BackendURL
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url must be an http(s) URL, got %q", c.BackendURL)
	}

	if strings.TrimSpace(c.Model) == "" {
		c.Model = def.Model
	}
	if strings.TrimSpace(c.DeveloperMessage) == "" {
		c.DeveloperMessage = def.DeveloperMessage
	}

	// Clamp retrieval values through the same rules used at runtime.
	s := c.RetrievalSettings()
	c.Retrieval.ChunkSize = s.ChunkSize()
	c.Retrieval.ChunkOverlap = s.ChunkOverlap()
	c.Retrieval.RetrievalCount = s.RetrievalCount()

	if c.UI.StreamBatchSize < 1 {
		c.UI.StreamBatchSize = def.UI.StreamBatchSize
	}
	if c.UI.MaxFPS < 1 || c.UI.MaxFPS > 120 {
		c.UI.MaxFPS = def.UI.MaxFPS
	}
	return nil
}
