package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/minisearch/internal/analysis"
)

// Config is the complete minisearch configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine" json:"engine"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// EngineConfig mirrors the recognised options table: segment/buffer sizes,
// save thresholds, merge ratio, and the stop-word list.
type EngineConfig struct {
	SegmentSize                  int64    `yaml:"segment_size" json:"segment_size"`
	DocumentsBufferSize          int64    `yaml:"documents_buffer_size" json:"documents_buffer_size"`
	DocumentsSaveAfterSeconds    int      `yaml:"documents_save_after_seconds" json:"documents_save_after_seconds"`
	MergeDeletedRatio            float64  `yaml:"merge_deleted_ratio" json:"merge_deleted_ratio"`
	MetadataSaveAfterOperations  int      `yaml:"metadata_save_after_operations" json:"metadata_save_after_operations"`
	MetadataSaveAfterSeconds     int      `yaml:"metadata_save_after_seconds" json:"metadata_save_after_seconds"`
	IndexBufferSize              int64    `yaml:"index_buffer_size" json:"index_buffer_size"`
	IndexSaveAfterOperations     int      `yaml:"index_save_after_operations" json:"index_save_after_operations"`
	IndexSaveAfterSeconds        int      `yaml:"index_save_after_seconds" json:"index_save_after_seconds"`
	StopWords                    []string `yaml:"stop_words" json:"stop_words"`
}

// ServerConfig configures the MCP server command.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			SegmentSize:                 50 << 20,
			DocumentsBufferSize:         1 << 20,
			DocumentsSaveAfterSeconds:   5,
			MergeDeletedRatio:           0.3,
			MetadataSaveAfterOperations: 100_000,
			MetadataSaveAfterSeconds:    10,
			IndexBufferSize:             1 << 20,
			IndexSaveAfterOperations:    100_000,
			IndexSaveAfterSeconds:       5,
			StopWords:                   append([]string(nil), analysis.DefaultStopWords...),
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file,
// following the XDG Base Directory convention:
//   - $XDG_CONFIG_HOME/minisearch/config.yaml (if set)
//   - ~/.config/minisearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "minisearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "minisearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "minisearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if present.
// Returns a nil config and nil error when the file doesn't exist.
func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}

	cfg := Default()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user configuration file.
// Returns a nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load loads configuration for the index at dir, applying, in order of
// increasing precedence:
//  1. compiled-in defaults
//  2. the user/global config (~/.config/minisearch/config.yaml)
//  3. the per-index config (<dir>/.minisearch.yaml or .yml)
//  4. MINISEARCH_* environment variables
//
// The merged configuration is validated before being returned.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads <dir>/.minisearch.yaml, falling back to .yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".minisearch.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".minisearch.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Engine.SegmentSize != 0 {
		c.Engine.SegmentSize = other.Engine.SegmentSize
	}
	if other.Engine.DocumentsBufferSize != 0 {
		c.Engine.DocumentsBufferSize = other.Engine.DocumentsBufferSize
	}
	if other.Engine.DocumentsSaveAfterSeconds != 0 {
		c.Engine.DocumentsSaveAfterSeconds = other.Engine.DocumentsSaveAfterSeconds
	}
	if other.Engine.MergeDeletedRatio != 0 {
		c.Engine.MergeDeletedRatio = other.Engine.MergeDeletedRatio
	}
	if other.Engine.MetadataSaveAfterOperations != 0 {
		c.Engine.MetadataSaveAfterOperations = other.Engine.MetadataSaveAfterOperations
	}
	if other.Engine.MetadataSaveAfterSeconds != 0 {
		c.Engine.MetadataSaveAfterSeconds = other.Engine.MetadataSaveAfterSeconds
	}
	if other.Engine.IndexBufferSize != 0 {
		c.Engine.IndexBufferSize = other.Engine.IndexBufferSize
	}
	if other.Engine.IndexSaveAfterOperations != 0 {
		c.Engine.IndexSaveAfterOperations = other.Engine.IndexSaveAfterOperations
	}
	if other.Engine.IndexSaveAfterSeconds != 0 {
		c.Engine.IndexSaveAfterSeconds = other.Engine.IndexSaveAfterSeconds
	}
	if len(other.Engine.StopWords) > 0 {
		c.Engine.StopWords = other.Engine.StopWords
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies MINISEARCH_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MINISEARCH_SEGMENT_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Engine.SegmentSize = n
		}
	}
	if v := os.Getenv("MINISEARCH_DOCUMENTS_BUFFER_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Engine.DocumentsBufferSize = n
		}
	}
	if v := os.Getenv("MINISEARCH_DOCUMENTS_SAVE_AFTER_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.DocumentsSaveAfterSeconds = n
		}
	}
	if v := os.Getenv("MINISEARCH_MERGE_DELETED_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Engine.MergeDeletedRatio = f
		}
	}
	if v := os.Getenv("MINISEARCH_METADATA_SAVE_AFTER_OPERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.MetadataSaveAfterOperations = n
		}
	}
	if v := os.Getenv("MINISEARCH_METADATA_SAVE_AFTER_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.MetadataSaveAfterSeconds = n
		}
	}
	if v := os.Getenv("MINISEARCH_INDEX_BUFFER_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Engine.IndexBufferSize = n
		}
	}
	if v := os.Getenv("MINISEARCH_INDEX_SAVE_AFTER_OPERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.IndexSaveAfterOperations = n
		}
	}
	if v := os.Getenv("MINISEARCH_INDEX_SAVE_AFTER_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.IndexSaveAfterSeconds = n
		}
	}
	if v := os.Getenv("MINISEARCH_STOP_WORDS"); v != "" {
		c.Engine.StopWords = strings.Split(v, ",")
	}

	if v := os.Getenv("MINISEARCH_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("MINISEARCH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("MINISEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Engine.SegmentSize <= 0 {
		return fmt.Errorf("segment_size must be positive, got %d", c.Engine.SegmentSize)
	}
	if c.Engine.DocumentsBufferSize <= 0 {
		return fmt.Errorf("documents_buffer_size must be positive, got %d", c.Engine.DocumentsBufferSize)
	}
	if c.Engine.MergeDeletedRatio < 0 || c.Engine.MergeDeletedRatio > 1 {
		return fmt.Errorf("merge_deleted_ratio must be between 0 and 1, got %f", c.Engine.MergeDeletedRatio)
	}
	if c.Engine.IndexBufferSize <= 0 {
		return fmt.Errorf("index_buffer_size must be positive, got %d", c.Engine.IndexBufferSize)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
