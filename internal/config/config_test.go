package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsDocumentedDefaults(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, int64(50<<20), cfg.Engine.SegmentSize)
	assert.Equal(t, int64(1<<20), cfg.Engine.DocumentsBufferSize)
	assert.Equal(t, 5, cfg.Engine.DocumentsSaveAfterSeconds)
	assert.Equal(t, 0.3, cfg.Engine.MergeDeletedRatio)
	assert.Equal(t, 100_000, cfg.Engine.MetadataSaveAfterOperations)
	assert.Equal(t, 10, cfg.Engine.MetadataSaveAfterSeconds)
	assert.Equal(t, int64(1<<20), cfg.Engine.IndexBufferSize)
	assert.Equal(t, 100_000, cfg.Engine.IndexSaveAfterOperations)
	assert.Equal(t, 5, cfg.Engine.IndexSaveAfterSeconds)
	assert.NotEmpty(t, cfg.Engine.StopWords)
	assert.Contains(t, cfg.Engine.StopWords, "the")

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, int64(50<<20), cfg.Engine.SegmentSize)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
engine:
  segment_size: 1048576
  merge_deleted_ratio: 0.5
`
	err := os.WriteFile(filepath.Join(tmpDir, ".minisearch.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, int64(1048576), cfg.Engine.SegmentSize)
	assert.Equal(t, 0.5, cfg.Engine.MergeDeletedRatio)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
server:
  log_level: debug
`
	err := os.WriteFile(filepath.Join(tmpDir, ".minisearch.yml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := "server:\n  log_level: warn\n"
	ymlContent := "server:\n  log_level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".minisearch.yaml"), []byte(yamlContent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".minisearch.yml"), []byte(ymlContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := "engine:\n  segment_size: [invalid yaml syntax\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".minisearch.yaml"), []byte(invalidContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_InvalidMergeRatio_ReturnsValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "engine:\n  merge_deleted_ratio: 1.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".minisearch.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "merge_deleted_ratio")
}

func TestLoad_EnvVarOverridesSegmentSize(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MINISEARCH_SEGMENT_SIZE", "2048")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.Engine.SegmentSize)
}

func TestLoad_EnvVarOverridesMergeDeletedRatio(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "engine:\n  merge_deleted_ratio: 0.2\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".minisearch.yaml"), []byte(configContent), 0o644))
	t.Setenv("MINISEARCH_MERGE_DELETED_RATIO", "0.6")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Engine.MergeDeletedRatio)
}

func TestLoad_EnvVarOverridesTransport(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MINISEARCH_TRANSPORT", "sse")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sse", cfg.Server.Transport)
}

func TestLoad_EnvVarOverridesStopWords(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MINISEARCH_STOP_WORDS", "foo,bar,baz")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "baz"}, cfg.Engine.StopWords)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MINISEARCH_TRANSPORT", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "minisearch", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	expected := filepath.Join(customConfig, "minisearch", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()

	assert.Equal(t, filepath.Dir(path), dir)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	minisearchDir := filepath.Join(configDir, "minisearch")
	require.NoError(t, os.MkdirAll(minisearchDir, 0o755))
	configPath := filepath.Join(minisearchDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  transport: stdio\n"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	minisearchDir := filepath.Join(configDir, "minisearch")
	require.NoError(t, os.MkdirAll(minisearchDir, 0o755))
	userConfig := "engine:\n  segment_size: 4096\n"
	require.NoError(t, os.WriteFile(filepath.Join(minisearchDir, "config.yaml"), []byte(userConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.Engine.SegmentSize)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	minisearchDir := filepath.Join(configDir, "minisearch")
	require.NoError(t, os.MkdirAll(minisearchDir, 0o755))
	userConfig := "engine:\n  segment_size: 4096\n  index_buffer_size: 8192\n"
	require.NoError(t, os.WriteFile(filepath.Join(minisearchDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "engine:\n  segment_size: 8192\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".minisearch.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, int64(8192), cfg.Engine.SegmentSize)
	// Untouched user override survives
	assert.Equal(t, int64(8192), cfg.Engine.IndexBufferSize)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("MINISEARCH_SEGMENT_SIZE", "16384")

	minisearchDir := filepath.Join(configDir, "minisearch")
	require.NoError(t, os.MkdirAll(minisearchDir, 0o755))
	userConfig := "engine:\n  segment_size: 4096\n"
	require.NoError(t, os.WriteFile(filepath.Join(minisearchDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "engine:\n  segment_size: 8192\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".minisearch.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, int64(16384), cfg.Engine.SegmentSize)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	minisearchDir := filepath.Join(configDir, "minisearch")
	require.NoError(t, os.MkdirAll(minisearchDir, 0o755))
	invalidConfig := "engine:\n  segment_size: [invalid yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(minisearchDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(projectDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg := Default()
	cfg.Engine.SegmentSize = 123456
	require.NoError(t, cfg.WriteYAML(path))

	loaded := Default()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, int64(123456), loaded.Engine.SegmentSize)
}
