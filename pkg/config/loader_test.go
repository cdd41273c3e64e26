package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
	return dir
}

func TestInitialize(t *testing.T) {
	t.Setenv("DRAFTER_WS_HOST", "agents.example.com")

	dir := writeConfig(t, `
log_level: debug
connection:
  url: "wss://{{.DRAFTER_WS_HOST}}/ws/chat/{session_id}/"
  token_query_param: token
  debounce_interval: 500ms
  reconnect:
    max_delay: 10s
    max_attempts: 3
api:
  base_url: https://agents.example.com/api
  token_env: MY_TOKEN
editor:
  section_class: section
  hydrate_history: false
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ConfigDir())
	assert.Equal(t, "debug", cfg.LogLevel)

	// User values
	assert.Equal(t, "wss://agents.example.com/ws/chat/{session_id}/", cfg.Connection.URL)
	assert.Equal(t, "token", cfg.Connection.TokenQueryParam)
	assert.Equal(t, 500*time.Millisecond, cfg.Connection.DebounceInterval)
	assert.Equal(t, 10*time.Second, cfg.Connection.Reconnect.MaxDelay)
	assert.Equal(t, 3, cfg.Connection.Reconnect.MaxAttempts)
	assert.Equal(t, "https://agents.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "MY_TOKEN", cfg.API.TokenEnv)
	assert.Equal(t, "section", cfg.Editor.SectionClass)
	assert.False(t, cfg.Editor.HydrateHistory)

	// Defaults preserved where unset
	assert.Equal(t, time.Second, cfg.Connection.Reconnect.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Connection.DialTimeout)
	assert.Equal(t, 4001, cfg.Connection.UnauthorizedCloseCode)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "data-section-id", cfg.Editor.SectionAttribute)
	assert.Equal(t, "selectable-text", cfg.Editor.SelectableClass)
	assert.True(t, cfg.Editor.LoadDocumentOnStart)
}

func TestInitializeMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultConnectionConfig(), cfg.Connection)
	assert.Equal(t, DefaultAPIConfig(), cfg.API)
	assert.Equal(t, DefaultEditorConfig(), cfg.Editor)
}

func TestInitializeInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "connection: [unclosed")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, FileName, loadErr.File)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeValidationFailure(t *testing.T) {
	dir := writeConfig(t, `
connection:
  url: http://localhost:8000/ws/
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "url")
}

func TestConfigConversions(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	cc := cfg.ConnectionSettings()
	assert.Equal(t, cfg.Connection.URL, cc.URL)
	assert.Equal(t, cfg.Connection.Reconnect.BaseDelay, cc.BaseDelay)
	assert.Equal(t, cfg.Connection.Reconnect.MaxDelay, cc.MaxDelay)
	assert.Equal(t, cfg.Connection.Reconnect.MaxAttempts, cc.MaxAttempts)
	assert.Equal(t, cfg.Connection.UnauthorizedCloseCode, cc.UnauthorizedCode)

	m := cfg.SectionMarkers()
	assert.Equal(t, "data-section-id", m.Attribute)
	assert.Equal(t, "proposal-section", m.Class)
}

func TestConfigToken(t *testing.T) {
	cfg := &Config{API: &APIConfig{TokenEnv: "DRAFTER_TEST_BEARER"}}
	assert.Empty(t, cfg.Token())

	t.Setenv("DRAFTER_TEST_BEARER", "xyz")
	assert.Equal(t, "xyz", cfg.Token())

	assert.Empty(t, (&Config{API: &APIConfig{}}).Token())
}
