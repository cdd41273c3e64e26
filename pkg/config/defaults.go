package config

import (
	"time"

	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/patch"
	"github.com/codeready-toolchain/drafter/pkg/textdiff"
)

// DefaultLogLevel is used when log_level is omitted.
const DefaultLogLevel = "info"

// DefaultConnectionConfig returns the built-in socket settings.
func DefaultConnectionConfig() *ConnectionConfig {
	d := connection.DefaultConfig()
	return &ConnectionConfig{
		URL:              d.URL,
		DialTimeout:      d.DialTimeout,
		WriteTimeout:     d.WriteTimeout,
		DebounceInterval: d.DebounceInterval,
		Reconnect: ReconnectConfig{
			BaseDelay:   d.BaseDelay,
			MaxDelay:    d.MaxDelay,
			MaxAttempts: d.MaxAttempts,
		},
		UnauthorizedCloseCode: d.UnauthorizedCode,
	}
}

// DefaultAPIConfig returns the built-in REST settings.
func DefaultAPIConfig() *APIConfig {
	return &APIConfig{
		BaseURL:         "http://localhost:8000/api",
		Timeout:         30 * time.Second,
		TokenEnv:        "DRAFTER_TOKEN",
		HistoryCacheTTL: time.Minute,
	}
}

// DefaultEditorConfig returns the built-in editor settings.
func DefaultEditorConfig() *EditorConfig {
	return &EditorConfig{
		SelectableClass:     patch.DefaultSelectableClass,
		SectionAttribute:    textdiff.DefaultMarkers.Attribute,
		SectionClass:        textdiff.DefaultMarkers.Class,
		HydrateHistory:      true,
		LoadDocumentOnStart: true,
	}
}
