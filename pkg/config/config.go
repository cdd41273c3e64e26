package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/textdiff"
)

// Config is the resolved configuration returned by Initialize.
type Config struct {
	configDir string

	LogLevel   string
	Connection *ConnectionConfig
	API        *APIConfig
	Editor     *EditorConfig
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// SlogLevel maps LogLevel onto a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConnectionSettings converts the connection section into the manager config.
func (c *Config) ConnectionSettings() connection.Config {
	cc := c.Connection
	return connection.Config{
		URL:              cc.URL,
		TokenQueryParam:  cc.TokenQueryParam,
		DialTimeout:      cc.DialTimeout,
		WriteTimeout:     cc.WriteTimeout,
		DebounceInterval: cc.DebounceInterval,
		BaseDelay:        cc.Reconnect.BaseDelay,
		MaxDelay:         cc.Reconnect.MaxDelay,
		MaxAttempts:      cc.Reconnect.MaxAttempts,
		UnauthorizedCode: cc.UnauthorizedCloseCode,
	}
}

// SectionMarkers returns the markers used to locate document sections.
func (c *Config) SectionMarkers() textdiff.Markers {
	return textdiff.Markers{
		Attribute: c.Editor.SectionAttribute,
		Class:     c.Editor.SectionClass,
	}
}

// Token returns the bearer token from the environment variable named by
// API.TokenEnv, or "" when unset.
func (c *Config) Token() string {
	if c.API == nil || c.API.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.API.TokenEnv)
}
