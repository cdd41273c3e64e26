package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "drafter.yaml"

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Read drafter.yaml from configDir (a missing file means built-in defaults)
//  2. Expand {{.VAR}} environment references
//  3. Parse YAML
//  4. Merge user values over built-in defaults
//  5. Validate
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"socket_url", cfg.Connection.URL,
		"api_base_url", cfg.API.BaseURL,
		"max_attempts", cfg.Connection.Reconnect.MaxAttempts)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	user, err := loader.loadDrafterYAML()
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			return nil, NewLoadError(FileName, err)
		}
		slog.Warn("Configuration file not found, using built-in defaults",
			"config_dir", configDir,
			"file", FileName)
		user = &DrafterYAMLConfig{}
	}

	connCfg := DefaultConnectionConfig()
	if user.Connection != nil {
		if err := mergo.Merge(connCfg, user.Connection, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge connection config: %w", err)
		}
	}

	apiCfg := DefaultAPIConfig()
	if user.API != nil {
		if err := mergo.Merge(apiCfg, user.API, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge api config: %w", err)
		}
	}

	logLevel := user.LogLevel
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	return &Config{
		configDir:  configDir,
		LogLevel:   logLevel,
		Connection: connCfg,
		API:        apiCfg,
		Editor:     resolveEditorConfig(user.Editor),
	}, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// ExpandEnv passes malformed templates through so the YAML parser reports them.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadDrafterYAML() (*DrafterYAMLConfig, error) {
	var cfg DrafterYAMLConfig
	if err := l.loadYAML(FileName, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveEditorConfig applies editor YAML over the defaults. Handled by hand
// because an explicit false must win over a true default.
func resolveEditorConfig(y *EditorYAMLConfig) *EditorConfig {
	cfg := DefaultEditorConfig()
	if y == nil {
		return cfg
	}
	if y.SelectableClass != "" {
		cfg.SelectableClass = y.SelectableClass
	}
	if y.SectionAttribute != "" {
		cfg.SectionAttribute = y.SectionAttribute
	}
	if y.SectionClass != "" {
		cfg.SectionClass = y.SectionClass
	}
	if y.HydrateHistory != nil {
		cfg.HydrateHistory = *y.HydrateHistory
	}
	if y.LoadDocumentOnStart != nil {
		cfg.LoadDocumentOnStart = *y.LoadDocumentOnStart
	}
	return cfg
}
