package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ConfigValidator validates resolved configuration (fail-fast).
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll stops at the first error.
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateLogLevel(); err != nil {
		return err
	}
	if err := v.validateConnection(); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	if err := v.validateAPI(); err != nil {
		return fmt.Errorf("api validation failed: %w", err)
	}
	if err := v.validateEditor(); err != nil {
		return fmt.Errorf("editor validation failed: %w", err)
	}
	return nil
}

func (v *ConfigValidator) validateLogLevel() error {
	switch strings.ToLower(v.cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return NewValidationError("system", "log_level", fmt.Errorf("%w: %q", ErrInvalidValue, v.cfg.LogLevel))
}

func (v *ConfigValidator) validateConnection() error {
	c := v.cfg.Connection
	if c == nil {
		return NewValidationError("connection", "", ErrMissingRequiredField)
	}

	if c.URL == "" {
		return NewValidationError("connection", "url", ErrMissingRequiredField)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return NewValidationError("connection", "url", fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return NewValidationError("connection", "url", fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidValue, u.Scheme))
	}
	if u.Host == "" {
		return NewValidationError("connection", "url", fmt.Errorf("%w: host required", ErrInvalidValue))
	}

	if c.DialTimeout <= 0 {
		return NewValidationError("connection", "dial_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.WriteTimeout <= 0 {
		return NewValidationError("connection", "write_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.DebounceInterval < 0 {
		return NewValidationError("connection", "debounce_interval", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}

	r := c.Reconnect
	if r.BaseDelay <= 0 {
		return NewValidationError("connection", "reconnect.base_delay", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.MaxDelay <= 0 {
		return NewValidationError("connection", "reconnect.max_delay", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.MaxDelay < r.BaseDelay {
		return NewValidationError("connection", "reconnect.max_delay",
			fmt.Errorf("%w: must be at least base_delay (%s)", ErrInvalidValue, r.BaseDelay))
	}
	if r.MaxAttempts < 1 {
		return NewValidationError("connection", "reconnect.max_attempts", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}

	// 1000-2999 are reserved by the websocket protocol and its extensions.
	if c.UnauthorizedCloseCode < 3000 || c.UnauthorizedCloseCode > 4999 {
		return NewValidationError("connection", "unauthorized_close_code",
			fmt.Errorf("%w: must be an application close code (3000-4999), got %d", ErrInvalidValue, c.UnauthorizedCloseCode))
	}
	return nil
}

func (v *ConfigValidator) validateAPI() error {
	a := v.cfg.API
	if a == nil {
		return NewValidationError("api", "", ErrMissingRequiredField)
	}
	if a.BaseURL != "" {
		u, err := url.Parse(a.BaseURL)
		if err != nil {
			return NewValidationError("api", "base_url", fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return NewValidationError("api", "base_url", fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidValue, u.Scheme))
		}
	}
	if a.Timeout <= 0 {
		return NewValidationError("api", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if a.HistoryCacheTTL < 0 {
		return NewValidationError("api", "history_cache_ttl", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateEditor() error {
	e := v.cfg.Editor
	if e == nil {
		return NewValidationError("editor", "", ErrMissingRequiredField)
	}
	if strings.ContainsAny(e.SelectableClass, " \t\n") {
		return NewValidationError("editor", "selectable_class", fmt.Errorf("%w: must be a single class name", ErrInvalidValue))
	}
	if e.SectionAttribute == "" && e.SectionClass == "" {
		return NewValidationError("editor", "section_attribute",
			fmt.Errorf("%w: section_attribute or section_class required", ErrMissingRequiredField))
	}
	return nil
}
