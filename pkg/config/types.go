package config

import "time"

// DrafterYAMLConfig represents the complete drafter.yaml file structure.
type DrafterYAMLConfig struct {
	LogLevel   string            `yaml:"log_level"`
	Connection *ConnectionConfig `yaml:"connection"`
	API        *APIConfig        `yaml:"api"`
	Editor     *EditorYAMLConfig `yaml:"editor"`
}

// ConnectionConfig controls the realtime socket to the agent backend.
type ConnectionConfig struct {
	// URL is the socket endpoint; "{session_id}" is substituted per session.
	URL string `yaml:"url"`

	// TokenQueryParam, when set, also sends the bearer token as this query
	// parameter for backends that cannot read the Authorization header.
	TokenQueryParam string `yaml:"token_query_param"`

	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// DebounceInterval drops repeated connects to the same session.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	Reconnect ReconnectConfig `yaml:"reconnect"`

	// UnauthorizedCloseCode is the application close code that clears
	// credentials and stops reconnecting.
	UnauthorizedCloseCode int `yaml:"unauthorized_close_code"`
}

// ReconnectConfig bounds the exponential reconnect policy.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// APIConfig points at the REST backend serving history, documents and edits.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	// HistoryCacheTTL caches fetched history per session; zero disables.
	HistoryCacheTTL time.Duration `yaml:"history_cache_ttl"`
}

// EditorYAMLConfig holds editor settings from YAML. Booleans are pointers so
// an explicit false can override a true default.
type EditorYAMLConfig struct {
	SelectableClass     string `yaml:"selectable_class,omitempty"`
	SectionAttribute    string `yaml:"section_attribute,omitempty"`
	SectionClass        string `yaml:"section_class,omitempty"`
	HydrateHistory      *bool  `yaml:"hydrate_history,omitempty"`
	LoadDocumentOnStart *bool  `yaml:"load_document_on_start,omitempty"`
}

// EditorConfig is the resolved editor configuration.
type EditorConfig struct {
	SelectableClass     string
	SectionAttribute    string
	SectionClass        string
	HydrateHistory      bool
	LoadDocumentOnStart bool
}
