package types

import (
	"errors"
	"time"
)

// Config holds provider selection and parameters for pantry.Open. A zero
// Latency keeps the provider's default simulated latency.
type Config struct {
	Provider string        `json:"provider" yaml:"provider" mapstructure:"provider"`
	DataDir  string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Latency  time.Duration `json:"latency" yaml:"latency" mapstructure:"latency"`
	Remote   RemoteConfig  `json:"remote" yaml:"remote" mapstructure:"remote"`
	SQLite   SQLiteConfig  `json:"sqlite" yaml:"sqlite" mapstructure:"sqlite"`
}

// RemoteConfig configures the CMS-style remote provider.
type RemoteConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Token   string        `json:"token,omitempty" yaml:"token" mapstructure:"token"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SQLiteConfig configures the SQLite provider. An empty Path places
// pantry.db in DataDir.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Supported provider names.
const (
	ProviderMemory = "memory"
	ProviderRemote = "remote"
	ProviderSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrProviderEmpty   = errors.New("provider must not be empty")
	ErrProviderUnknown = errors.New("unknown provider")
	ErrRemoteURLEmpty  = errors.New("remote provider requires a base URL")
	ErrLatencyNegative = errors.New("latency must not be negative")
)

// knownProviders lists the providers that Validate accepts.
var knownProviders = map[string]bool{
	ProviderMemory: true,
	ProviderRemote: true,
	ProviderSQLite: true,
}

// ProviderNames lists the supported providers for help and error output.
var ProviderNames = []string{ProviderMemory, ProviderRemote, ProviderSQLite}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Provider == "" {
		return ErrProviderEmpty
	}
	if !knownProviders[c.Provider] {
		return ErrProviderUnknown
	}
	if c.Latency < 0 {
		return ErrLatencyNegative
	}
	if c.Provider == ProviderRemote && c.Remote.BaseURL == "" {
		return ErrRemoteURLEmpty
	}
	return nil
}
