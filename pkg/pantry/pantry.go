// Package pantry provides the public factory for data drivers. Open picks the
// memory, remote or SQLite driver from a validated Config while keeping the
// implementations internal.
package pantry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/internal/remote"
	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Version is the pantry release version.
const Version = "0.3.0"

// Open validates cfg and returns the configured driver with a function that
// releases it. The close function is never nil.
//
// Example:
//
//	d, closeFn, err := pantry.Open(types.Config{
//	    Provider: types.ProviderSQLite,
//	    DataDir:  ".pantry-db",
//	}, logger)
//	defer closeFn()
func Open(cfg types.Config, logger *zap.Logger) (types.Driver, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	switch cfg.Provider {
	case types.ProviderMemory:
		opts := []memory.Option{memory.WithLogger(logger)}
		if cfg.Latency > 0 {
			opts = append(opts, memory.WithLatency(cfg.Latency))
		}
		return memory.New(opts...), noop, nil

	case types.ProviderRemote:
		d, err := remote.New(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			Token:   cfg.Remote.Token,
			Timeout: cfg.Remote.Timeout,
		}, remote.WithLogger(logger), remote.WithLatency(cfg.Latency))
		if err != nil {
			return nil, nil, err
		}
		return d, noop, nil

	case types.ProviderSQLite:
		path := SQLitePath(cfg)
		s, err := sqlite.Open(path, sqlite.WithLogger(logger), sqlite.WithLatency(cfg.Latency))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, types.ErrProviderUnknown
}

// SQLitePath returns the database file the SQLite provider uses. See
// paths.DatabaseFile for how the configured path and DataDir combine.
func SQLitePath(cfg types.Config) string {
	return paths.DatabaseFile(cfg.DataDir, cfg.SQLite.Path)
}
