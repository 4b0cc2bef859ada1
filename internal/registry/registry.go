// Package registry holds the active data driver, the queue of seed data
// waiting for a driver that can accept it, and the per-collection service
// memo shared by every façade built over the registry.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	driver   types.Driver
	pending  map[string][]types.Document
	services map[string]any
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDriver installs d at construction time. Pending seeds registered later
// flow straight into it when it is a types.Seeder.
func WithDriver(d types.Driver) Option {
	return func(r *Registry) { r.driver = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a registry. Without WithDriver no driver is active and Driver
// reports types.ErrNoProvider until SetDriver is called.
func New(opts ...Option) *Registry {
	r := &Registry{
		pending:  make(map[string][]types.Document),
		services: make(map[string]any),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("registry")
	return r
}

// Driver returns the active driver.
func (r *Registry) Driver() (types.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.driver == nil {
		return nil, types.ErrNoProvider
	}
	return r.driver, nil
}

// SetDriver installs d as the active driver. When d is a types.Seeder every
// pending seed is flushed into it and cleared. A flush failure leaves that
// entry queued and is reported after the remaining entries are attempted.
func (r *Registry) SetDriver(ctx context.Context, d types.Driver) error {
	if d == nil {
		return fmt.Errorf("set driver: %w", types.ErrNoProvider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.driver = d
	r.logger.Info("driver installed", zap.String("driver", d.Name()), zap.Int("pending", len(r.pending)))

	seeder, ok := d.(types.Seeder)
	if !ok {
		return nil
	}
	var firstErr error
	for _, coll := range sortedKeys(r.pending) {
		if err := seeder.Seed(ctx, coll, r.pending[coll]); err != nil {
			r.logger.Warn("flush seed failed", zap.String("collection", coll), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("flush seed %s: %w", coll, err)
			}
			continue
		}
		delete(r.pending, coll)
		r.logger.Debug("flushed seed", zap.String("collection", coll))
	}
	return firstErr
}

// RegisterSeed seeds collection immediately when the active driver is a
// types.Seeder. Otherwise docs are queued, replacing any earlier pending entry
// for the same collection. Rows without an id or with a repeated id fail with
// types.ErrInvalidDocument and are never queued.
func (r *Registry) RegisterSeed(ctx context.Context, collection string, docs []types.Document) error {
	if err := codec.CheckSeed(docs); err != nil {
		return fmt.Errorf("seed %s: %w", collection, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if seeder, ok := r.driver.(types.Seeder); ok {
		if err := seeder.Seed(ctx, collection, docs); err != nil {
			return fmt.Errorf("seed %s: %w", collection, err)
		}
		return nil
	}
	if _, replaced := r.pending[collection]; replaced {
		r.logger.Debug("replacing pending seed", zap.String("collection", collection))
	}
	r.pending[collection] = codec.CloneAll(docs)
	return nil
}

// Pending returns a copy of the queued seed for collection.
func (r *Registry) Pending(collection string) ([]types.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs, ok := r.pending[collection]
	if !ok {
		return nil, false
	}
	return codec.CloneAll(docs), true
}

// PendingCollections lists collections whose seed is still queued, sorted.
func (r *Registry) PendingCollections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.pending)
}

// Memo returns the value stored under name, calling build to create it on
// first use. Service factories use it so one collection name maps to exactly
// one façade per registry.
func (r *Registry) Memo(name string, build func() any) any {
	r.mu.RLock()
	v, ok := r.services[name]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.services[name]; ok {
		return v
	}
	v = build()
	r.services[name] = v
	return v
}

func sortedKeys(m map[string][]types.Document) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
