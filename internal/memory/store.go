// Package memory implements an in-process types.Driver backed by a map from
// collection name to an ordered slice of Documents.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultLatency is the simulated round-trip applied to every call unless
// overridden by WithLatency or types.WithDelay.
const DefaultLatency = 400 * time.Millisecond

// Store is the memory driver. It is safe for concurrent use; each call holds
// the lock only while touching the map, never during the simulated latency.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]types.Document

	latency time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// Compile-time contract assertions.
var (
	_ types.Driver = (*Store)(nil)
	_ types.Seeder = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLatency sets the default simulated latency.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithClock replaces time.Now for updatedAt stamps and list metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger. The store logs under the name "memory".
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty memory store. Collections come into existence through
// Seed or the first Post.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string][]types.Document),
		latency:     DefaultLatency,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("memory")
	return s
}

// Name returns "memory".
func (s *Store) Name() string { return types.ProviderMemory }

// Seed initialises a collection only if it is not already present. Rows
// without an id or with a repeated id are rejected.
func (s *Store) Seed(_ context.Context, collection string, docs []types.Document) error {
	if err := codec.CheckSeed(docs); err != nil {
		return fmt.Errorf("seed %s: %w", collection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection]; ok {
		s.logger.Debug("seed skipped, collection present", zap.String("collection", collection))
		return nil
	}
	s.collections[collection] = codec.CloneAll(docs)
	s.logger.Debug("seeded collection", zap.String("collection", collection), zap.Int("records", len(docs)))
	return nil
}

// Get returns fresh copies of every matching document.
func (s *Store) Get(ctx context.Context, collection string, match types.Matcher, opts ...types.Option) types.Envelope[[]types.Document] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[[]types.Document](http.StatusInternalServerError, err)
	}

	s.mu.RLock()
	items := s.collections[collection]
	out := make([]types.Document, 0, len(items))
	for _, d := range items {
		if match.Matches(d) {
			out = append(out, codec.Clone(d))
		}
	}
	s.mu.RUnlock()

	env := types.Success(http.StatusOK, out)
	env.Meta = types.ListMeta(len(out), s.now().UTC())
	return env
}

// Post appends doc. A document whose id already exists is rejected with 409.
func (s *Store) Post(ctx context.Context, collection string, doc types.Document, opts ...types.Option) types.Envelope[types.Document] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	id := doc.ID()
	if id == "" {
		return types.Failure[types.Document](http.StatusBadRequest, fmt.Errorf("%w: missing id", types.ErrInvalidDocument))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.collections[collection], id) >= 0 {
		return types.Failure[types.Document](http.StatusConflict, fmt.Errorf("%w: %s", types.ErrConflict, id))
	}
	stored := codec.Clone(doc)
	s.collections[collection] = append(s.collections[collection], stored)
	s.logger.Debug("posted", zap.String("collection", collection), zap.String("id", id))
	return types.Success(http.StatusCreated, codec.Clone(stored))
}

// Put merges patch onto the document with the given id.
func (s *Store) Put(ctx context.Context, collection, id string, patch types.Patch, guard types.Matcher, opts ...types.Option) types.Envelope[types.Document] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.collections[collection]
	i := indexOf(items, id)
	if i < 0 {
		return types.Failure[types.Document](http.StatusNotFound, types.ErrNotFound)
	}
	if !guard.Matches(items[i]) {
		s.logger.Debug("put rejected by guard", zap.String("collection", collection), zap.String("id", id))
		return types.Failure[types.Document](http.StatusForbidden, types.ErrForbidden)
	}
	updated := codec.Merge(items[i], patch, s.now())
	items[i] = updated
	return types.Success(http.StatusOK, codec.Clone(updated))
}

// Delete removes the document with the given id.
func (s *Store) Delete(ctx context.Context, collection, id string, guard types.Matcher, opts ...types.Option) types.Envelope[bool] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[bool](http.StatusInternalServerError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.collections[collection]
	i := indexOf(items, id)
	if i < 0 {
		return types.Failure[bool](http.StatusNotFound, types.ErrNotFound)
	}
	if !guard.Matches(items[i]) {
		return types.Failure[bool](http.StatusForbidden, types.ErrForbidden)
	}
	s.collections[collection] = slices.Delete(items, i, i+1)
	return types.Success(http.StatusOK, true)
}

// Collections returns the names of all present collections, sorted.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of documents in the collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// begin applies the simulated latency and failure injection shared by every
// operation. It runs before the lock is taken.
func (s *Store) begin(ctx context.Context, opts []types.Option) error {
	o := types.ResolveOptions(opts...)
	if err := types.Wait(ctx, o.Latency(s.latency)); err != nil {
		return err
	}
	if o.ShouldFail {
		return types.ErrSimulated
	}
	return nil
}

func indexOf(items []types.Document, id string) int {
	return slices.IndexFunc(items, func(d types.Document) bool {
		return d.ID() == id
	})
}
