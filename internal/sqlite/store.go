package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultFile is the database file name used inside a data directory.
const DefaultFile = paths.DatabaseFileName

// Store implements types.Driver and types.Seeder on SQLite.
type Store struct {
	// mu serializes writes so read-check-write sequences (guards, conflicts)
	// see a stable row.
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool

	latency time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

var (
	_ types.Driver = (*Store)(nil)
	_ types.Seeder = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLatency sets a simulated latency applied before each call. The default
// is none.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithClock replaces time.Now for updatedAt stamps and list metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger. The store logs under the name "sqlite".
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens (creating if needed) the database at path and applies the schema.
// The parent directory is created. Use ":memory:" for a private in-memory
// database.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if path != paths.InMemoryDatabase {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes ordered.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	s := &Store{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("sqlite")
	s.logger.Debug("opened", zap.String("path", path))
	return s, nil
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Name returns "sqlite".
func (s *Store) Name() string { return types.ProviderSQLite }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Seed inserts docs in order if the collection has never existed. Rows without
// an id or with a repeated id are rejected before anything is written.
func (s *Store) Seed(ctx context.Context, collection string, docs []types.Document) error {
	if err := codec.CheckSeed(docs); err != nil {
		return fmt.Errorf("seed %s: %w", collection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	present, err := collectionExists(ctx, tx, collection)
	if err != nil {
		return err
	}
	if present {
		s.logger.Debug("seed skipped, collection present", zap.String("collection", collection))
		return nil
	}
	if err := s.markCollection(ctx, tx, collection); err != nil {
		return err
	}
	for _, doc := range docs {
		if err := insertRecord(ctx, tx, collection, doc); err != nil {
			return fmt.Errorf("seed %s: %w", collection, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.logger.Debug("seeded collection", zap.String("collection", collection), zap.Int("records", len(docs)))
	return nil
}

// Get returns every matching document in insertion order.
func (s *Store) Get(ctx context.Context, collection string, match types.Matcher, opts ...types.Option) types.Envelope[[]types.Document] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[[]types.Document](http.StatusInternalServerError, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return types.Failure[[]types.Document](http.StatusInternalServerError, fmt.Errorf("query records: %w", err))
	}
	defer rows.Close()

	out := []types.Document{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return types.Failure[[]types.Document](http.StatusInternalServerError, fmt.Errorf("scan record: %w", err))
		}
		doc, err := codec.Unmarshal([]byte(payload))
		if err != nil {
			s.logger.Warn("skipping unreadable record", zap.String("collection", collection), zap.Error(err))
			continue
		}
		if match.Matches(doc) {
			out = append(out, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return types.Failure[[]types.Document](http.StatusInternalServerError, fmt.Errorf("iterate records: %w", err))
	}

	env := types.Success(http.StatusOK, out)
	env.Meta = types.ListMeta(len(out), s.now().UTC())
	return env
}

// Post inserts doc. A document whose id already exists is rejected with 409.
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	defer tx.Rollback()

	if _, found, err := loadRecord(ctx, tx, collection, id); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	} else if found {
		return types.Failure[types.Document](http.StatusConflict, fmt.Errorf("%w: %s", types.ErrConflict, id))
	}
	if err := s.markCollection(ctx, tx, collection); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	if err := insertRecord(ctx, tx, collection, doc); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	return types.Success(http.StatusCreated, codec.Clone(doc))
}

// Put merges patch onto the stored document.
func (s *Store) Put(ctx context.Context, collection, id string, patch types.Patch, guard types.Matcher, opts ...types.Option) types.Envelope[types.Document] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	defer tx.Rollback()

	current, found, err := loadRecord(ctx, tx, collection, id)
	if err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	if !found {
		return types.Failure[types.Document](http.StatusNotFound, types.ErrNotFound)
	}
	if !guard.Matches(current) {
		return types.Failure[types.Document](http.StatusForbidden, types.ErrForbidden)
	}

	updated := codec.Merge(current, patch, s.now())
	payload, err := json.Marshal(updated)
	if err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, fmt.Errorf("encode record: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE records SET payload = ? WHERE collection = ? AND id = ?`, string(payload), collection, id); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, fmt.Errorf("update record: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	return types.Success(http.StatusOK, updated)
}

// Delete removes the stored document.
func (s *Store) Delete(ctx context.Context, collection, id string, guard types.Matcher, opts ...types.Option) types.Envelope[bool] {
	if err := s.begin(ctx, opts); err != nil {
		return types.Failure[bool](http.StatusInternalServerError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Failure[bool](http.StatusInternalServerError, err)
	}
	defer tx.Rollback()

	current, found, err := loadRecord(ctx, tx, collection, id)
	if err != nil {
		return types.Failure[bool](http.StatusInternalServerError, err)
	}
	if !found {
		return types.Failure[bool](http.StatusNotFound, types.ErrNotFound)
	}
	if !guard.Matches(current) {
		return types.Failure[bool](http.StatusForbidden, types.ErrForbidden)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return types.Failure[bool](http.StatusInternalServerError, fmt.Errorf("delete record: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return types.Failure[bool](http.StatusInternalServerError, err)
	}
	return types.Success(http.StatusOK, true)
}

// Collections returns the names of all present collections, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Len returns the number of documents in the collection.
func (s *Store) Len(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

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

func (s *Store) markCollection(ctx context.Context, tx *sql.Tx, collection string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)`,
		collection, codec.Timestamp(s.now()))
	if err != nil {
		return fmt.Errorf("mark collection: %w", err)
	}
	return nil
}

func collectionExists(ctx context.Context, tx *sql.Tx, collection string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, collection).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check collection: %w", err)
	}
	return n > 0, nil
}

func loadRecord(ctx context.Context, tx *sql.Tx, collection, id string) (types.Document, bool, error) {
	var payload string
	err := tx.QueryRowContext(ctx, `SELECT payload FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load record: %w", err)
	}
	doc, err := codec.Unmarshal([]byte(payload))
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, collection string, doc types.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO records (collection, id, payload) VALUES (?, ?, ?)`,
		collection, doc.ID(), string(payload)); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}
