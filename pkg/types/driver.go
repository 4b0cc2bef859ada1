package types

import (
	"context"
	"errors"
)

// Driver provides uniform CRUD operations over named collections of
// Documents. Implementations never return Go errors for expected outcomes such
// as not-found or forbidden; the Envelope status describes them.
//
// Every call first waits the driver's simulated latency (overridable with
// WithDelay), then honours WithFailure before touching the backing store.
type Driver interface {
	// Name identifies the driver in logs and metrics.
	Name() string

	// Get returns every document in the collection accepted by match, in
	// collection order. It never mutates the collection.
	Get(ctx context.Context, collection string, match Matcher, opts ...Option) Envelope[[]Document]

	// Post appends doc to the collection and returns it with status 201.
	Post(ctx context.Context, collection string, doc Document, opts ...Option) Envelope[Document]

	// Put shallow-merges patch onto the document with the given id and stamps
	// updatedAt. Returns 404 when absent and 403, without mutating, when guard
	// rejects the existing document.
	Put(ctx context.Context, collection, id string, patch Patch, guard Matcher, opts ...Option) Envelope[Document]

	// Delete removes the document with the given id. Data is true on success;
	// 404 and 403 follow the same rules as Put.
	Delete(ctx context.Context, collection, id string, guard Matcher, opts ...Option) Envelope[bool]
}

// Seeder is the optional capability of initialising a collection. Seed is a
// no-op when the collection is already present in the backing store.
type Seeder interface {
	Seed(ctx context.Context, collection string, docs []Document) error
}

// Driver operation errors. Their messages become Envelope.Error.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("record id already exists")
	ErrRequestFailed = errors.New("request failed")
	ErrSimulated     = errors.New("simulated network error")
)

// Service and registry errors.
var (
	ErrNoProvider      = errors.New("no data provider has been installed")
	ErrUnauthorized    = errors.New("unauthorized: no active session")
	ErrCollectionType  = errors.New("collection already bound to a different record type")
	ErrInvalidDocument = errors.New("invalid document")
)
