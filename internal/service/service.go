// Package service builds typed CRUD façades over the active driver of a
// registry. One façade exists per collection name per registry; it decodes
// Documents into records on the way out and encodes records on the way in.
package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Service is the generic CRUD façade for one collection.
type Service[T types.Record] struct {
	reg   *registry.Registry
	coll  types.Collection[T]
	newID func() string
}

// For returns the memoized service for coll. It fails with
// types.ErrCollectionType when the name is already bound to another record type
// on this registry.
func For[T types.Record](reg *registry.Registry, coll types.Collection[T]) (*Service[T], error) {
	v := reg.Memo(coll.Name(), func() any {
		return &Service[T]{reg: reg, coll: coll, newID: newID}
	})
	s, ok := v.(*Service[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", types.ErrCollectionType, coll.Name(), v)
	}
	return s, nil
}

// MustFor is like For but panics on a type mismatch.
func MustFor[T types.Record](reg *registry.Registry, coll types.Collection[T]) *Service[T] {
	s, err := For(reg, coll)
	if err != nil {
		panic(err)
	}
	return s
}

// RegisterSeed encodes records and registers them as the seed for coll.
func RegisterSeed[T types.Record](ctx context.Context, reg *registry.Registry, coll types.Collection[T], records []T) error {
	docs := make([]types.Document, 0, len(records))
	for _, rec := range records {
		doc, err := codec.Encode(rec)
		if err != nil {
			return fmt.Errorf("seed %s: %w", coll.Name(), err)
		}
		docs = append(docs, doc)
	}
	return reg.RegisterSeed(ctx, coll.Name(), docs)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Collection returns the collection this service operates on.
func (s *Service[T]) Collection() types.Collection[T] { return s.coll }

// FindAll returns every record in collection order.
func (s *Service[T]) FindAll(ctx context.Context, opts ...types.Option) types.Envelope[[]T] {
	return s.list(ctx, nil, opts)
}

// Where returns every record accepted by pred, in collection order.
func (s *Service[T]) Where(ctx context.Context, pred func(T) bool, opts ...types.Option) types.Envelope[[]T] {
	return s.list(ctx, matcherOf(pred), opts)
}

// Find returns the first record accepted by pred. Later matches are ignored.
// No match yields 404 with nil data.
func (s *Service[T]) Find(ctx context.Context, pred func(T) bool, opts ...types.Option) types.Envelope[*T] {
	return s.first(ctx, matcherOf(pred), opts)
}

// FindOne returns the record with the given id.
func (s *Service[T]) FindOne(ctx context.Context, id string, opts ...types.Option) types.Envelope[*T] {
	return s.first(ctx, types.FieldEquals(types.FieldID, id), opts)
}

// Create inserts records one at a time in input order. A failed insert leaves
// a nil entry and does not undo earlier inserts. The envelope is always 201
// once a driver is available; meta.affected counts the successful inserts.
// Records without an id are given a UUID v7.
func (s *Service[T]) Create(ctx context.Context, records []T, opts ...types.Option) types.Envelope[[]*T] {
	return s.create(ctx, records, nil, opts)
}

// CreateOne inserts a single record. On failure the envelope carries the
// driver's status and error.
func (s *Service[T]) CreateOne(ctx context.Context, record T, opts ...types.Option) types.Envelope[*T] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[*T](http.StatusServiceUnavailable, err)
	}
	return s.insert(ctx, d, record, nil, opts)
}

// Update merges patch onto the record with the given id.
func (s *Service[T]) Update(ctx context.Context, id string, patch types.Patch, opts ...types.Option) types.Envelope[*T] {
	return s.put(ctx, id, patch, nil, opts)
}

// Delete removes the record with the given id.
func (s *Service[T]) Delete(ctx context.Context, id string, opts ...types.Option) types.Envelope[bool] {
	return s.remove(ctx, id, nil, opts)
}

// UpdateAll reads the collection without latency, then applies patch to each
// record accepted by pred, one at a time and also without latency. It reports
// 200/true whatever happened; meta.affected counts the successful updates.
func (s *Service[T]) UpdateAll(ctx context.Context, pred func(T) bool, patch types.Patch, opts ...types.Option) types.Envelope[bool] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[bool](http.StatusServiceUnavailable, err)
	}

	all := d.Get(ctx, s.coll.Name(), matcherOf(pred), types.WithDelay(0))
	writeOpts := append(append([]types.Option(nil), opts...), types.WithDelay(0))
	affected := 0
	for _, doc := range all.Data {
		res := d.Put(ctx, s.coll.Name(), doc.ID(), patch, nil, writeOpts...)
		if res.OK() {
			affected++
		}
	}
	env := types.Success(http.StatusOK, true)
	env.Meta = types.AffectedMeta(affected)
	return env
}

func (s *Service[T]) list(ctx context.Context, match types.Matcher, opts []types.Option) types.Envelope[[]T] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[[]T](http.StatusServiceUnavailable, err)
	}
	return decodeList[T](d.Get(ctx, s.coll.Name(), match, opts...))
}

func (s *Service[T]) first(ctx context.Context, match types.Matcher, opts []types.Option) types.Envelope[*T] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[*T](http.StatusServiceUnavailable, err)
	}
	env := d.Get(ctx, s.coll.Name(), match, opts...)
	if !env.OK() {
		return types.Envelope[*T]{Status: env.Status, Error: env.Error}
	}
	if len(env.Data) == 0 {
		return types.Failure[*T](http.StatusNotFound, types.ErrNotFound)
	}
	return decodeOne[T](types.Success(env.Status, env.Data[0]))
}

func (s *Service[T]) create(ctx context.Context, records []T, stamp func(types.Document), opts []types.Option) types.Envelope[[]*T] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[[]*T](http.StatusServiceUnavailable, err)
	}

	out := make([]*T, 0, len(records))
	affected := 0
	for _, rec := range records {
		res := s.insert(ctx, d, rec, stamp, opts)
		if res.OK() {
			affected++
		}
		out = append(out, res.Data)
	}
	env := types.Success(http.StatusCreated, out)
	env.Meta = types.AffectedMeta(affected)
	return env
}

// insert encodes record, lets stamp adjust the document, fills a missing id
// and posts it.
func (s *Service[T]) insert(ctx context.Context, d types.Driver, record T, stamp func(types.Document), opts []types.Option) types.Envelope[*T] {
	doc, err := codec.Encode(record)
	if err != nil {
		return types.Failure[*T](http.StatusBadRequest, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err))
	}
	if stamp != nil {
		stamp(doc)
	}
	if doc.ID() == "" {
		doc[types.FieldID] = s.newID()
	}
	return decodeOne[T](d.Post(ctx, s.coll.Name(), doc, opts...))
}

func (s *Service[T]) put(ctx context.Context, id string, patch types.Patch, guard types.Matcher, opts []types.Option) types.Envelope[*T] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[*T](http.StatusServiceUnavailable, err)
	}
	return decodeOne[T](d.Put(ctx, s.coll.Name(), id, patch, guard, opts...))
}

func (s *Service[T]) remove(ctx context.Context, id string, guard types.Matcher, opts []types.Option) types.Envelope[bool] {
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[bool](http.StatusServiceUnavailable, err)
	}
	return d.Delete(ctx, s.coll.Name(), id, guard, opts...)
}

// matcherOf lifts a typed predicate to a Document matcher. Documents that do
// not decode into T never match.
func matcherOf[T any](pred func(T) bool) types.Matcher {
	if pred == nil {
		return nil
	}
	return func(doc types.Document) bool {
		v, err := codec.Decode[T](doc)
		return err == nil && pred(v)
	}
}

func decodeOne[T any](env types.Envelope[types.Document]) types.Envelope[*T] {
	if !env.OK() || env.Data == nil {
		return types.Envelope[*T]{Status: env.Status, Error: env.Error, Meta: env.Meta}
	}
	v, err := codec.Decode[T](env.Data)
	if err != nil {
		return types.Failure[*T](http.StatusInternalServerError, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err))
	}
	return types.Envelope[*T]{Data: &v, Status: env.Status, Meta: env.Meta}
}

func decodeList[T any](env types.Envelope[[]types.Document]) types.Envelope[[]T] {
	if !env.OK() {
		return types.Envelope[[]T]{Status: env.Status, Error: env.Error, Meta: env.Meta}
	}
	items, err := codec.DecodeAll[T](env.Data)
	if err != nil {
		return types.Failure[[]T](http.StatusInternalServerError, err)
	}
	return types.Envelope[[]T]{Data: items, Status: env.Status, Meta: env.Meta}
}
