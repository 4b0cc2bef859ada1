package service

import (
	"context"
	"net/http"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Scoped adds owner-restricted operations to a Service. Every "My" method
// fails with 401 before reaching the driver when src reports no user.
type Scoped[T types.Owned] struct {
	*Service[T]
	src session.Source
}

// ScopedFor wraps the memoized service for coll with ownership scoping by the
// user that src reports for each call.
func ScopedFor[T types.Owned](reg *registry.Registry, coll types.Collection[T], src session.Source) (*Scoped[T], error) {
	base, err := For(reg, coll)
	if err != nil {
		return nil, err
	}
	return &Scoped[T]{Service: base, src: src}, nil
}

// MustScopedFor is like ScopedFor but panics on a type mismatch.
func MustScopedFor[T types.Owned](reg *registry.Registry, coll types.Collection[T], src session.Source) *Scoped[T] {
	s, err := ScopedFor(reg, coll, src)
	if err != nil {
		panic(err)
	}
	return s
}

// FindAllMy lists every record and keeps those owned by the current user.
func (s *Scoped[T]) FindAllMy(ctx context.Context, opts ...types.Option) types.Envelope[[]T] {
	user, ok := s.user(ctx)
	if !ok {
		return unauthorized[[]T]()
	}
	env := s.FindAll(ctx, opts...)
	if !env.OK() {
		return env
	}
	mine := make([]T, 0, len(env.Data))
	for _, rec := range env.Data {
		if rec.OwnerID() == user {
			mine = append(mine, rec)
		}
	}
	env.Data = mine
	if env.Meta != nil && env.Meta.Timestamp != nil {
		env.Meta = types.ListMeta(len(mine), *env.Meta.Timestamp)
	} else {
		n := len(mine)
		env.Meta = &types.Meta{Total: &n}
	}
	return env
}

// CreateMy stamps each record with the current user as owner and inserts
// them as Create does.
func (s *Scoped[T]) CreateMy(ctx context.Context, records []T, opts ...types.Option) types.Envelope[[]*T] {
	user, ok := s.user(ctx)
	if !ok {
		return unauthorized[[]*T]()
	}
	return s.create(ctx, records, ownedBy(user), opts)
}

// CreateOneMy is the single-record form of CreateMy.
func (s *Scoped[T]) CreateOneMy(ctx context.Context, record T, opts ...types.Option) types.Envelope[*T] {
	user, ok := s.user(ctx)
	if !ok {
		return unauthorized[*T]()
	}
	d, err := s.reg.Driver()
	if err != nil {
		return types.Failure[*T](http.StatusServiceUnavailable, err)
	}
	return s.insert(ctx, d, record, ownedBy(user), opts)
}

// UpdateMy updates the record only when the current user owns it. The
// ownership check runs in the driver against the stored record.
func (s *Scoped[T]) UpdateMy(ctx context.Context, id string, patch types.Patch, opts ...types.Option) types.Envelope[*T] {
	user, ok := s.user(ctx)
	if !ok {
		return unauthorized[*T]()
	}
	return s.put(ctx, id, withoutOwner(patch), types.FieldEquals(types.FieldOwner, user), opts)
}

// DeleteMy removes the record only when the current user owns it.
func (s *Scoped[T]) DeleteMy(ctx context.Context, id string, opts ...types.Option) types.Envelope[bool] {
	user, ok := s.user(ctx)
	if !ok {
		return unauthorized[bool]()
	}
	return s.remove(ctx, id, types.FieldEquals(types.FieldOwner, user), opts)
}

func (s *Scoped[T]) user(ctx context.Context) (string, bool) {
	if s.src == nil {
		return "", false
	}
	return s.src.CurrentUser(ctx)
}

func unauthorized[D any]() types.Envelope[D] {
	return types.Failure[D](http.StatusUnauthorized, types.ErrUnauthorized)
}

func ownedBy(user string) func(types.Document) {
	return func(doc types.Document) {
		doc[types.FieldOwner] = user
	}
}

// withoutOwner drops any attempt to reassign ownership through UpdateMy.
func withoutOwner(patch types.Patch) types.Patch {
	if _, ok := patch[types.FieldOwner]; !ok {
		return patch
	}
	out := make(types.Patch, len(patch))
	for k, v := range patch {
		if k != types.FieldOwner {
			out[k] = v
		}
	}
	return out
}
