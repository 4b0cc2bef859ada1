package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// countingDriver records how many calls reach the wrapped driver.
type countingDriver struct {
	*memory.Store
	calls int
}

func (c *countingDriver) Get(ctx context.Context, coll string, m types.Matcher, opts ...types.Option) types.Envelope[[]types.Document] {
	c.calls++
	return c.Store.Get(ctx, coll, m, opts...)
}

func (c *countingDriver) Post(ctx context.Context, coll string, doc types.Document, opts ...types.Option) types.Envelope[types.Document] {
	c.calls++
	return c.Store.Post(ctx, coll, doc, opts...)
}

func (c *countingDriver) Put(ctx context.Context, coll, id string, p types.Patch, g types.Matcher, opts ...types.Option) types.Envelope[types.Document] {
	c.calls++
	return c.Store.Put(ctx, coll, id, p, g, opts...)
}

func (c *countingDriver) Delete(ctx context.Context, coll, id string, g types.Matcher, opts ...types.Option) types.Envelope[bool] {
	c.calls++
	return c.Store.Delete(ctx, coll, id, g, opts...)
}

func TestScopedOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	sess := session.NewHolder("u1")
	svc, err := ScopedFor(reg, projectsColl, sess)
	require.NoError(t, err)

	mine := svc.FindAllMy(ctx)
	require.Equal(t, http.StatusOK, mine.Status)
	require.Len(t, mine.Data, 2)
	assert.Equal(t, "p1", mine.Data[0].ID)
	assert.Equal(t, "p3", mine.Data[1].ID)
	assert.Equal(t, 2, *mine.Meta.Total)

	forbidden := svc.UpdateMy(ctx, "p2", types.Patch{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, forbidden.Status)
	assert.Nil(t, forbidden.Data)

	untouched := svc.FindOne(ctx, "p2")
	assert.Equal(t, "Docs", untouched.Data.Name)

	assert.Equal(t, http.StatusForbidden, svc.DeleteMy(ctx, "p2").Status)
	assert.Equal(t, http.StatusOK, svc.FindOne(ctx, "p2").Status)
}

func TestScopedNotFoundBeforeForbidden(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	svc := MustScopedFor(reg, projectsColl, session.NewHolder("u1"))

	assert.Equal(t, http.StatusNotFound, svc.UpdateMy(ctx, "nonexistent-id", types.Patch{"name": "x"}).Status)
	assert.Equal(t, http.StatusNotFound, svc.DeleteMy(ctx, "nonexistent-id").Status)
}

func TestScopedOwnWrites(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	svc := MustScopedFor(reg, projectsColl, session.NewHolder("u1"))

	created := svc.CreateOneMy(ctx, project{ID: "p9", Name: "Mine", UserID: "u2"})
	require.Equal(t, http.StatusCreated, created.Status)
	assert.Equal(t, "u1", created.Data.UserID, "owner is stamped from the session")

	batch := svc.CreateMy(ctx, []project{{ID: "p10", Name: "A"}, {ID: "p11", Name: "B"}})
	require.Equal(t, http.StatusCreated, batch.Status)
	require.Len(t, batch.Data, 2)
	assert.Equal(t, "u1", batch.Data[1].UserID)
	assert.Equal(t, 2, *batch.Meta.Affected)

	updated := svc.UpdateMy(ctx, "p9", types.Patch{"name": "Renamed", "userId": "u2"})
	require.Equal(t, http.StatusOK, updated.Status)
	assert.Equal(t, "Renamed", updated.Data.Name)
	assert.Equal(t, "u1", updated.Data.UserID, "ownership cannot be reassigned")

	deleted := svc.DeleteMy(ctx, "p9")
	require.Equal(t, http.StatusOK, deleted.Status)
	assert.True(t, deleted.Data)
	assert.Len(t, svc.FindAllMy(ctx).Data, 4)
}

func TestScopedUnauthorized(t *testing.T) {
	ctx := context.Background()
	store := &countingDriver{Store: memory.New(memory.WithLatency(0))}
	reg := registry.New(registry.WithDriver(store))
	svc := MustScopedFor(reg, projectsColl, session.NewHolder(""))

	statuses := []int{
		svc.FindAllMy(ctx).Status,
		svc.CreateMy(ctx, []project{{ID: "x"}}).Status,
		svc.CreateOneMy(ctx, project{ID: "x"}).Status,
		svc.UpdateMy(ctx, "x", types.Patch{"name": "y"}).Status,
		svc.DeleteMy(ctx, "x").Status,
	}
	for _, st := range statuses {
		assert.Equal(t, http.StatusUnauthorized, st)
	}
	assert.Equal(t, 0, store.calls)

	env := svc.DeleteMy(ctx, "x")
	assert.Equal(t, types.ErrUnauthorized.Error(), env.Error)
	assert.ErrorIs(t, env.Err(), types.ErrUnauthorized)
}

func TestScopedSessionFromContext(t *testing.T) {
	reg, _ := newRegistry(t)
	svc := MustScopedFor(reg, projectsColl, session.FromContext)

	anon := svc.FindAllMy(context.Background())
	assert.Equal(t, http.StatusUnauthorized, anon.Status)

	bob := svc.FindAllMy(session.WithUser(context.Background(), "u2"))
	require.Equal(t, http.StatusOK, bob.Status)
	require.Len(t, bob.Data, 1)
	assert.Equal(t, "p2", bob.Data[0].ID)
}

func TestScopedSharesMemoizedService(t *testing.T) {
	reg, _ := newRegistry(t)
	scoped := MustScopedFor(reg, projectsColl, session.NewHolder("u1"))
	assert.Same(t, MustFor(reg, projectsColl), scoped.Service)
}

// ownedUser lets the users collection be scoped by its own id, the way a
// profile record belongs to the person it describes.
type ownedUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

func (u ownedUser) RecordID() string { return u.ID }
func (u ownedUser) OwnerID() string  { return u.UserID }

func TestPlainFindIgnoresSessionButScopedUpdateDoesNot(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.WithLatency(0))
	reg := registry.New(registry.WithDriver(store))
	coll := types.NewCollection[ownedUser]("users")
	require.NoError(t, RegisterSeed(ctx, reg, coll, []ownedUser{
		{ID: "u1", Name: "Alice", UserID: "u1"},
		{ID: "u2", Name: "Bob", UserID: "u2"},
	}))
	sess := session.NewHolder("u1")
	svc := MustScopedFor(reg, coll, sess)

	bob := svc.FindOne(ctx, "u2")
	require.Equal(t, http.StatusOK, bob.Status)
	assert.Equal(t, "Bob", bob.Data.Name)

	env := svc.UpdateMy(ctx, "u2", types.Patch{"name": "X"})
	assert.Equal(t, http.StatusForbidden, env.Status)
	assert.Equal(t, "Bob", svc.FindOne(ctx, "u2").Data.Name)
}
