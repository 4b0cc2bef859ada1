package registry

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// plainDriver is a Driver without the Seeder capability.
type plainDriver struct{ types.Driver }

func (plainDriver) Name() string { return "plain" }

// failingSeeder refuses to seed one collection.
type failingSeeder struct {
	*memory.Store
	bad string
}

func (f failingSeeder) Seed(ctx context.Context, coll string, docs []types.Document) error {
	if coll == f.bad {
		return errors.New("disk full")
	}
	return f.Store.Seed(ctx, coll, docs)
}

var users = []types.Document{
	{"id": "u1", "name": "Alice"},
	{"id": "u2", "name": "Bob"},
}

func TestDriverUnset(t *testing.T) {
	r := New()
	d, err := r.Driver()
	assert.Nil(t, d)
	assert.ErrorIs(t, err, types.ErrNoProvider)
	assert.ErrorIs(t, r.SetDriver(context.Background(), nil), types.ErrNoProvider)
}

func TestPendingSeedFlush(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.RegisterSeed(ctx, "users", users))
	queued, ok := r.Pending("users")
	require.True(t, ok)
	assert.Len(t, queued, 2)

	store := memory.New(memory.WithLatency(0))
	require.NoError(t, r.SetDriver(ctx, store))

	_, ok = r.Pending("users")
	assert.False(t, ok)
	assert.Empty(t, r.PendingCollections())

	d, err := r.Driver()
	require.NoError(t, err)
	env := d.Get(ctx, "users", nil)
	require.Equal(t, http.StatusOK, env.Status)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "u1", env.Data[0].ID())
	assert.Equal(t, "u2", env.Data[1].ID())
}

func TestRegisterSeedOverwritesPending(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.RegisterSeed(ctx, "users", users))
	require.NoError(t, r.RegisterSeed(ctx, "users", users[:1]))

	queued, ok := r.Pending("users")
	require.True(t, ok)
	assert.Len(t, queued, 1)
}

func TestRegisterSeedWithActiveSeeder(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.WithLatency(0))
	r := New(WithDriver(store))

	require.NoError(t, r.RegisterSeed(ctx, "users", users))
	assert.Empty(t, r.PendingCollections())
	assert.Equal(t, 2, store.Len("users"))

	// A second registration never replaces the present collection.
	require.NoError(t, r.RegisterSeed(ctx, "users", users[:1]))
	assert.Equal(t, 2, store.Len("users"))
}

func TestNonSeedingDriverKeepsQueue(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.RegisterSeed(ctx, "users", users))
	require.NoError(t, r.SetDriver(ctx, plainDriver{}))
	require.NoError(t, r.RegisterSeed(ctx, "projects", nil))

	assert.Equal(t, []string{"projects", "users"}, r.PendingCollections())
	d, err := r.Driver()
	require.NoError(t, err)
	assert.Equal(t, "plain", d.Name())
}

func TestFlushFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.RegisterSeed(ctx, "users", users))
	require.NoError(t, r.RegisterSeed(ctx, "broken", users))

	err := r.SetDriver(ctx, failingSeeder{Store: memory.New(memory.WithLatency(0)), bad: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"broken"}, r.PendingCollections())
}

func TestPendingReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.RegisterSeed(ctx, "users", users))

	queued, _ := r.Pending("users")
	queued[0]["name"] = "Mallory"

	again, _ := r.Pending("users")
	assert.Equal(t, "Alice", again[0]["name"])
	assert.Equal(t, "Alice", users[0]["name"])
}

func TestMemo(t *testing.T) {
	r := New()
	calls := 0
	build := func() any {
		calls++
		return &struct{ n int }{calls}
	}

	a := r.Memo("users", build)
	b := r.Memo("users", build)
	c := r.Memo("projects", build)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, calls)
}

func TestRegisterSeedRejectsInvalidRows(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		docs []types.Document
	}{
		{"missing id", []types.Document{{"id": "u1"}, {"name": "anonymous"}}},
		{"duplicate id", []types.Document{{"id": "u1"}, {"id": "u1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queued := New()
			assert.ErrorIs(t, queued.RegisterSeed(ctx, "users", tt.docs), types.ErrInvalidDocument)
			assert.Empty(t, queued.PendingCollections())

			store := memory.New(memory.WithLatency(0))
			active := New(WithDriver(store))
			assert.ErrorIs(t, active.RegisterSeed(ctx, "users", tt.docs), types.ErrInvalidDocument)
			assert.Empty(t, store.Collections())
		})
	}
}
