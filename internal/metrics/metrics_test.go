package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type plainDriver struct{ types.Driver }

func TestInstrumentCountsByStatus(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)
	d := Instrument(memory.New(memory.WithLatency(0)), c)

	d.Post(ctx, "users", types.Document{"id": "u1"})
	d.Post(ctx, "users", types.Document{"id": "u1"})
	d.Get(ctx, "users", nil)
	d.Put(ctx, "users", "ghost", types.Patch{"name": "x"}, nil)
	d.Delete(ctx, "users", "u1", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("memory", "users", "post", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("memory", "users", "post", "409")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("memory", "users", "get", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("memory", "users", "put", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("memory", "users", "delete", "200")))
	assert.Equal(t, 4, testutil.CollectAndCount(c.duration))
}

func TestInstrumentPreservesSeeder(t *testing.T) {
	c := NewCollectors(nil)

	seeding := Instrument(memory.New(memory.WithLatency(0)), c)
	_, ok := seeding.(types.Seeder)
	assert.True(t, ok)
	assert.Equal(t, "memory", seeding.Name())

	plain := Instrument(plainDriver{}, c)
	_, ok = plain.(types.Seeder)
	assert.False(t, ok)
	assert.Equal(t, plainDriver{}, plain.(*Driver).Unwrap())
}

func TestSeedThroughWrapper(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.WithLatency(0))
	d := Instrument(store, NewCollectors(nil))

	require.NoError(t, d.(types.Seeder).Seed(ctx, "users", []types.Document{{"id": "u1"}}))
	assert.Equal(t, 1, store.Len("users"))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)
	Instrument(memory.New(memory.WithLatency(0)), c).Get(context.Background(), "users", nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `pantry_driver_requests_total{collection="users",driver="memory",op="get",status="200"} 1`))
}
