package cmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/internal/metrics"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type wireItem struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

type wireError struct {
	Status  int    `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func setupRouter(t *testing.T, opts ...Option) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New(memory.WithLatency(0))
	require.NoError(t, store.Seed(context.Background(), "projects", []types.Document{
		{"id": "p1", "name": "Core", "userId": "u1"},
		{"id": "p2", "name": "Docs", "userId": "u2"},
	}))
	return NewRouter(store, opts...), store
}

func serve(r http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestList(t *testing.T) {
	r, _ := setupRouter(t)

	w := serve(r, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []wireItem `json:"data"`
		Meta struct {
			Pagination struct {
				Total int `json:"total"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "p1", resp.Data[0].ID)
	assert.Equal(t, "Core", resp.Data[0].Attributes["name"])
	assert.NotContains(t, resp.Data[0].Attributes, "id")
	assert.Equal(t, 2, resp.Meta.Pagination.Total)
}

func TestListFilters(t *testing.T) {
	r, _ := setupRouter(t)

	w := serve(r, http.MethodGet, "/api/projects?filters[userId][$eq]=u2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []wireItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "p2", resp.Data[0].ID)
}

func TestShow(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"found", "/api/projects/p2", http.StatusOK},
		{"missing", "/api/projects/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	r, store := setupRouter(t)

	w := serve(r, http.MethodPost, "/api/projects", gin.H{"data": gin.H{"id": "p3", "name": "Web", "progress": 40}})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data wireItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "p3", created.Data.ID)
	assert.Equal(t, 3, store.Len("projects"))

	got := store.Get(context.Background(), "projects", types.FieldEquals("id", "p3"))
	assert.Equal(t, json.Number("40"), got.Data[0]["progress"])

	w = serve(r, http.MethodPut, "/api/projects/p3", gin.H{"data": gin.H{"name": "Website"}})
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Data wireItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Website", updated.Data.Attributes["name"])
	assert.Contains(t, updated.Data.Attributes, types.FieldUpdatedAt)

	w = serve(r, http.MethodDelete, "/api/projects/p3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.Len("projects"))
}

func TestCreateWithoutIDAssignsOne(t *testing.T) {
	r, store := setupRouter(t)

	w := serve(r, http.MethodPost, "/api/projects", gin.H{"data": gin.H{"name": "Anon"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data wireItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, 3, store.Len("projects"))
}

func TestErrors(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       any
		wantStatus int
		wantName   string
	}{
		{"duplicate", http.MethodPost, "/api/projects", gin.H{"data": gin.H{"id": "p1"}}, http.StatusConflict, "ConflictError"},
		{"missing payload", http.MethodPost, "/api/projects", gin.H{"name": "x"}, http.StatusBadRequest, "ValidationError"},
		{"update missing", http.MethodPut, "/api/projects/nope", gin.H{"data": gin.H{"name": "x"}}, http.StatusNotFound, "NotFoundError"},
		{"delete missing", http.MethodDelete, "/api/projects/nope", nil, http.StatusNotFound, "NotFoundError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)
			var resp struct {
				Data  any       `json:"data"`
				Error wireError `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Nil(t, resp.Data)
			assert.Equal(t, tt.wantStatus, resp.Error.Status)
			assert.Equal(t, tt.wantName, resp.Error.Name)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestBearerToken(t *testing.T) {
	r, _ := setupRouter(t, WithToken("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/projects", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/projects", nil, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/projects", nil, "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	d := metrics.Instrument(memory.New(memory.WithLatency(0)), metrics.NewCollectors(reg))
	r := NewRouter(d, WithGatherer(reg))

	serve(r, http.MethodGet, "/api/projects", nil)
	w := serve(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pantry_driver_requests_total")

	r = NewRouter(d)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/metrics", nil).Code)
}
