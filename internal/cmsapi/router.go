// Package cmsapi serves any types.Driver over HTTP using the Strapi v4 REST
// shape spoken by the remote driver.
package cmsapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/metrics"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Option configures the router.
type Option func(*Handler)

// WithToken requires "Authorization: Bearer <token>" on every /api route.
func WithToken(token string) Option {
	return func(h *Handler) { h.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

// Handler holds the driver behind the routes.
type Handler struct {
	driver   types.Driver
	token    string
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewRouter builds the gin engine serving d.
func NewRouter(d types.Driver, opts ...Option) *gin.Engine {
	h := &Handler{driver: d, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("cmsapi")

	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "driver": d.Name()})
	})
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(h.gatherer)))
	}

	api := r.Group("/api", h.authorize)
	api.GET("/:collection", h.List)
	api.POST("/:collection", h.Create)
	api.GET("/:collection/:id", h.Show)
	api.PUT("/:collection/:id", h.Update)
	api.DELETE("/:collection/:id", h.Delete)
	return r
}

// List handles GET /api/:collection. Query parameters of the form
// filters[field][$eq]=value narrow the result.
func (h *Handler) List(c *gin.Context) {
	env := h.driver.Get(c.Request.Context(), c.Param("collection"), filtersFrom(c))
	if !env.OK() {
		h.fail(c, env.Status, env.Error)
		return
	}
	items := make([]gin.H, 0, len(env.Data))
	for _, doc := range env.Data {
		items = append(items, toWire(doc))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"meta": gin.H{"pagination": gin.H{
			"page":      1,
			"pageSize":  len(items),
			"pageCount": 1,
			"total":     len(items),
		}},
	})
}

// Show handles GET /api/:collection/:id.
func (h *Handler) Show(c *gin.Context) {
	id := c.Param("id")
	env := h.driver.Get(c.Request.Context(), c.Param("collection"), types.FieldEquals(types.FieldID, id))
	if !env.OK() {
		h.fail(c, env.Status, env.Error)
		return
	}
	if len(env.Data) == 0 {
		h.fail(c, http.StatusNotFound, types.ErrNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toWire(env.Data[0]), "meta": gin.H{}})
}

// Create handles POST /api/:collection. A body without an id is given one.
func (h *Handler) Create(c *gin.Context) {
	doc, ok := h.payload(c)
	if !ok {
		return
	}
	if doc.ID() == "" {
		doc[types.FieldID] = uuid.Must(uuid.NewV7()).String()
	}
	env := h.driver.Post(c.Request.Context(), c.Param("collection"), doc)
	if !env.OK() {
		h.fail(c, env.Status, env.Error)
		return
	}
	c.JSON(env.Status, gin.H{"data": toWire(env.Data), "meta": gin.H{}})
}

// Update handles PUT /api/:collection/:id.
func (h *Handler) Update(c *gin.Context) {
	doc, ok := h.payload(c)
	if !ok {
		return
	}
	env := h.driver.Put(c.Request.Context(), c.Param("collection"), c.Param("id"), types.Patch(doc), nil)
	if !env.OK() {
		h.fail(c, env.Status, env.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toWire(env.Data), "meta": gin.H{}})
}

// Delete handles DELETE /api/:collection/:id.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	env := h.driver.Delete(c.Request.Context(), c.Param("collection"), id, nil)
	if !env.OK() {
		h.fail(c, env.Status, env.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "attributes": gin.H{}}, "meta": gin.H{}})
}

// payload reads the {"data": {...}} request body. Numbers are kept as
// json.Number. On failure it writes a 400 and returns false.
func (h *Handler) payload(c *gin.Context) (types.Document, bool) {
	raw, err := c.GetRawData()
	if err == nil {
		var body types.Document
		if body, err = codec.Unmarshal(raw); err == nil {
			if data, isMap := body["data"].(map[string]any); isMap {
				return types.Document(data), true
			}
		}
	}
	h.fail(c, http.StatusBadRequest, "missing \"data\" payload in the request body")
	return nil, false
}

func (h *Handler) authorize(c *gin.Context) {
	if h.token == "" {
		c.Next()
		return
	}
	got, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !found || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		h.fail(c, http.StatusUnauthorized, "Missing or invalid credentials")
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handler) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (h *Handler) fail(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{
		"data": nil,
		"error": gin.H{
			"status":  status,
			"name":    errorName(status),
			"message": msg,
		},
	})
}

func errorName(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusUnauthorized:
		return "UnauthorizedError"
	case http.StatusForbidden:
		return "ForbiddenError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusConflict:
		return "ConflictError"
	default:
		return "ApplicationError"
	}
}

// toWire splits a document into the {id, attributes} item shape.
func toWire(doc types.Document) gin.H {
	attrs := make(gin.H, len(doc))
	for k, v := range doc {
		if k != types.FieldID {
			attrs[k] = v
		}
	}
	return gin.H{"id": doc.ID(), "attributes": attrs}
}

func filtersFrom(c *gin.Context) types.Matcher {
	var ms []types.Matcher
	for key, vals := range c.Request.URL.Query() {
		field, ok := strings.CutPrefix(key, "filters[")
		if !ok {
			continue
		}
		field, ok = strings.CutSuffix(field, "][$eq]")
		if !ok || field == "" || len(vals) == 0 {
			continue
		}
		ms = append(ms, types.FieldEquals(field, vals[0]))
	}
	if len(ms) == 0 {
		return nil
	}
	return func(d types.Document) bool {
		for _, m := range ms {
			if !m(d) {
				return false
			}
		}
		return true
	}
}
