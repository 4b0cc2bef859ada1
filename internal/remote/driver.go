// Package remote implements types.Driver against a headless CMS that follows
// the Strapi v4 REST convention: /api/{collection} and /api/{collection}/{id},
// payloads wrapped in {"data": ...} and items shaped {id, attributes}.
//
// Remote data is owned by the server, so the driver does not implement
// types.Seeder and seed data registered for it stays queued.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultTimeout bounds each HTTP request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// Config configures the remote driver.
type Config struct {
	// BaseURL is the CMS origin. "/api" is appended unless already present.
	BaseURL string
	// Token, when set, is sent as a bearer token.
	Token string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Timeout applies to the default client.
	Timeout time.Duration
}

// Driver talks to the CMS over HTTP.
type Driver struct {
	base    string
	token   string
	client  *http.Client
	latency time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

var _ types.Driver = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The driver logs under the name "remote".
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithLatency adds a simulated delay before each request. The default is none.
func WithLatency(latency time.Duration) Option {
	return func(d *Driver) { d.latency = latency }
}

// WithClock replaces time.Now for list metadata.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New creates a remote driver.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if cfg.BaseURL == "" {
		return nil, types.ErrRemoteURLEmpty
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	d := &Driver{
		base:   apiBase(cfg.BaseURL),
		token:  cfg.Token,
		client: client,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("remote")
	return d, nil
}

func apiBase(raw string) string {
	base := strings.TrimRight(raw, "/")
	if strings.HasSuffix(base, "/api") {
		return base
	}
	return base + "/api"
}

// Name returns "remote".
func (d *Driver) Name() string { return types.ProviderRemote }

// BaseURL returns the resolved API root.
func (d *Driver) BaseURL() string { return d.base }

// Get lists the collection and applies match locally.
func (d *Driver) Get(ctx context.Context, collection string, match types.Matcher, opts ...types.Option) types.Envelope[[]types.Document] {
	if err := d.begin(ctx, opts); err != nil {
		return types.Failure[[]types.Document](http.StatusInternalServerError, err)
	}
	res := d.do(ctx, http.MethodGet, d.path(collection, ""), nil)
	if res.err != nil {
		return types.Failure[[]types.Document](res.status, res.err)
	}

	items, err := res.list()
	if err != nil {
		return types.Failure[[]types.Document](http.StatusInternalServerError, err)
	}
	out := make([]types.Document, 0, len(items))
	for _, doc := range items {
		if match.Matches(doc) {
			out = append(out, doc)
		}
	}
	env := types.Success(res.status, out)
	env.Meta = types.ListMeta(len(out), d.now().UTC())
	if res.page > 0 {
		page := res.page
		env.Meta.Page = &page
	}
	return env
}

// Post creates doc on the server.
func (d *Driver) Post(ctx context.Context, collection string, doc types.Document, opts ...types.Option) types.Envelope[types.Document] {
	if err := d.begin(ctx, opts); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	return d.single(d.do(ctx, http.MethodPost, d.path(collection, ""), doc))
}

// Put sends patch to the server. A non-nil guard is checked against a fresh
// read of the item first; the read and the write are not atomic.
func (d *Driver) Put(ctx context.Context, collection, id string, patch types.Patch, guard types.Matcher, opts ...types.Option) types.Envelope[types.Document] {
	if err := d.begin(ctx, opts); err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	if status, err := d.check(ctx, collection, id, guard); err != nil {
		return types.Failure[types.Document](status, err)
	}
	return d.single(d.do(ctx, http.MethodPut, d.path(collection, id), patch))
}

// Delete removes the item. Guard handling matches Put.
func (d *Driver) Delete(ctx context.Context, collection, id string, guard types.Matcher, opts ...types.Option) types.Envelope[bool] {
	if err := d.begin(ctx, opts); err != nil {
		return types.Failure[bool](http.StatusInternalServerError, err)
	}
	if status, err := d.check(ctx, collection, id, guard); err != nil {
		return types.Failure[bool](status, err)
	}
	res := d.do(ctx, http.MethodDelete, d.path(collection, id), nil)
	if res.err != nil {
		return types.Failure[bool](res.status, res.err)
	}
	return types.Success(res.status, true)
}

func (d *Driver) begin(ctx context.Context, opts []types.Option) error {
	o := types.ResolveOptions(opts...)
	if err := types.Wait(ctx, o.Latency(d.latency)); err != nil {
		return err
	}
	if o.ShouldFail {
		return types.ErrSimulated
	}
	return nil
}

// check fetches the item and applies guard. It returns a non-nil error with
// the status to report when the operation must not proceed.
func (d *Driver) check(ctx context.Context, collection, id string, guard types.Matcher) (int, error) {
	if guard == nil {
		return 0, nil
	}
	cur := d.single(d.do(ctx, http.MethodGet, d.path(collection, id), nil))
	if !cur.OK() {
		return cur.Status, cur.Err()
	}
	if cur.Data == nil {
		return http.StatusNotFound, types.ErrNotFound
	}
	if !guard.Matches(cur.Data) {
		d.logger.Debug("guard rejected", zap.String("collection", collection), zap.String("id", id))
		return http.StatusForbidden, types.ErrForbidden
	}
	return 0, nil
}

func (d *Driver) single(res result) types.Envelope[types.Document] {
	if res.err != nil {
		return types.Failure[types.Document](res.status, res.err)
	}
	doc, err := res.one()
	if err != nil {
		return types.Failure[types.Document](http.StatusInternalServerError, err)
	}
	return types.Success(res.status, doc)
}

func (d *Driver) path(collection, id string) string {
	p := d.base + "/" + url.PathEscape(collection)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// result is a decoded CMS response. err is set for transport failures and
// non-2xx statuses, with status holding what should be reported.
type result struct {
	status int
	data   any
	page   int
	err    error
}

type wireResponse struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination struct {
			Page  int `json:"page"`
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
	Error *struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (d *Driver) do(ctx context.Context, method, target string, payload any) result {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(map[string]any{"data": payload})
		if err != nil {
			return result{status: http.StatusInternalServerError, err: fmt.Errorf("encode payload: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return result{status: http.StatusInternalServerError, err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return result{status: http.StatusInternalServerError, err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{status: http.StatusInternalServerError, err: fmt.Errorf("read response: %w", err)}
	}
	d.logger.Debug("request", zap.String("method", method), zap.String("url", target), zap.Int("status", resp.StatusCode))

	var wire wireResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &wire); err != nil && ok(resp.StatusCode) {
			return result{status: http.StatusInternalServerError, err: fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)}
		}
	}

	if !ok(resp.StatusCode) {
		msg := http.StatusText(resp.StatusCode)
		if wire.Error != nil && wire.Error.Message != "" {
			msg = wire.Error.Message
		}
		return result{status: resp.StatusCode, err: errors.New(msg)}
	}

	res := result{status: resp.StatusCode, page: wire.Meta.Pagination.Page}
	if len(wire.Data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(wire.Data))
		dec.UseNumber()
		if err := dec.Decode(&res.data); err != nil {
			return result{status: http.StatusInternalServerError, err: fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)}
		}
	}
	return res
}

func ok(status int) bool { return status >= 200 && status < 300 }

// list returns the response data as flattened documents.
func (r result) list() ([]types.Document, error) {
	if r.data == nil {
		return []types.Document{}, nil
	}
	items, isList := r.data.([]any)
	if !isList {
		return nil, fmt.Errorf("%w: expected a list", types.ErrInvalidDocument)
	}
	out := make([]types.Document, 0, len(items))
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%w: list item is not an object", types.ErrInvalidDocument)
		}
		out = append(out, flatten(m))
	}
	return out, nil
}

// one returns the response data as a single flattened document, or nil when
// the server sent none.
func (r result) one() (types.Document, error) {
	if r.data == nil {
		return nil, nil
	}
	m, isMap := r.data.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("%w: expected an object", types.ErrInvalidDocument)
	}
	return flatten(m), nil
}

// flatten merges {id, attributes} into one document and renders the id as a
// string. Items already flat pass through with the id normalised.
func flatten(item map[string]any) types.Document {
	doc := types.Document{}
	if attrs, isMap := item["attributes"].(map[string]any); isMap && item[types.FieldID] != nil {
		for k, v := range attrs {
			doc[k] = v
		}
		doc[types.FieldID] = item[types.FieldID]
	} else {
		for k, v := range item {
			doc[k] = v
		}
	}
	if _, has := doc[types.FieldID]; has {
		doc[types.FieldID] = doc.ID()
	}
	return doc
}
