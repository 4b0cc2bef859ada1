// Package metrics wraps a types.Driver with Prometheus instrumentation.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Collectors holds the driver metrics. One set may be shared by several
// instrumented drivers; the driver label tells them apart.
type Collectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pantry",
				Subsystem: "driver",
				Name:      "requests_total",
				Help:      "Total number of driver operations by outcome status.",
			},
			[]string{"driver", "collection", "op", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pantry",
				Subsystem: "driver",
				Name:      "request_duration_seconds",
				Help:      "Duration of driver operations, simulated latency included.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"driver", "op"},
		),
	}
	if reg != nil {
		reg.MustRegister(c.requests, c.duration)
	}
	return c
}

// Handler returns an HTTP handler exposing everything registered in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (c *Collectors) observe(driver, collection, op string, status int, start time.Time) {
	c.requests.WithLabelValues(driver, collection, op, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
}

// Driver is an instrumented types.Driver.
type Driver struct {
	next types.Driver
	c    *Collectors
}

// seedingDriver keeps the Seeder capability visible through the wrapper.
type seedingDriver struct {
	*Driver
	seeder types.Seeder
}

func (s seedingDriver) Seed(ctx context.Context, collection string, docs []types.Document) error {
	return s.seeder.Seed(ctx, collection, docs)
}

// Instrument wraps d so every operation is counted and timed. The result
// implements types.Seeder exactly when d does.
func Instrument(d types.Driver, c *Collectors) types.Driver {
	w := &Driver{next: d, c: c}
	if s, ok := d.(types.Seeder); ok {
		return seedingDriver{Driver: w, seeder: s}
	}
	return w
}

// Unwrap returns the instrumented driver.
func (d *Driver) Unwrap() types.Driver { return d.next }

// Name returns the wrapped driver's name.
func (d *Driver) Name() string { return d.next.Name() }

func (d *Driver) Get(ctx context.Context, collection string, match types.Matcher, opts ...types.Option) types.Envelope[[]types.Document] {
	start := time.Now()
	env := d.next.Get(ctx, collection, match, opts...)
	d.c.observe(d.next.Name(), collection, "get", env.Status, start)
	return env
}

func (d *Driver) Post(ctx context.Context, collection string, doc types.Document, opts ...types.Option) types.Envelope[types.Document] {
	start := time.Now()
	env := d.next.Post(ctx, collection, doc, opts...)
	d.c.observe(d.next.Name(), collection, "post", env.Status, start)
	return env
}

func (d *Driver) Put(ctx context.Context, collection, id string, patch types.Patch, guard types.Matcher, opts ...types.Option) types.Envelope[types.Document] {
	start := time.Now()
	env := d.next.Put(ctx, collection, id, patch, guard, opts...)
	d.c.observe(d.next.Name(), collection, "put", env.Status, start)
	return env
}

func (d *Driver) Delete(ctx context.Context, collection, id string, guard types.Matcher, opts ...types.Option) types.Envelope[bool] {
	start := time.Now()
	env := d.next.Delete(ctx, collection, id, guard, opts...)
	d.c.observe(d.next.Name(), collection, "delete", env.Status, start)
	return env
}
