package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/dashboard"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/pantry"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// record is a schemaless row so the CLI can address any collection by name.
type record map[string]any

func (r record) RecordID() string { return types.StringField(types.Document(r), types.FieldID) }
func (r record) OwnerID() string  { return types.StringField(types.Document(r), types.FieldOwner) }

// workspace is an open driver with a registry whose dashboard seeds have
// been registered.
type workspace struct {
	driver  types.Driver
	reg     *registry.Registry
	session *session.Holder
	close   func() error
}

// setup customises openWorkspaceWith.
type setup struct {
	// wrap decorates the driver before the registry sees it.
	wrap func(types.Driver) types.Driver
	// seed registers seed rows once the driver is installed.
	seed func(context.Context, *registry.Registry) error
}

// openWorkspace opens the configured driver and registers the dashboard seed
// rows. Seeding is idempotent, so collections that already exist are left
// alone. The caller must call close.
func openWorkspace(ctx context.Context) (*workspace, error) {
	return openWorkspaceWith(ctx, setup{seed: dashboard.RegisterSeeds})
}

func openWorkspaceWith(ctx context.Context, s setup) (*workspace, error) {
	logger := current.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := current.settings.Driver
	d, closeFn, err := pantry.Open(cfg, logger)
	if err != nil {
		if errors.Is(err, types.ErrProviderUnknown) || errors.Is(err, types.ErrProviderEmpty) ||
			errors.Is(err, types.ErrRemoteURLEmpty) || errors.Is(err, types.ErrLatencyNegative) {
			return nil, userError("%w (providers: %s)", err, strings.Join(types.ProviderNames, ", "))
		}
		return nil, sysError("open %s provider: %w", cfg.Provider, err)
	}
	if s.wrap != nil {
		d = s.wrap(d)
	}

	reg := registry.New(registry.WithDriver(d), registry.WithLogger(logger))
	if s.seed != nil {
		if err := s.seed(ctx, reg); err != nil {
			closeFn()
			return nil, sysError("seed: %w", err)
		}
	}
	return &workspace{
		driver:  d,
		reg:     reg,
		session: session.NewHolder(current.settings.User),
		close:   closeFn,
	}, nil
}

// service returns the schemaless façade for the named collection.
func (w *workspace) service(name string) *service.Service[record] {
	return service.MustFor(w.reg, types.NewCollection[record](name))
}

// scoped returns the owner-scoped façade for the named collection.
func (w *workspace) scoped(name string) *service.Scoped[record] {
	return service.MustScopedFor(w.reg, types.NewCollection[record](name), w.session)
}

// parseFilters turns field=value arguments into a record predicate. Every
// filter must match; values compare as strings.
func parseFilters(args []string) (func(record) bool, error) {
	type filter struct{ field, value string }
	filters := make([]filter, 0, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, userError("invalid filter %q (expected field=value)", arg)
		}
		filters = append(filters, filter{field, value})
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return func(r record) bool {
		for _, f := range filters {
			if types.StringField(types.Document(r), f.field) != f.value {
				return false
			}
		}
		return true
	}, nil
}

// parseDocument parses a JSON object argument.
func parseDocument(arg string) (types.Document, error) {
	doc, err := codec.Unmarshal([]byte(arg))
	if err != nil {
		return nil, userError("invalid JSON object: %w", err)
	}
	return doc, nil
}

// printResult writes the whole envelope with --json, otherwise only its data.
func printResult[T any](w io.Writer, env types.Envelope[T]) error {
	var v any = env.Data
	if flags.jsonMode {
		v = env
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// envelopeError converts a non-2xx envelope into an exit error. Client-side
// statuses are user errors; everything else is a system error.
func envelopeError[T any](what string, env types.Envelope[T]) error {
	if env.OK() {
		return nil
	}
	err := fmt.Errorf("%s: %w", what, env.Err())
	if env.Status >= http.StatusBadRequest && env.Status < http.StatusInternalServerError {
		return &ExitError{Code: exitUserError, Err: err}
	}
	return &ExitError{Code: exitSysError, Err: err}
}
