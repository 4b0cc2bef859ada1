// Package session tracks the current user id used for ownership scoping.
package session

import (
	"context"
	"sync"
)

// Source reports the current user for a call.
type Source interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// Holder keeps one current user id, set at login and cleared at logout.
// Separate holders give isolated sessions.
type Holder struct {
	mu   sync.RWMutex
	user string
}

// NewHolder returns a holder with user already signed in. Pass "" for an
// empty session.
func NewHolder(user string) *Holder {
	return &Holder{user: user}
}

// Set records id as the current user.
func (h *Holder) Set(id string) {
	h.mu.Lock()
	h.user = id
	h.mu.Unlock()
}

// Clear ends the session.
func (h *Holder) Clear() { h.Set("") }

// Current returns the current user id and whether one is set.
func (h *Holder) Current() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user, h.user != ""
}

// CurrentUser implements Source. The context is ignored.
func (h *Holder) CurrentUser(context.Context) (string, bool) {
	return h.Current()
}

type userKey struct{}

// WithUser returns a context carrying id as the current user.
func WithUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserFrom returns the user carried by ctx.
func UserFrom(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(userKey{}).(string)
	return id, id != ""
}

// FromContext is a Source that reads the user from the call's context.
var FromContext Source = contextSource{}

type contextSource struct{}

func (contextSource) CurrentUser(ctx context.Context) (string, bool) {
	return UserFrom(ctx)
}

// Chain returns a Source that consults each source in order and returns the
// first user found. It lets a per-request context user override a
// process-level holder.
func Chain(sources ...Source) Source {
	return chain(sources)
}

type chain []Source

func (c chain) CurrentUser(ctx context.Context) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if id, ok := s.CurrentUser(ctx); ok {
			return id, true
		}
	}
	return "", false
}
