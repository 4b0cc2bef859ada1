package dashboard

import (
	"context"
	"time"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Activity is one entry of a user's audit trail.
type Activity struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Action    string `json:"action"`
	Entity    string `json:"entity"`
	Details   string `json:"details"`
	CreatedAt string `json:"createdAt,omitempty"`
	Flags     int    `json:"flags"`
}

func (a Activity) RecordID() string { return a.ID }
func (a Activity) OwnerID() string  { return a.UserID }

// ActivityLog is the owner-scoped user-activity service.
type ActivityLog struct {
	*service.Scoped[Activity]
	now func() time.Time
}

func newActivityLog(reg *registry.Registry, src session.Source, now func() time.Time) (*ActivityLog, error) {
	base, err := service.ScopedFor(reg, ActivityCollection, src)
	if err != nil {
		return nil, err
	}
	return &ActivityLog{Scoped: base, now: now}, nil
}

// Log appends an entry for the session user.
func (a *ActivityLog) Log(ctx context.Context, action, entity, details string, opts ...types.Option) types.Envelope[*Activity] {
	return a.CreateOneMy(ctx, Activity{
		Action:    action,
		Entity:    entity,
		Details:   details,
		CreatedAt: codec.Timestamp(a.now()),
	}, opts...)
}

var seedActivity = []Activity{
	{
		ID:        "act_1",
		UserID:    "u_1",
		Action:    "SERVICE_INIT",
		Entity:    "AppConfigService",
		Details:   "Provider bootstrapped with MemoryStrategy",
		CreatedAt: "2024-03-10T14:30:00Z",
	},
	{
		ID:        "act_2",
		UserID:    "u_1",
		Action:    "DATA_FETCH",
		Entity:    "AppRouteService",
		Details:   "Retrieved 6 active routes",
		CreatedAt: "2024-03-10T14:30:01Z",
	},
}
