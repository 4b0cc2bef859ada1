package dashboard

import (
	"context"
	"net/http"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Project flags.
const (
	ProjectActive   = 1 << 0
	ProjectArchived = 1 << 1
	ProjectPublic   = 1 << 2
)

// Project is a user-owned workspace.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"userId"`
	Progress    int    `json:"progress"`
	Flags       int    `json:"flags"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

func (p Project) RecordID() string { return p.ID }
func (p Project) OwnerID() string  { return p.UserID }

// Archived reports whether the archived flag is set.
func (p Project) Archived() bool { return p.Flags&ProjectArchived != 0 }

// Projects is the owner-scoped projects service.
type Projects struct {
	*service.Scoped[Project]
	src session.Source
}

func newProjects(reg *registry.Registry, src session.Source) (*Projects, error) {
	base, err := service.ScopedFor(reg, ProjectsCollection, src)
	if err != nil {
		return nil, err
	}
	return &Projects{Scoped: base, src: src}, nil
}

// Archive clears the active flag and sets the archived flag on one of the
// session user's projects. Missing projects yield 404 and projects owned by
// someone else 403.
func (p *Projects) Archive(ctx context.Context, id string, opts ...types.Option) types.Envelope[*Project] {
	if _, ok := currentUser(ctx, p.src); !ok {
		return types.Failure[*Project](http.StatusUnauthorized, types.ErrUnauthorized)
	}
	cur := p.FindOne(ctx, id, types.WithDelay(0))
	if !cur.OK() {
		return cur
	}
	flags := cur.Data.Flags&^ProjectActive | ProjectArchived
	return p.UpdateMy(ctx, id, types.Patch{"flags": flags}, opts...)
}

var seedProjects = []Project{
	{
		ID:          "prj_1",
		Name:        "OpenDND Core Framework",
		Description: "Developing the master template for modular AI applications.",
		UserID:      "u_1",
		Progress:    85,
		Flags:       ProjectActive | ProjectPublic,
		CreatedAt:   "2024-01-01T00:00:00Z",
		UpdatedAt:   "2024-03-15T00:00:00Z",
	},
}
