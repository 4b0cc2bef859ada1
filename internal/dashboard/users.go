package dashboard

import (
	"context"
	"net/http"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// UserRole is a bit set of roles.
type UserRole int

// Roles.
const (
	RoleGuest      UserRole = 0
	RoleUser       UserRole = 1
	RoleAdmin      UserRole = 2
	RoleSuperAdmin UserRole = 3
)

// UserStatus flags.
const (
	UserPending   = 1 << 0
	UserActive    = 1 << 1
	UserSuspended = 1 << 2
	UserDeleted   = 1 << 3
)

// UserPreference flags.
const (
	PrefNotifications = 1 << 0
	PrefNewsletter    = 1 << 1
	PrefDarkTheme     = 1 << 2
	PrefBetaTester    = 1 << 3
)

// User is a dashboard account.
type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	Avatar      string   `json:"avatar,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	LastLogin   string   `json:"lastLogin,omitempty"`
	Status      int      `json:"status"`
	Preferences int      `json:"preferences"`
}

func (u User) RecordID() string { return u.ID }

// HasPreference reports whether every bit in pref is set.
func (u User) HasPreference(pref int) bool { return u.Preferences&pref == pref }

// Users is the users service.
type Users struct {
	*service.Service[User]
	src session.Source
}

func newUsers(reg *registry.Registry, src session.Source) (*Users, error) {
	base, err := service.For(reg, UsersCollection)
	if err != nil {
		return nil, err
	}
	return &Users{Service: base, src: src}, nil
}

// Me returns the session user's record, or 401 when there is no session.
func (u *Users) Me(ctx context.Context, opts ...types.Option) types.Envelope[*User] {
	id, ok := currentUser(ctx, u.src)
	if !ok {
		return types.Failure[*User](http.StatusUnauthorized, types.ErrUnauthorized)
	}
	return u.FindOne(ctx, id, opts...)
}

var seedUsers = []User{
	{
		ID:          "u_1",
		Name:        "Alice Admin",
		Email:       "alice@opendnd.dev",
		Role:        RoleAdmin | RoleUser,
		Avatar:      "https://picsum.photos/200",
		CreatedAt:   "2023-05-10T08:00:00Z",
		UpdatedAt:   "2024-03-10T14:30:00Z",
		LastLogin:   "2024-03-10T14:30:00Z",
		Status:      UserActive,
		Preferences: PrefNotifications | PrefNewsletter | PrefBetaTester,
	},
	{
		ID:          "u_2",
		Name:        "Bob Builder",
		Email:       "bob@opendnd.dev",
		Role:        RoleUser,
		Avatar:      "https://picsum.photos/201",
		CreatedAt:   "2023-06-15T09:00:00Z",
		UpdatedAt:   "2024-03-09T10:15:00Z",
		LastLogin:   "2024-03-09T10:15:00Z",
		Status:      UserActive,
		Preferences: PrefNotifications,
	},
	{
		ID:        "u_3",
		Name:      "Charlie Guest",
		Email:     "charlie@opendnd.dev",
		Role:      RoleGuest,
		CreatedAt: "2024-01-20T11:00:00Z",
		UpdatedAt: "2024-02-20T11:00:00Z",
		LastLogin: "2024-02-20T11:00:00Z",
		Status:    UserPending,
	},
}
