package dashboard

import (
	"context"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Notification template flags: kind, origin and display behaviour.
const (
	NotifyInfo        = 1 << 0
	NotifySuccess     = 1 << 1
	NotifyWarning     = 1 << 2
	NotifyError       = 1 << 3
	NotifyCelebration = 1 << 4

	NotifyFromSystem = 1 << 5
	NotifyFromCron   = 1 << 6
	NotifyFromUser   = 1 << 7
	NotifyFromAction = 1 << 8

	NotifyHasDuration  = 1 << 9
	NotifyIsPersistent = 1 << 10
)

// NotificationAction is a button offered with a notification.
type NotificationAction struct {
	Label   string `json:"label"`
	Variant string `json:"variant,omitempty"`
}

// Notification is an application-wide notification template.
type Notification struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Message   string               `json:"message,omitempty"`
	Icon      string               `json:"icon,omitempty"`
	Duration  int                  `json:"duration,omitempty"`
	Actions   []NotificationAction `json:"actions,omitempty"`
	CreatedAt string               `json:"createdAt,omitempty"`
	UpdatedAt string               `json:"updatedAt,omitempty"`
	Flags     int                  `json:"flags"`
}

func (n Notification) RecordID() string { return n.ID }

// NotificationRead marks a user notification as read.
const NotificationRead = 1 << 0

// UserNotification delivers a template to one user.
type UserNotification struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	TemplateID string `json:"templateId"`
	Flags      int    `json:"flags"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

func (n UserNotification) RecordID() string { return n.ID }
func (n UserNotification) OwnerID() string  { return n.UserID }

// Read reports whether the read flag is set.
func (n UserNotification) Read() bool { return n.Flags&NotificationRead != 0 }

// UserNotifications is the owner-scoped user-notifications service.
type UserNotifications struct {
	*service.Scoped[UserNotification]
}

func newUserNotifications(reg *registry.Registry, src session.Source) (*UserNotifications, error) {
	base, err := service.ScopedFor(reg, UserNotificationsCollection, src)
	if err != nil {
		return nil, err
	}
	return &UserNotifications{Scoped: base}, nil
}

// UnreadCount counts the session user's unread notifications. The listing
// skips simulated latency.
func (n *UserNotifications) UnreadCount(ctx context.Context) (int, error) {
	mine := n.FindAllMy(ctx, types.WithDelay(0))
	if err := mine.Err(); err != nil {
		return 0, err
	}
	count := 0
	for _, rec := range mine.Data {
		if !rec.Read() {
			count++
		}
	}
	return count, nil
}

// MarkAllRead sets the read flag on each of the session user's unread
// notifications, one at a time and without simulated latency. It returns the
// number marked and stops at the first failed update.
func (n *UserNotifications) MarkAllRead(ctx context.Context) (int, error) {
	mine := n.FindAllMy(ctx, types.WithDelay(0))
	if err := mine.Err(); err != nil {
		return 0, err
	}
	marked := 0
	for _, rec := range mine.Data {
		if rec.Read() {
			continue
		}
		res := n.UpdateMy(ctx, rec.ID, types.Patch{"flags": rec.Flags | NotificationRead}, types.WithDelay(0))
		if err := res.Err(); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

var seedNotifications = []Notification{
	{
		ID:       "welcome_guest",
		Title:    "Welcome to OpenDND",
		Message:  "We are glad to have you back. Explore the new dashboard features.",
		Icon:     "Terminal",
		Duration: 8000,
		Flags:    NotifyInfo,
	},
	{
		ID:      "auth_required",
		Title:   "Knowledge Restricted",
		Message: "You must be authenticated to access the deeper archives of this realm.",
		Icon:    "Lock",
		Actions: []NotificationAction{{Label: "Sign In", Variant: "primary"}},
		Flags:   NotifyWarning,
	},
	{
		ID:      "maintenance",
		Title:   "Arcane Miscalculation",
		Message: "The AI Forge failed to manifest your request. The arcane winds are chaotic today.",
		Icon:    "AlertTriangle",
		Flags:   NotifyWarning,
	},
	{
		ID:       "celebration",
		Title:    "Milestone Achieved!",
		Message:  "Your team has surpassed the monthly revenue target by 15%.",
		Icon:     "Sparkles",
		Duration: 10000,
		Flags:    NotifyCelebration,
	},
}

var seedUserNotifications = []UserNotification{
	{
		ID:         "un_1",
		UserID:     "u_1",
		TemplateID: "welcome_guest",
		Flags:      NotificationRead,
		CreatedAt:  "2024-03-10T14:30:00Z",
		UpdatedAt:  "2024-03-10T14:30:00Z",
	},
	{
		ID:         "un_2",
		UserID:     "u_1",
		TemplateID: "celebration",
		CreatedAt:  "2024-03-11T09:00:00Z",
		UpdatedAt:  "2024-03-11T09:00:00Z",
	},
}
