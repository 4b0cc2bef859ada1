// Package dashboard declares the admin dashboard's domain collections: their
// record shapes, seed rows and the small read and write helpers the dashboard
// screens use on top of the generic services.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Collection keys.
var (
	UsersCollection             = types.NewCollection[User]("users")
	ConfigsCollection           = types.NewCollection[AppConfig]("app-configs")
	TermsCollection             = types.NewCollection[Term]("app-terms")
	UserTermsCollection         = types.NewCollection[UserTerm]("user-terms")
	NotificationsCollection     = types.NewCollection[Notification]("app-notifications")
	UserNotificationsCollection = types.NewCollection[UserNotification]("user-notifications")
	ActivityCollection          = types.NewCollection[Activity]("user-activity")
	RoutesCollection            = types.NewCollection[Route]("app-routes")
	ProjectsCollection          = types.NewCollection[Project]("projects")
	TasksCollection             = types.NewCollection[Task]("tasks")
)

// CollectionNames lists every dashboard collection in registration order.
var CollectionNames = []string{
	UsersCollection.Name(),
	ConfigsCollection.Name(),
	TermsCollection.Name(),
	UserTermsCollection.Name(),
	NotificationsCollection.Name(),
	UserNotificationsCollection.Name(),
	ActivityCollection.Name(),
	RoutesCollection.Name(),
	ProjectsCollection.Name(),
	TasksCollection.Name(),
}

// DefaultUser is the session user a development process starts with.
const DefaultUser = "u_1"

// Catalog holds the services for every dashboard collection on one registry.
type Catalog struct {
	Users             *Users
	Configs           *Configs
	Terms             *Terms
	UserTerms         *UserTerms
	Notifications     *service.Service[Notification]
	UserNotifications *UserNotifications
	Activity          *ActivityLog
	Routes            *Routes
	Projects          *Projects
	Tasks             *Tasks
}

// Option configures New.
type Option func(*options)

type options struct {
	now  func() time.Time
	seed bool
}

// WithClock replaces time.Now for timestamps the helpers write.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutSeeds skips registering the built-in seed rows.
func WithoutSeeds() Option {
	return func(o *options) { o.seed = false }
}

// New registers the seed rows for every collection on reg and builds the
// catalog. Owner-scoped helpers resolve the current user through src.
func New(ctx context.Context, reg *registry.Registry, src session.Source, opts ...Option) (*Catalog, error) {
	o := options{now: time.Now, seed: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seed {
		if err := RegisterSeeds(ctx, reg); err != nil {
			return nil, err
		}
	}

	c := &Catalog{}
	var err error
	if c.Users, err = newUsers(reg, src); err != nil {
		return nil, err
	}
	if c.Configs, err = newConfigs(reg); err != nil {
		return nil, err
	}
	if c.Terms, err = newTerms(reg); err != nil {
		return nil, err
	}
	if c.UserTerms, err = newUserTerms(reg, src, o.now); err != nil {
		return nil, err
	}
	if c.Notifications, err = service.For(reg, NotificationsCollection); err != nil {
		return nil, err
	}
	if c.UserNotifications, err = newUserNotifications(reg, src); err != nil {
		return nil, err
	}
	if c.Activity, err = newActivityLog(reg, src, o.now); err != nil {
		return nil, err
	}
	if c.Routes, err = newRoutes(reg); err != nil {
		return nil, err
	}
	if c.Projects, err = newProjects(reg, src); err != nil {
		return nil, err
	}
	if c.Tasks, err = newTasks(reg); err != nil {
		return nil, err
	}
	return c, nil
}

// RegisterSeeds registers the built-in rows for every collection.
func RegisterSeeds(ctx context.Context, reg *registry.Registry) error {
	steps := []func() error{
		func() error { return service.RegisterSeed(ctx, reg, UsersCollection, seedUsers) },
		func() error { return service.RegisterSeed(ctx, reg, ConfigsCollection, []AppConfig{seedConfig()}) },
		func() error { return service.RegisterSeed(ctx, reg, TermsCollection, seedTerms) },
		func() error { return service.RegisterSeed(ctx, reg, UserTermsCollection, seedUserTerms) },
		func() error { return service.RegisterSeed(ctx, reg, NotificationsCollection, seedNotifications) },
		func() error { return service.RegisterSeed(ctx, reg, UserNotificationsCollection, seedUserNotifications) },
		func() error { return service.RegisterSeed(ctx, reg, ActivityCollection, seedActivity) },
		func() error { return service.RegisterSeed(ctx, reg, RoutesCollection, seedRoutes) },
		func() error { return service.RegisterSeed(ctx, reg, ProjectsCollection, seedProjects) },
		func() error { return service.RegisterSeed(ctx, reg, TasksCollection, seedTasks) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("register dashboard seeds: %w", err)
		}
	}
	return nil
}

// currentUser returns the session user or false when none is set.
func currentUser(ctx context.Context, src session.Source) (string, bool) {
	if src == nil {
		return "", false
	}
	return src.CurrentUser(ctx)
}
