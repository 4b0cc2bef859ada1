package dashboard

import (
	"context"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// RouteFlags describe where a route is shown and who may open it.
type RouteFlags int

// Route flags.
const (
	RouteRequiresAuth  RouteFlags = 1 << 0
	RouteGuestOnly     RouteFlags = 1 << 1
	RouteShowInSidebar RouteFlags = 1 << 2
	RouteShowInNavbar  RouteFlags = 1 << 3
	RouteIsAdmin       RouteFlags = 1 << 4
)

// Route is a navigable page of the dashboard.
type Route struct {
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	ComponentKey string     `json:"componentKey"`
	Label        string     `json:"label"`
	Icon         string     `json:"icon,omitempty"`
	Flags        RouteFlags `json:"flags"`
	CreatedAt    string     `json:"createdAt,omitempty"`
	UpdatedAt    string     `json:"updatedAt,omitempty"`
}

func (r Route) RecordID() string { return r.ID }

// Routes is the app-routes service.
type Routes struct {
	*service.Service[Route]
}

func newRoutes(reg *registry.Registry) (*Routes, error) {
	base, err := service.For(reg, RoutesCollection)
	if err != nil {
		return nil, err
	}
	return &Routes{Service: base}, nil
}

// WithFlags returns the routes that carry every bit of flags, in order.
func (r *Routes) WithFlags(ctx context.Context, flags RouteFlags, opts ...types.Option) types.Envelope[[]Route] {
	return r.Where(ctx, func(rt Route) bool { return rt.Flags&flags == flags }, opts...)
}

const seedRouteStamp = "2023-01-01T00:00:00Z"

var seedRoutes = []Route{
	{ID: "route_home", Path: "/", ComponentKey: "Landing", Label: "Home",
		Flags: RouteShowInNavbar, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
	{ID: "route_login", Path: "/login", ComponentKey: "Login", Label: "Sign In",
		Flags: RouteGuestOnly | RouteShowInNavbar, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
	{ID: "route_dashboard", Path: "/dashboard", ComponentKey: "Dashboard", Label: "Dashboard", Icon: "LayoutDashboard",
		Flags: RouteRequiresAuth | RouteShowInNavbar, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
	{ID: "route_dash_users", Path: "/dashboard/users", ComponentKey: "Dashboard", Label: "Users", Icon: "Users",
		Flags: RouteRequiresAuth | RouteShowInSidebar | RouteIsAdmin, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
	{ID: "route_dash_revenue", Path: "/dashboard/revenue", ComponentKey: "Dashboard", Label: "Revenue", Icon: "DollarSign",
		Flags: RouteRequiresAuth | RouteShowInSidebar, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
	{ID: "route_dash_ai", Path: "/dashboard/ai", ComponentKey: "Dashboard", Label: "AI Tools", Icon: "BrainCircuit",
		Flags: RouteRequiresAuth | RouteShowInSidebar, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
	{ID: "route_dash_settings", Path: "/dashboard/settings", ComponentKey: "Dashboard", Label: "Settings", Icon: "Settings",
		Flags: RouteRequiresAuth | RouteShowInSidebar | RouteIsAdmin, CreatedAt: seedRouteStamp, UpdatedAt: seedRouteStamp},
}
