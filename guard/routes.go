package guard

import (
	"strings"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/role"
)

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

// Route is one page of the portal.
type Route struct {
	Path   string
	Title  string
	Roles  role.Set
	Public bool
}

// Routes lists every page in navigation order. Protected routes come first.
var Routes = []Route{
	{Path: "/dashboard", Title: "Dashboard", Roles: role.Any},
	{Path: "/attendance", Title: "Attendance", Roles: role.Any},
	{Path: "/leaves", Title: "Leave Management", Roles: role.Any},
	{Path: "/reports", Title: "Reports", Roles: role.Only(role.Admin, role.Manager, role.HR)},
	{Path: "/admin", Title: "Admin Dashboard", Roles: role.Only(role.Admin)},
	{Path: "/users", Title: "User Management", Roles: role.Only(role.Admin, role.HR)},
	{Path: "/registration-requests", Title: "Registration Requests", Roles: role.Only(role.Admin)},
	{Path: "/profile", Title: "Profile", Roles: role.Any},

	{Path: "/login", Title: "Sign in", Public: true},
	{Path: "/register", Title: "Register", Public: true},
	{Path: "/forgot-password", Title: "Forgot password", Public: true},
	{Path: "/reset-password", Title: "Reset password", Public: true},
}

var byPath = func() map[string]Route {
	m := make(map[string]Route, len(Routes))
	for _, r := range Routes {
		m[r.Path] = r
	}
	return m
}()

// Lookup finds the route for path. A trailing slash is ignored.
func Lookup(path string) (Route, bool) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	r, ok := byPath[path]
	return r, ok
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	r, ok := Lookup(path)
	return ok && r.Public
}

// Navigation returns the protected routes the session may open, in order.
// Unresolved and anonymous sessions get none.
func Navigation(state goAttend.State) []Route {
	if !state.Resolved || state.User == nil {
		return nil
	}
	out := make([]Route, 0, len(Routes))
	for _, r := range Routes {
		if r.Public {
			continue
		}
		if Evaluate(state, r.Roles) == Render {
			out = append(out, r)
		}
	}
	return out
}
