package guard

import (
	"testing"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/role"
)

func resolvedAs(r role.Role) goAttend.State {
	return goAttend.State{
		User:     &goAttend.User{ID: "u-1", Role: r},
		Resolved: true,
		Phase:    goAttend.PhaseAuthenticated,
	}
}

func TestEvaluate(t *testing.T) {
	anonymous := goAttend.State{Resolved: true, Phase: goAttend.PhaseAnonymous}
	adminOnly := role.Only(role.Admin)

	tests := []struct {
		name     string
		state    goAttend.State
		required role.Set
		want     Decision
	}{
		{"unresolved without user", goAttend.State{}, adminOnly, RenderLoading},
		{"unresolved never redirects even with user", goAttend.State{User: &goAttend.User{ID: "1", Role: role.Employee}}, adminOnly, RenderLoading},
		{"recovering", goAttend.State{Phase: goAttend.PhaseRecovering}, role.Any, RenderLoading},
		{"anonymous any", anonymous, role.Any, RedirectLogin},
		{"anonymous restricted", anonymous, adminOnly, RedirectLogin},
		{"employee on admin page", resolvedAs(role.Employee), adminOnly, RedirectDefault},
		{"admin on admin page", resolvedAs(role.Admin), adminOnly, Render},
		{"hr on any page", resolvedAs(role.HR), role.Any, Render},
		{"manager on reports", resolvedAs(role.Manager), role.Only(role.Admin, role.Manager, role.HR), Render},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.state, tt.required); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRouteTableMatchesRoleMatrix(t *testing.T) {
	matrix := map[string][]role.Role{
		"/dashboard":             role.All(),
		"/profile":               role.All(),
		"/attendance":            role.All(),
		"/leaves":                role.All(),
		"/admin":                 {role.Admin},
		"/reports":               {role.Admin, role.Manager, role.HR},
		"/users":                 {role.Admin, role.HR},
		"/registration-requests": {role.Admin},
	}

	for path, allowed := range matrix {
		route, ok := Lookup(path)
		if !ok || route.Public {
			t.Fatalf("%s must be a protected route", path)
		}
		for _, r := range role.All() {
			want := false
			for _, a := range allowed {
				if a == r {
					want = true
				}
			}
			if got := route.Roles.Allows(r); got != want {
				t.Fatalf("%s for %s: expected %v, got %v", path, r, want, got)
			}
		}
	}
}

func TestPublicRoutes(t *testing.T) {
	for _, p := range []string{"/login", "/register", "/forgot-password", "/reset-password", "/login/"} {
		if !IsPublic(p) {
			t.Fatalf("%s must be public", p)
		}
	}
	for _, p := range []string{"/dashboard", "/admin", "/", "/nope"} {
		if IsPublic(p) {
			t.Fatalf("%s must not be public", p)
		}
	}
}

func TestNavigationFiltersByRole(t *testing.T) {
	if nav := Navigation(goAttend.State{}); nav != nil {
		t.Fatalf("unresolved session must see no navigation, got %v", nav)
	}

	titles := func(rs []Route) map[string]bool {
		m := map[string]bool{}
		for _, r := range rs {
			m[r.Path] = true
		}
		return m
	}

	emp := titles(Navigation(resolvedAs(role.Employee)))
	if len(emp) != 4 || emp["/reports"] || emp["/admin"] {
		t.Fatalf("unexpected employee navigation %v", emp)
	}
	hr := titles(Navigation(resolvedAs(role.HR)))
	if !hr["/users"] || !hr["/reports"] || hr["/registration-requests"] {
		t.Fatalf("unexpected hr navigation %v", hr)
	}
	if admin := Navigation(resolvedAs(role.Admin)); len(admin) != 8 {
		t.Fatalf("admin must see every protected route, got %d", len(admin))
	}
}
