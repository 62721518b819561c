package role

import (
	"errors"
	"strings"
)

// ErrUnknownRole is returned by [Parse] for strings outside the closed role set.
var ErrUnknownRole = errors.New("unknown role")

// Role is one of the closed set of portal roles.
type Role string

const (
	Admin    Role = "admin"
	Manager  Role = "manager"
	HR       Role = "hr"
	Employee Role = "employee"
)

var known = [...]Role{Admin, Manager, HR, Employee}

// All returns every known role in declaration order.
func All() []Role {
	out := make([]Role, len(known))
	copy(out[:], known[:])
	return out
}

// Parse normalizes s and maps it onto the closed role set.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	for _, k := range known {
		if r == k {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Set is an allowed-roles requirement. The zero value (and [Any]) admits
// every role.
type Set struct {
	roles []Role
}

// Any admits every authenticated role.
var Any = Set{}

// Only builds a Set admitting exactly the given roles. Duplicates are folded.
// Unknown roles are kept and simply never match a valid user role.
func Only(roles ...Role) Set {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		dup := false
		for _, existing := range out {
			if existing == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return Set{roles: out}
}

// IsAny reports whether the set places no restriction on role.
func (s Set) IsAny() bool {
	return len(s.roles) == 0
}

// Allows reports whether r satisfies the requirement.
func (s Set) Allows(r Role) bool {
	if s.IsAny() {
		return true
	}
	for _, allowed := range s.roles {
		if allowed == r {
			return true
		}
	}
	return false
}

// Roles returns a copy of the explicit members; nil for Any.
func (s Set) Roles() []Role {
	if s.IsAny() {
		return nil
	}
	out := make([]Role, len(s.roles))
	copy(out, s.roles)
	return out
}

func (s Set) String() string {
	if s.IsAny() {
		return "any"
	}
	names := make([]string, len(s.roles))
	for i, r := range s.roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}
