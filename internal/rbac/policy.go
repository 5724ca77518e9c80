package rbac

import (
	"slices"

	"github.com/bizhub-io/bizhub/internal/roles"
)

// Requirement is the capability a route demands. Roles is an exact-match
// whitelist; Permission, when set, must be held by the principal's role.
type Requirement struct {
	Roles      []roles.Name
	Permission roles.Permission
}

// Empty reports whether the requirement demands nothing.
func (r Requirement) Empty() bool {
	return len(r.Roles) == 0 && r.Permission == ""
}

// AnyRole builds a role whitelist requirement.
func AnyRole(names ...roles.Name) Requirement {
	return Requirement{Roles: names}
}

// WithPermission returns a copy of r that also demands perm.
func (r Requirement) WithPermission(perm roles.Permission) Requirement {
	r.Roles = slices.Clone(r.Roles)
	r.Permission = perm
	return r
}

// Policy maps route identifiers to requirements.
type Policy map[string]Requirement

// Lookup returns the requirement for routeID. Unknown routes have none.
func (p Policy) Lookup(routeID string) Requirement {
	return p[routeID]
}

// Decision is the outcome of a capability check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Evaluate checks a principal against req. There is no role hierarchy: an
// Admin only passes a Manager-only route if Admin is listed.
func Evaluate(p *Principal, req Requirement) Decision {
	if req.Empty() {
		return Allow
	}
	if p == nil {
		return DenyUnauthenticated
	}
	if len(req.Roles) > 0 && !slices.Contains(req.Roles, p.RoleName()) {
		return DenyForbidden
	}
	if req.Permission != "" && !p.Has(req.Permission) {
		return DenyForbidden
	}
	return Allow
}
