package roles

import (
	"slices"

	"github.com/bizhub-io/bizhub/internal/shared"
)

var defaultPermissions = map[Name][]Permission{
	Admin: {
		PermUserRoleManagement,
		PermBusinessDetailsManage,
		PermCustomersManageAdmin,
		PermCustomerChatFullAdmin,
		PermExternalIntegrations,
	},
	Manager: {
		PermCustomersManageManager,
		PermCustomerChatFullManager,
	},
	Assistant: {
		PermCustomerChatReadWrite,
	},
}

var allPermissions = []Permission{
	PermUserRoleManagement,
	PermBusinessDetailsManage,
	PermCustomersManageAdmin,
	PermCustomerChatFullAdmin,
	PermExternalIntegrations,
	PermCustomersManageManager,
	PermCustomerChatFullManager,
	PermCustomerChatReadWrite,
}

// Names lists every defined role name in seeding order.
func Names() []Name {
	return []Name{Admin, Manager, Assistant}
}

// Permissions lists every defined permission.
func Permissions() []Permission {
	return slices.Clone(allPermissions)
}

// DefaultPermissions returns the initial permission set for name. Unknown
// names yield an empty set.
func DefaultPermissions(name Name) []Permission {
	return slices.Clone(defaultPermissions[name])
}

// Valid reports whether n is a defined role name.
func (n Name) Valid() bool {
	_, ok := defaultPermissions[n]
	return ok
}

// Valid reports whether p is a defined permission.
func (p Permission) Valid() bool {
	return slices.Contains(allPermissions, p)
}

// ParseName validates a wire role name.
func ParseName(raw string) (Name, error) {
	n := Name(raw)
	if !n.Valid() {
		return "", shared.Validationf("unknown role name %q", raw)
	}
	return n, nil
}

// ParsePermission validates a wire permission.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(raw)
	if !p.Valid() {
		return "", shared.Validationf("unknown permission %q", raw)
	}
	return p, nil
}

// ParsePermissions validates a list and drops duplicates, keeping order.
func ParsePermissions(raw []string) ([]Permission, error) {
	out := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}
