package app

import (
	"github.com/bizhub-io/bizhub/internal/businesses"
	"github.com/bizhub-io/bizhub/internal/rbac"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/users"
	"github.com/bizhub-io/bizhub/jobs"
)

// DefaultPolicy is the route requirement table. Routes missing here only need
// an authenticated principal.
func DefaultPolicy() rbac.Policy {
	manage := rbac.Requirement{Permission: roles.PermUserRoleManagement}
	adminOnly := rbac.AnyRole(roles.Admin)
	readers := rbac.AnyRole(roles.Admin, roles.Manager)

	return rbac.Policy{
		roles.RouteCreate:  manage,
		roles.RouteUpdate:  manage,
		roles.RouteDelete:  manage,
		roles.RouteRestore: manage,

		users.RouteCreate:  manage,
		users.RouteUpdate:  manage,
		users.RouteDelete:  manage,
		users.RouteRestore: manage,

		businesses.RouteCreate:    adminOnly,
		businesses.RouteUpdate:    adminOnly,
		businesses.RouteDelete:    adminOnly,
		businesses.RouteRestore:   adminOnly,
		businesses.RouteList:      readers,
		businesses.RouteByFounder: readers,
		businesses.RouteGet:       readers,

		jobs.RouteHealth:   adminOnly,
		jobs.RouteRolesRun: adminOnly,
	}
}
