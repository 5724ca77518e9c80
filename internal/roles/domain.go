package roles

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Name is the coarse role classification.
type Name string

const (
	Admin     Name = "Admin"
	Manager   Name = "Manager"
	Assistant Name = "Assistant"
)

// Permission is a fine-grained capability token.
type Permission string

const (
	PermUserRoleManagement      Permission = "user_role_management.manage"
	PermBusinessDetailsManage   Permission = "business_details.manage"
	PermCustomersManageAdmin    Permission = "customers.manage_admin"
	PermCustomerChatFullAdmin   Permission = "customer_chat.access_full_admin"
	PermExternalIntegrations    Permission = "external_integrations.manage"
	PermCustomersManageManager  Permission = "customers.manage_manager"
	PermCustomerChatFullManager Permission = "customer_chat.access_full_manager"
	PermCustomerChatReadWrite   Permission = "customer_chat.access_read_write"
)

// Role is a named permission set with soft-delete metadata.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	Name        Name         `json:"roleName"`
	Permissions []Permission `json:"permissions"`
	IsDeleted   bool         `json:"isDeleted"`
	DeletedAt   *time.Time   `json:"deletedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Ref returns the snapshot embedded in principals and tokens.
func (r Role) Ref() Ref {
	return Ref{ID: r.ID, Name: r.Name, Permissions: slices.Clone(r.Permissions)}
}

// Ref is the role snapshot carried by a principal.
type Ref struct {
	ID          uuid.UUID    `json:"id"`
	Name        Name         `json:"roleName"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the snapshot grants p.
func (r Ref) Has(p Permission) bool {
	return slices.Contains(r.Permissions, p)
}

// CreateInput carries data for a new role. An empty Permissions list selects
// the defaults for Name.
type CreateInput struct {
	ID          uuid.UUID
	Name        Name
	Permissions []Permission
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Name        *Name
	Permissions *[]Permission
}

// View is the outward representation of a role.
type View struct {
	ID          string       `json:"id"`
	Name        Name         `json:"roleName"`
	Permissions []Permission `json:"permissions"`
	IsDeleted   bool         `json:"isDeleted"`
	DeletedAt   *time.Time   `json:"deletedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ToView builds the outward representation.
func ToView(r Role) View {
	perms := r.Permissions
	if perms == nil {
		perms = []Permission{}
	}
	return View{
		ID:          r.ID.String(),
		Name:        r.Name,
		Permissions: perms,
		IsDeleted:   r.IsDeleted,
		DeletedAt:   r.DeletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ListResult is a page of roles.
type ListResult struct {
	Items []Role `json:"items"`
	Total int    `json:"total"`
}
