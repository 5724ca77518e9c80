package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/bizhub-io/bizhub/internal/roles"
)

// Status is the account state of a person.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Valid reports whether s is a defined status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Person is a principal record. PasswordHash never leaves this package's
// callers through View.
type Person struct {
	ID           uuid.UUID
	GivenName    string
	FamilyName   string
	Email        string
	Telephone    string
	PasswordHash string
	Status       Status
	RoleID       uuid.UUID
	// Role is the live role snapshot, nil when the referenced role is deleted.
	Role      *roles.Ref
	IsDeleted bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAuthenticate reports whether the person may log in or hold a session.
func (p Person) CanAuthenticate() bool {
	return !p.IsDeleted && p.Status == StatusActive
}

// View is the outward representation of a person. It has no password field.
type View struct {
	ID         string     `json:"id"`
	GivenName  string     `json:"givenName"`
	FamilyName string     `json:"familyName"`
	Email      string     `json:"email"`
	Telephone  string     `json:"telephone,omitempty"`
	Status     Status     `json:"status"`
	Role       *roles.Ref `json:"role"`
	IsDeleted  bool       `json:"isDeleted"`
	DeletedAt  *time.Time `json:"deletedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// ToView builds the outward representation.
func ToView(p Person) View {
	return View{
		ID:         p.ID.String(),
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		Email:      p.Email,
		Telephone:  p.Telephone,
		Status:     p.Status,
		Role:       p.Role,
		IsDeleted:  p.IsDeleted,
		DeletedAt:  p.DeletedAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// CreateInput carries data for a new person.
type CreateInput struct {
	ID         uuid.UUID
	GivenName  string
	FamilyName string
	Email      string
	Telephone  string
	Password   string
	RoleID     uuid.UUID
	Status     Status
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	GivenName  *string
	FamilyName *string
	Email      *string
	Telephone  *string
	Password   *string
	RoleID     *uuid.UUID
	Status     *Status
}

// ListResult is a page of persons.
type ListResult struct {
	Items []Person
	Total int
}

// NormalizeEmail canonicalises an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
}
