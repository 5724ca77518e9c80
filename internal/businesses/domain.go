package businesses

import (
	"time"

	"github.com/google/uuid"
)

// TypeLocalBusiness is the only business type currently stored.
const TypeLocalBusiness = "LocalBusiness"

// PostalAddress follows the schema.org shape.
type PostalAddress struct {
	StreetAddress   string `json:"streetAddress,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"`
	AddressRegion   string `json:"addressRegion,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	AddressCountry  string `json:"addressCountry,omitempty"`
}

// IsZero reports whether every field is empty.
func (a PostalAddress) IsZero() bool {
	return a == PostalAddress{}
}

// Founder is the live founder summary joined onto a business.
type Founder struct {
	ID         uuid.UUID `json:"id"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	Email      string    `json:"email"`
}

// Business is a soft-deletable business record owned by a founder.
type Business struct {
	ID           uuid.UUID
	Type         string
	Name         string
	Description  string
	Address      *PostalAddress
	Telephone    string
	Email        string
	URL          string
	SameAs       []string
	OpeningHours []string
	FounderID    uuid.UUID
	Founder      *Founder
	IsDeleted    bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput carries data for a new business.
type CreateInput struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Address      *PostalAddress
	Telephone    string
	Email        string
	URL          string
	SameAs       []string
	OpeningHours []string
	FounderID    uuid.UUID
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Name         *string
	Description  *string
	Address      *PostalAddress
	Telephone    *string
	Email        *string
	URL          *string
	SameAs       *[]string
	OpeningHours *[]string
	FounderID    *uuid.UUID
}

// ListResult is a page of businesses.
type ListResult struct {
	Items []Business
	Total int
}

// View is the outward representation of a business.
type View struct {
	ID           string         `json:"id"`
	Type         string         `json:"@type"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Address      *PostalAddress `json:"address,omitempty"`
	Telephone    string         `json:"telephone,omitempty"`
	Email        string         `json:"email,omitempty"`
	URL          string         `json:"url,omitempty"`
	SameAs       []string       `json:"sameAs"`
	OpeningHours []string       `json:"openingHours"`
	FounderID    string         `json:"founderId"`
	Founder      *Founder       `json:"founder"`
	IsDeleted    bool           `json:"isDeleted"`
	DeletedAt    *time.Time     `json:"deletedAt"`
	CreatedAt    time.Time      `json:"dateCreated"`
	UpdatedAt    time.Time      `json:"dateModified"`
}

// ToView builds the outward representation.
func ToView(b Business) View {
	sameAs, hours := b.SameAs, b.OpeningHours
	if sameAs == nil {
		sameAs = []string{}
	}
	if hours == nil {
		hours = []string{}
	}
	return View{
		ID:           b.ID.String(),
		Type:         b.Type,
		Name:         b.Name,
		Description:  b.Description,
		Address:      b.Address,
		Telephone:    b.Telephone,
		Email:        b.Email,
		URL:          b.URL,
		SameAs:       sameAs,
		OpeningHours: hours,
		FounderID:    b.FounderID.String(),
		Founder:      b.Founder,
		IsDeleted:    b.IsDeleted,
		DeletedAt:    b.DeletedAt,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
