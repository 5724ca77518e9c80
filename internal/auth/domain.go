package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/rbac"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/shared"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrTokenInvalid covers malformed, expired, forged and mis-issued tokens.
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", shared.ErrUnauthorized)
	// ErrTokenKind is returned when a token of the other kind is presented.
	ErrTokenKind = fmt.Errorf("%w: wrong token kind", shared.ErrUnauthorized)
	// ErrTokenRevoked is returned for refresh tokens revoked by logout.
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", shared.ErrUnauthorized)

	errPrincipalGone = errors.New("principal no longer live")
)

// Claims is the verified token payload.
type Claims struct {
	Subject   uuid.UUID
	Email     string
	Role      *roles.Ref
	Kind      Kind
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFor builds the payload for a principal.
func ClaimsFor(p *rbac.Principal) Claims {
	return Claims{Subject: p.ID, Email: p.Email, Role: p.Role}
}

// Profile is the principal view returned by login and profile. It has no
// password field.
type Profile struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	GivenName  string     `json:"givenName"`
	FamilyName string     `json:"familyName"`
	Role       *roles.Ref `json:"role"`
}

// ProfileOf builds the view of p.
func ProfileOf(p *rbac.Principal) Profile {
	return Profile{
		ID:         p.ID.String(),
		Email:      p.Email,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		Role:       p.Role,
	}
}

// LoginResult carries both tokens and the principal view.
type LoginResult struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	User             Profile   `json:"user"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// AccessResult is the outcome of a refresh.
type AccessResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"-"`
}
