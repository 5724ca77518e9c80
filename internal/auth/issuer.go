package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/roles"
)

// Issuer signs and verifies tokens.
type Issuer interface {
	Sign(c Claims, kind Kind, ttl time.Duration) (string, time.Time, error)
	Verify(token string, kind Kind) (*Claims, error)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  *roles.Ref `json:"role"`
	Type  Kind       `json:"typ"`
}

// JWTIssuer issues HS256 JWTs.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTIssuer builds a JWTIssuer.
func NewJWTIssuer(secret, issuer string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Sign issues a token of the given kind valid for ttl. It returns the token
// and its expiry.
func (i *JWTIssuer) Sign(c Claims, kind Kind, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: token ttl must be positive")
	}
	now := i.now()
	exp := now.Add(ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   c.Subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Email: c.Email,
		Role:  c.Role,
		Type:  kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm, issuer, expiry and kind.
func (i *JWTIssuer) Verify(token string, kind Kind) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != kind {
		return nil, fmt.Errorf("%w: got %q want %q", ErrTokenKind, claims.Type, kind)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %w", ErrTokenInvalid, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrTokenInvalid)
	}
	return &Claims{
		Subject:   sub,
		Email:     claims.Email,
		Role:      claims.Role,
		Kind:      claims.Type,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
