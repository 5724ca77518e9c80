package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bizhub-io/bizhub/internal/rbac"
	"github.com/bizhub-io/bizhub/internal/shared"
	"github.com/bizhub-io/bizhub/internal/users"
)

// PrincipalStore is the credential store view the engine needs.
type PrincipalStore interface {
	VerifyPassword(ctx context.Context, email, password string) (users.Person, error)
	Get(ctx context.Context, id uuid.UUID) (users.Person, error)
}

// EventRecorder counts authentication outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// TokenTTL holds token lifetimes.
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// DefaultTokenTTL is 15 minutes for access and 7 days for refresh tokens.
var DefaultTokenTTL = TokenTTL{Access: 15 * time.Minute, Refresh: 7 * 24 * time.Hour}

// Service is the authentication engine.
type Service struct {
	store       PrincipalStore
	issuer      Issuer
	revocations RevocationStore
	ttl         TokenTTL
	logger      *slog.Logger
	recorder    EventRecorder
}

// ServiceConfig wires optional collaborators.
type ServiceConfig struct {
	TTL         TokenTTL
	Revocations RevocationStore
	Recorder    EventRecorder
}

// NewService constructs a new Service.
func NewService(store PrincipalStore, issuer Issuer, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.TTL.Access <= 0 || cfg.TTL.Refresh <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Service{
		store:       store,
		issuer:      issuer,
		revocations: cfg.Revocations,
		ttl:         cfg.TTL,
		logger:      logger,
		recorder:    cfg.Recorder,
	}
}

func principalOf(p users.Person) *rbac.Principal {
	return &rbac.Principal{
		ID:         p.ID,
		Email:      p.Email,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		Role:       p.Role,
	}
}

// ValidateCredentials returns the principal owning email when password
// matches. It fails closed: any failure yields false.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (*rbac.Principal, bool) {
	person, err := s.store.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, false
	}
	return principalOf(person), true
}

// Login issues an access and a refresh token for p.
func (s *Service) Login(ctx context.Context, p *rbac.Principal) (LoginResult, error) {
	claims := ClaimsFor(p)
	result := LoginResult{User: ProfileOf(p)}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		tok, exp, err := s.issuer.Sign(claims, KindAccess, s.ttl.Access)
		result.AccessToken, result.AccessExpiresAt = tok, exp
		return err
	})
	g.Go(func() error {
		tok, exp, err := s.issuer.Sign(claims, KindRefresh, s.ttl.Refresh)
		result.RefreshToken, result.RefreshExpiresAt = tok, exp
		return err
	})
	if err := g.Wait(); err != nil {
		s.recorder.RecordAuthEvent("login", "error")
		return LoginResult{}, fmt.Errorf("auth: issue tokens: %w", err)
	}
	s.recorder.RecordAuthEvent("login", "success")
	s.logger.Info("principal logged in", slog.String("principal_id", p.ID.String()))
	return result, nil
}

// Authenticate validates credentials and logs in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (LoginResult, error) {
	p, ok := s.ValidateCredentials(ctx, email, password)
	if !ok {
		s.recorder.RecordAuthEvent("login", "rejected")
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	return s.Login(ctx, p)
}

// RefreshAccessToken issues a new access token from the current stored state
// of the refresh token's subject. The refresh token itself is not rotated.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (AccessResult, error) {
	claims, err := s.issuer.Verify(refreshToken, KindRefresh)
	if err != nil {
		s.logger.Warn("refresh token rejected", slog.Any("error", err))
		s.recorder.RecordAuthEvent("refresh", "rejected")
		return AccessResult{}, shared.ErrUnauthorized
	}
	if err := s.checkRevoked(ctx, claims.ID); err != nil {
		s.logger.Warn("refresh token rejected", slog.String("jti", claims.ID), slog.Any("error", err))
		s.recorder.RecordAuthEvent("refresh", "rejected")
		return AccessResult{}, shared.ErrUnauthorized
	}
	p, ok := s.ValidatePrincipalByID(ctx, claims.Subject)
	if !ok {
		s.logger.Warn("refresh token rejected", slog.String("principal_id", claims.Subject.String()), slog.Any("error", errPrincipalGone))
		s.recorder.RecordAuthEvent("refresh", "rejected")
		return AccessResult{}, shared.ErrUnauthorized
	}
	tok, exp, err := s.issuer.Sign(ClaimsFor(p), KindAccess, s.ttl.Access)
	if err != nil {
		s.recorder.RecordAuthEvent("refresh", "error")
		return AccessResult{}, fmt.Errorf("auth: issue access token: %w", err)
	}
	s.recorder.RecordAuthEvent("refresh", "success")
	return AccessResult{AccessToken: tok, ExpiresAt: exp}, nil
}

// ValidatePrincipalByID resolves a live, active principal. Lookup failures of
// any kind yield false.
func (s *Service) ValidatePrincipalByID(ctx context.Context, id uuid.UUID) (*rbac.Principal, bool) {
	person, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("principal lookup", slog.String("principal_id", id.String()), slog.Any("error", err))
		}
		return nil, false
	}
	if !person.CanAuthenticate() {
		return nil, false
	}
	return principalOf(person), true
}

// AuthenticateAccessToken backs the identity gate: the token must be a valid
// access token whose subject is still live.
func (s *Service) AuthenticateAccessToken(ctx context.Context, token string) (*rbac.Principal, error) {
	claims, err := s.issuer.Verify(token, KindAccess)
	if err != nil {
		s.logger.Warn("access token rejected", slog.Any("error", err))
		return nil, shared.ErrUnauthorized
	}
	p, ok := s.ValidatePrincipalByID(ctx, claims.Subject)
	if !ok {
		return nil, shared.ErrUnauthorized
	}
	return p, nil
}

// Logout revokes refreshToken until its natural expiry. The token must
// belong to p.
func (s *Service) Logout(ctx context.Context, p *rbac.Principal, refreshToken string) error {
	if refreshToken == "" {
		s.recorder.RecordAuthEvent("logout", "success")
		return nil
	}
	claims, err := s.issuer.Verify(refreshToken, KindRefresh)
	if err != nil || claims.Subject != p.ID {
		s.logger.Warn("logout token rejected", slog.String("principal_id", p.ID.String()), slog.Any("error", err))
		s.recorder.RecordAuthEvent("logout", "rejected")
		return shared.ErrUnauthorized
	}
	if s.revocations != nil {
		if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
			s.recorder.RecordAuthEvent("logout", "error")
			return fmt.Errorf("auth: revoke refresh token: %w", err)
		}
	}
	s.recorder.RecordAuthEvent("logout", "success")
	s.logger.Info("principal logged out", slog.String("principal_id", p.ID.String()))
	return nil
}

func (s *Service) checkRevoked(ctx context.Context, jti string) error {
	if s.revocations == nil {
		return nil
	}
	revoked, err := s.revocations.IsRevoked(ctx, jti)
	if err != nil {
		return fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}
