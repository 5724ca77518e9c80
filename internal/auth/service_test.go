package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/bizhub/internal/auth"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/shared"
	"github.com/bizhub-io/bizhub/internal/testing/memstore"
	"github.com/bizhub-io/bizhub/internal/users"
)

const secret = "0123456789abcdef0123456789abcdef"

type env struct {
	store   *memstore.Store
	roles   *roles.Service
	users   *users.Service
	issuer  *auth.JWTIssuer
	auth    *auth.Service
	manager roles.Role
	admin   roles.Role
	person  users.Person
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memstore.New()
	roleSvc := roles.NewService(store.Roles(), nil, nil)
	manager, err := roleSvc.Create(ctx, roles.CreateInput{Name: roles.Manager})
	require.NoError(t, err)
	admin, err := roleSvc.Create(ctx, roles.CreateInput{Name: roles.Admin})
	require.NoError(t, err)

	userSvc := users.NewService(store.Persons(), memstore.PlainHasher{}, roleSvc, nil)
	person, err := userSvc.Create(ctx, users.CreateInput{
		GivenName: "Grace", FamilyName: "Hopper", Email: "grace@example.com",
		Password: "cobol-rules", RoleID: manager.ID,
	})
	require.NoError(t, err)

	issuer := auth.NewJWTIssuer(secret, "bizhub")
	svc := auth.NewService(userSvc, issuer, auth.ServiceConfig{
		TTL:         auth.DefaultTokenTTL,
		Revocations: auth.NewRedisRevocationStore(client),
	}, nil)
	return &env{store: store, roles: roleSvc, users: userSvc, issuer: issuer, auth: svc, manager: manager, admin: admin, person: person}
}

func TestValidateCredentialsFailsClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, ok := e.auth.ValidateCredentials(ctx, "grace@example.com", "cobol-rules")
	require.True(t, ok)
	require.Equal(t, e.person.ID, p.ID)

	for _, tc := range []struct{ email, password string }{
		{"grace@example.com", "wrong"},
		{"nobody@example.com", "cobol-rules"},
		{"", ""},
	} {
		p, ok := e.auth.ValidateCredentials(ctx, tc.email, tc.password)
		require.False(t, ok)
		require.Nil(t, p)
	}
}

func TestLoginIssuesDistinctTokens(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)

	require.NotEqual(t, res.AccessToken, res.RefreshToken)
	require.True(t, res.AccessExpiresAt.Before(res.RefreshExpiresAt))
	require.WithinDuration(t, time.Now().Add(15*time.Minute), res.AccessExpiresAt, 5*time.Second)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), res.RefreshExpiresAt, 5*time.Second)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "password")
	require.NotContains(t, string(raw), e.person.PasswordHash)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.ElementsMatch(t, []string{"access_token", "refresh_token", "user"}, keys(wire))

	_, err = e.auth.Authenticate(ctx, "grace@example.com", "nope")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)

	_, err = e.auth.AuthenticateAccessToken(ctx, res.RefreshToken)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	_, err = e.auth.RefreshAccessToken(ctx, res.AccessToken)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	p, err := e.auth.AuthenticateAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, e.person.ID, p.ID)
}

func TestSoftDeletedPrincipalLosesAccessUntilRestored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	before, err := e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)

	_, err = e.users.Remove(ctx, e.person.ID)
	require.NoError(t, err)

	_, err = e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = e.auth.RefreshAccessToken(ctx, before.RefreshToken)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	_, err = e.auth.AuthenticateAccessToken(ctx, before.AccessToken)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = e.users.Restore(ctx, e.person.ID)
	require.NoError(t, err)
	_, err = e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)
	_, err = e.auth.AuthenticateAccessToken(ctx, before.AccessToken)
	require.NoError(t, err)
}

func TestRefreshReflectsCurrentRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)

	_, err = e.users.Update(ctx, e.person.ID, users.UpdateInput{RoleID: &e.admin.ID})
	require.NoError(t, err)

	_, err = e.auth.RefreshAccessToken(ctx, res.RefreshToken+"x")
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	refreshed, err := e.auth.RefreshAccessToken(ctx, res.RefreshToken)
	require.NoError(t, err)

	fresh, err := e.issuer.Verify(refreshed.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	require.Equal(t, roles.Admin, fresh.Role.Name)

	stale, err := e.issuer.Verify(res.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	require.Equal(t, roles.Manager, stale.Role.Name)

	// The refresh token still carries the old snapshot and stays usable.
	old, err := e.issuer.Verify(res.RefreshToken, auth.KindRefresh)
	require.NoError(t, err)
	require.Equal(t, roles.Manager, old.Role.Name)
	_, err = e.auth.RefreshAccessToken(ctx, res.RefreshToken)
	require.NoError(t, err)
}

func TestInactivePrincipalIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)

	inactive := users.StatusInactive
	_, err = e.users.Update(ctx, e.person.ID, users.UpdateInput{Status: &inactive})
	require.NoError(t, err)

	_, ok := e.auth.ValidatePrincipalByID(ctx, e.person.ID)
	require.False(t, ok)
	_, err = e.auth.RefreshAccessToken(ctx, res.RefreshToken)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestValidatePrincipalByIDSwallowsStoreErrors(t *testing.T) {
	e := newEnv(t)
	e.store.FailNext("persons.FindByID", errors.New("connection refused"))
	p, ok := e.auth.ValidatePrincipalByID(context.Background(), e.person.ID)
	require.False(t, ok)
	require.Nil(t, p)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.auth.Authenticate(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)
	p, err := e.auth.AuthenticateAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)

	other, err := e.users.Create(ctx, users.CreateInput{
		GivenName: "Alan", FamilyName: "Turing", Email: "alan@example.com", Password: "enigma-42", RoleID: e.manager.ID,
	})
	require.NoError(t, err)
	otherLogin, err := e.auth.Authenticate(ctx, other.Email, "enigma-42")
	require.NoError(t, err)
	require.ErrorIs(t, e.auth.Logout(ctx, p, otherLogin.RefreshToken), shared.ErrUnauthorized)

	require.NoError(t, e.auth.Logout(ctx, p, res.RefreshToken))
	_, err = e.auth.RefreshAccessToken(ctx, res.RefreshToken)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = e.auth.RefreshAccessToken(ctx, otherLogin.RefreshToken)
	require.NoError(t, err)
	require.NoError(t, e.auth.Logout(ctx, p, ""))
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
