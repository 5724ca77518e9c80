package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/bizhub/internal/app"
	"github.com/bizhub-io/bizhub/internal/auth"
	"github.com/bizhub-io/bizhub/internal/observability"
	"github.com/bizhub-io/bizhub/internal/platform/cache"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/testing/memstore"
	"github.com/bizhub-io/bizhub/internal/users"
)

const (
	adminEmail    = "root@bizhub.test"
	adminPassword = "root-password"
)

type harness struct {
	c       *app.Components
	metrics *observability.Metrics
	router  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memstore.New()
	metrics := observability.NewMetrics()
	cfg := &app.Config{
		AppEnv:            "test",
		AppRequestTimeout: 5 * time.Second,
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   time.Hour,
		RequestsPerMinute: 1000,
	}
	c := app.Build(app.Dependencies{
		Config:       cfg,
		Metrics:      metrics,
		RoleRepo:     store.Roles(),
		RoleCache:    roles.NewCache(cache.NewJSON(client, "roles", time.Minute), nil),
		PersonRepo:   store.Persons(),
		BusinessRepo: store.Businesses(),
		Hasher:       memstore.PlainHasher{},
		Issuer:       auth.NewJWTIssuer("0123456789abcdef0123456789abcdef", "bizhub"),
		Revocations:  auth.NewRedisRevocationStore(client),
	})

	report := c.Seeder.SeedDefaults(ctx)
	require.Len(t, report.Created, 3)
	created, err := app.BootstrapAdmin(ctx, c, adminEmail, adminPassword, nil)
	require.NoError(t, err)
	require.True(t, created)
	return &harness{c: c, metrics: metrics, router: c.Router}
}

func (h *harness) call(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := h.call(t, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.AccessToken
}

func (h *harness) person(t *testing.T, email string, role roles.Name) users.Person {
	t.Helper()
	ctx := context.Background()
	r, err := h.c.Roles.FindByName(ctx, role)
	require.NoError(t, err)
	p, err := h.c.Users.Create(ctx, users.CreateInput{
		GivenName: "Test", FamilyName: string(role), Email: email, Password: "password-1", RoleID: r.ID,
	})
	require.NoError(t, err)
	return p
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rr := h.call(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = h.call(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = h.call(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `bizhub_http_requests_total{code="200",route="/healthz"}`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/users", "/roles", "/businesses"} {
		rr := h.call(t, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, rr.Code, path)
		require.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
	}
	rr := h.call(t, http.MethodGet, "/users", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBusinessPolicy(t *testing.T) {
	h := newHarness(t)
	admin := h.login(t, adminEmail, adminPassword)
	h.person(t, "manager@bizhub.test", roles.Manager)
	h.person(t, "assistant@bizhub.test", roles.Assistant)
	manager := h.login(t, "manager@bizhub.test", "password-1")
	assistant := h.login(t, "assistant@bizhub.test", "password-1")

	founder, err := h.c.Users.FindByEmail(context.Background(), adminEmail)
	require.NoError(t, err)
	body := `{"name":"Harbor Cafe","founderId":"` + founder.ID.String() + `"}`

	rr := h.call(t, http.MethodPost, "/businesses", manager, body)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.call(t, http.MethodPost, "/businesses", admin, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = h.call(t, http.MethodGet, "/businesses", manager, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.call(t, http.MethodGet, "/businesses/by-founder/"+founder.ID.String(), manager, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.call(t, http.MethodGet, "/businesses", assistant, "")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.call(t, http.MethodGet, "/metrics", "", "")
	require.Contains(t, rr.Body.String(), `bizhub_auth_events_total{event="capability",outcome="forbidden"} 2`)
}

func TestUserAndRoleMutationsNeedManagePermission(t *testing.T) {
	h := newHarness(t)
	admin := h.login(t, adminEmail, adminPassword)
	h.person(t, "manager@bizhub.test", roles.Manager)
	manager := h.login(t, "manager@bizhub.test", "password-1")

	rr := h.call(t, http.MethodGet, "/roles", manager, "")
	require.Equal(t, http.StatusOK, rr.Code)

	assistantRole, err := h.c.Roles.FindByName(context.Background(), roles.Assistant)
	require.NoError(t, err)
	body := `{"givenName":"New","familyName":"Hire","email":"new@bizhub.test","password":"password-2","roleId":"` + assistantRole.ID.String() + `"}`

	rr = h.call(t, http.MethodPost, "/users", manager, body)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.call(t, http.MethodPost, "/users", admin, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotContains(t, rr.Body.String(), "password")

	rr = h.call(t, http.MethodPatch, "/roles/"+assistantRole.ID.String(), manager, `{"permissions":["customers.manage_admin"]}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRoleChangeAppliesOnNextRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.person(t, "manager@bizhub.test", roles.Manager)
	token := h.login(t, "manager@bizhub.test", "password-1")

	rr := h.call(t, http.MethodGet, "/businesses", token, "")
	require.Equal(t, http.StatusOK, rr.Code)

	assistant, err := h.c.Roles.FindByName(ctx, roles.Assistant)
	require.NoError(t, err)
	_, err = h.c.Users.Update(ctx, p.ID, users.UpdateInput{RoleID: &assistant.ID})
	require.NoError(t, err)

	rr = h.call(t, http.MethodGet, "/businesses", token, "")
	require.Equal(t, http.StatusForbidden, rr.Code)

	_, err = h.c.Users.Remove(ctx, p.ID)
	require.NoError(t, err)
	rr = h.call(t, http.MethodGet, "/businesses", token, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)
	created, err := app.BootstrapAdmin(context.Background(), h.c, adminEmail, adminPassword, nil)
	require.NoError(t, err)
	require.False(t, created)

	created, err = app.BootstrapAdmin(context.Background(), h.c, "", "", nil)
	require.NoError(t, err)
	require.False(t, created)
}

func TestJobsRoutesAreAdminOnly(t *testing.T) {
	h := newHarness(t)
	admin := h.login(t, adminEmail, adminPassword)
	h.person(t, "manager@bizhub.test", roles.Manager)
	manager := h.login(t, "manager@bizhub.test", "password-1")

	rr := h.call(t, http.MethodGet, "/jobs/health", manager, "")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.call(t, http.MethodGet, "/jobs/health", admin, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.call(t, http.MethodPost, "/jobs/roles-seed", admin, "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
