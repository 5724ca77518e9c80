package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bizhub-io/bizhub/internal/platform/httpx"
)

// Authenticator resolves an access token to a live principal.
type Authenticator interface {
	AuthenticateAccessToken(ctx context.Context, token string) (*Principal, error)
}

// EventRecorder counts authorization outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityGate authenticates every request against current storage state.
// Nothing is cached between requests.
type IdentityGate struct {
	auth     Authenticator
	logger   *slog.Logger
	recorder EventRecorder
}

// NewIdentityGate builds an IdentityGate. recorder may be nil.
func NewIdentityGate(auth Authenticator, logger *slog.Logger, recorder EventRecorder) *IdentityGate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &IdentityGate{auth: auth, logger: logger, recorder: recorder}
}

// Middleware rejects the request with a uniform 401 unless it carries an
// access token for a live principal.
func (g *IdentityGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			g.recorder.RecordAuthEvent("identity", "no_token")
			httpx.Unauthorized(w)
			return
		}
		principal, err := g.auth.AuthenticateAccessToken(r.Context(), token)
		if err != nil || principal == nil {
			g.logger.Debug("identity rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
			g.recorder.RecordAuthEvent("identity", "rejected")
			httpx.Unauthorized(w)
			return
		}
		g.recorder.RecordAuthEvent("identity", "authenticated")
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// CapabilityGate enforces the route policy.
type CapabilityGate struct {
	policy   Policy
	logger   *slog.Logger
	recorder EventRecorder
}

// NewCapabilityGate builds a CapabilityGate. recorder may be nil.
func NewCapabilityGate(policy Policy, logger *slog.Logger, recorder EventRecorder) *CapabilityGate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CapabilityGate{policy: policy, logger: logger, recorder: recorder}
}

// Require returns middleware enforcing the requirement registered for routeID.
// The lookup happens once at mount time.
func (g *CapabilityGate) Require(routeID string) func(http.Handler) http.Handler {
	req := g.policy.Lookup(routeID)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			decision := Evaluate(principal, req)
			g.recorder.RecordAuthEvent("capability", decision.String())
			switch decision {
			case Allow:
				next.ServeHTTP(w, r)
			case DenyUnauthenticated:
				httpx.Unauthorized(w)
			default:
				g.logger.Info("capability denied",
					slog.String("route", routeID),
					slog.String("principal_id", principal.ID.String()),
					slog.String("role", string(principal.RoleName())))
				httpx.Forbidden(w)
			}
		})
	}
}
