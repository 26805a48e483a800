package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// APIKeyHeader carries an operator API key.
const APIKeyHeader = "X-API-Key"

// Middleware authenticates requests and checks capabilities.
type Middleware struct {
	Auth   *Authenticator
	Logger *slog.Logger
}

// RequireAdmin admits callers holding the admin capability.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAny(shared.CapabilityAdmin)(next)
}

// RequireAny admits callers holding at least one of caps and stores the
// actor in the request context.
func (m Middleware) RequireAny(caps ...string) func(http.Handler) http.Handler {
	required := normalizeCapabilities(caps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := m.authenticate(r)
			if err != nil {
				m.deny(r, err)
				httpx.RespondError(w, err)
				return
			}
			if !hasAnyCapability(actor.Capabilities, required) {
				m.deny(r, ErrMissingCapability, slog.String("subject", actor.Subject))
				httpx.RespondError(w, ErrMissingCapability)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

func (m Middleware) authenticate(r *http.Request) (shared.Actor, error) {
	if m.Auth == nil {
		return shared.Actor{}, ErrMissingCredentials
	}
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return shared.Actor{}, ErrInvalidToken
		}
		return m.Auth.VerifyToken(strings.TrimSpace(token))
	}
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return m.Auth.VerifyAPIKey(key)
	}
	return shared.Actor{}, ErrMissingCredentials
}

func (m Middleware) deny(r *http.Request, err error, attrs ...any) {
	if m.Logger == nil {
		return
	}
	attrs = append(attrs, slog.String("path", r.URL.Path), slog.Any("error", err))
	m.Logger.WarnContext(r.Context(), "request denied", attrs...)
}
