package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/application/auth"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/http/response"
)

type principalKey struct{}

// Authenticator resolves a bearer key to the principal it acts for.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*auth.Principal, error)
}

// Auth is HTTP middleware for API key authentication.
type Auth struct {
	authenticator Authenticator
}

// NewAuth creates a new auth middleware.
func NewAuth(authenticator Authenticator) *Auth {
	return &Auth{authenticator: authenticator}
}

// Validate checks "Authorization: Bearer <api-key>" and stores the
// principal in the request context for handlers.
func (a *Auth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			slog.WarnContext(ctx, "authentication failed: missing Authorization header",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "missing Authorization header")
			return
		}

		apiKey, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			slog.WarnContext(ctx, "authentication failed: invalid Authorization header format",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "invalid Authorization header format, expected: Bearer <token>")
			return
		}

		principal, err := a.authenticator.Authenticate(ctx, apiKey)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrInvalidAPIKeyFormat) {
				slog.WarnContext(ctx, "authentication failed: invalid or expired API key",
					"path", r.URL.Path,
					"method", r.Method)
			} else {
				slog.ErrorContext(ctx, "authentication failed: unexpected error",
					"path", r.URL.Path,
					"method", r.Method,
					"error", err)
			}
			response.Unauthorized(w, "invalid or expired API key")
			return
		}

		slog.DebugContext(ctx, "authentication successful",
			"path", r.URL.Path,
			"key_id", principal.KeyID,
			"user_id", principal.User.ID)

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*auth.Principal)
	return p, ok && p != nil
}

// UserFrom returns the user behind the request. Handlers sit behind
// Validate, so a missing principal means a wiring bug; the zero user sees nothing.
func UserFrom(ctx context.Context) access.User {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.User
	}
	return access.User{}
}
