package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"arcstore-api/internal/model"
	"arcstore-api/internal/service"
	"arcstore-api/pkg/apierror"

	"go.uber.org/zap"
)

const (
	// SessionKey is the context key for the login session identity.
	SessionKey contextKey = "session"
	// PageIdentityKey is the context key for the account page identity.
	PageIdentityKey contextKey = "page_identity"
)

// Header names carrying the two identity tokens and the admin key.
const (
	SessionHeader  = "X-Token"
	PageHeader     = "X-Page-Token"
	LoginKeyHeader = "X-Login-Key"
)

// TokenValidator resolves identity tokens.
type TokenValidator interface {
	ValidateSession(ctx context.Context, token string) (*model.AuthenticatedSession, error)
	ValidatePage(ctx context.Context, token string) (*model.PageScopedIdentity, error)
}

var _ TokenValidator = (*service.TokenService)(nil)

// RequireSession admits requests carrying a valid login session token.
func RequireSession(tokens TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionHeader)
			if token == "" {
				writeError(w, apierror.Unauthorized("login required"))
				return
			}

			session, err := tokens.ValidateSession(r.Context(), token)
			if err != nil {
				writeTokenError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequirePageIdentity admits requests carrying a valid account page token.
// Store and account routes require it; a login session is not enough.
func RequirePageIdentity(tokens TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(PageHeader)
			if token == "" {
				writeError(w, apierror.Unauthorized("account page login required"))
				return
			}

			ident, err := tokens.ValidatePage(r.Context(), token)
			if err != nil {
				writeTokenError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPageIdentity(r.Context(), ident)))
		})
	}
}

// RequireAdminKey admits requests whose X-Login-Key matches key. An empty key
// disables the admin routes.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, apierror.Forbidden("admin access is not configured"))
				return
			}

			got := r.Header.Get(LoginKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, apierror.Unauthorized("invalid login key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeTokenError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if errors.Is(err, service.ErrInvalidToken) {
		writeError(w, apierror.Unauthorized("invalid or expired token"))
		return
	}
	log.Error("token validation failed", zap.Error(err), RequestIDField(r.Context()))
	writeError(w, apierror.ServiceUnavailable(""))
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// WithSession stores the login session in ctx.
func WithSession(ctx context.Context, s *model.AuthenticatedSession) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// WithPageIdentity stores the account page identity in ctx.
func WithPageIdentity(ctx context.Context, p *model.PageScopedIdentity) context.Context {
	return context.WithValue(ctx, PageIdentityKey, p)
}

// SessionFromContext retrieves the login session from ctx.
func SessionFromContext(ctx context.Context) *model.AuthenticatedSession {
	if s, ok := ctx.Value(SessionKey).(*model.AuthenticatedSession); ok {
		return s
	}
	return nil
}

// PageIdentityFromContext retrieves the account page identity from ctx.
func PageIdentityFromContext(ctx context.Context) *model.PageScopedIdentity {
	if p, ok := ctx.Value(PageIdentityKey).(*model.PageScopedIdentity); ok {
		return p
	}
	return nil
}
