// internal/app/system/auth/guard.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ctxKey string

const scopeKey ctxKey = "scope"

// ScopeFrom returns the Scope stored by RequireAccess and a found flag.
func ScopeFrom(r *http.Request) (Scope, bool) {
	s, ok := r.Context().Value(scopeKey).(Scope)
	return s, ok
}

// WithScope returns ctx carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// WithTestScope injects s into the request, bypassing RequireAccess.
func WithTestScope(r *http.Request, s Scope) *http.Request {
	return r.WithContext(WithScope(r.Context(), s))
}

// Guard enforces access credentials on API routes.
type Guard struct {
	tokens *Tokens
	log    *zap.Logger
}

// NewGuard creates a Guard that validates credentials with tokens.
func NewGuard(tokens *Tokens, logger *zap.Logger) *Guard {
	return &Guard{tokens: tokens, log: logger}
}

// RequireAccess requires a valid "Authorization: Bearer" access credential
// and stores its Scope in the request context. Anything else is 401.
func (g *Guard) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r)
		if !ok {
			httpjson.Error(w, g.log, apperr.ErrUnauthenticated)
			return
		}
		s, err := g.tokens.Parse(raw)
		if err != nil {
			g.log.Debug("access credential rejected", zap.Error(err))
			httpjson.Error(w, g.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), s)))
	})
}

// RequirePermission rejects callers whose role lacks p with 403. It must run
// after RequireAccess.
func RequirePermission(p authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := ScopeFrom(r)
			if !ok {
				httpjson.Error(w, nil, apperr.ErrUnauthenticated)
				return
			}
			if !s.Role.Can(p) {
				httpjson.Error(w, nil, apperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGroupParam rejects requests whose {param} path value is not the
// caller's active group. Another tenant's group looks exactly like one that
// does not exist: 404.
func RequireGroupParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := ScopeFrom(r)
			if !ok {
				httpjson.Error(w, nil, apperr.ErrUnauthenticated)
				return
			}
			id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
			if err != nil || id != s.GroupID {
				httpjson.Error(w, nil, apperr.ErrNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
