package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	// userKey holds the authenticated *domain.User.
	userKey ctxKey = "user"
	// authErrKey holds why a presented token was refused.
	authErrKey ctxKey = "authErr"
)

// CurrentUser returns the authenticated user from context, or nil for
// anonymous requests.
func CurrentUser(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// setUser stores the authenticated user in context.
func setUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the user in context. Requests without a token, or with a refused one,
// continue anonymously; RequireUser reports the refusal.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, _, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				ctx := context.WithValue(r.Context(), authErrKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r.WithContext(setUser(r.Context(), user)))
		})
	}
}

// RequireUser returns the authenticated user. Returns 401 when no valid
// token was presented and 403 for suspended or deleted accounts.
func RequireUser(ctx context.Context) (*domain.User, error) {
	if u := CurrentUser(ctx); u != nil {
		return u, nil
	}
	if err, ok := ctx.Value(authErrKey).(error); ok && err != nil {
		return nil, err
	}
	return nil, huma.Error401Unauthorized("Authentication required")
}

// RequireAdmin validates the user is authenticated, active and an admin.
func RequireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() || !user.IsActive() {
		return nil, domainerrors.Forbidden("Admin access required")
	}
	return user, nil
}
