package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

type contextKey string

// AdminKey is the context key under which the authenticated admin is stored.
const AdminKey contextKey = "admin"

// SessionCookieName is the cookie carrying the session token for browser
// clients; API clients use the Authorization header.
const SessionCookieName = "admin_token"

// Auth returns a middleware that resolves the session token to an admin
// account and stores it in the request context.
func Auth(auth service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			admin, err := auth.Verify(r.Context(), token)
			if err != nil {
				response.Error(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), AdminKey, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns a middleware that rejects admins whose role is not
// in the allowed set. It must run after Auth.
func RequireRole(roles ...models.AdminRole) func(next http.Handler) http.Handler {
	allowed := make(map[models.AdminRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := AdminFromContext(r.Context())
			if admin == nil {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}
			if !allowed[admin.Role] {
				response.Error(w, apierrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminFromContext returns the authenticated admin, or nil outside the
// Auth middleware.
func AdminFromContext(ctx context.Context) *models.Admin {
	admin, _ := ctx.Value(AdminKey).(*models.Admin)
	return admin
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
