package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/service"
)

type mockAuthService struct {
	verifyFunc func(ctx context.Context, token string) (*models.Admin, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.Admin, *models.Session, error) {
	return nil, nil, nil
}

func (m *mockAuthService) Verify(ctx context.Context, token string) (*models.Admin, error) {
	return m.verifyFunc(ctx, token)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error { return nil }

func (m *mockAuthService) Signup(ctx context.Context, input service.SignupInput) (*models.Admin, *models.Session, error) {
	return nil, nil, nil
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error { return nil }

func (m *mockAuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return nil
}

func okHandler(admin **models.Admin) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if admin != nil {
			*admin = AdminFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingToken(t *testing.T) {
	mw := Auth(&mockAuthService{
		verifyFunc: func(ctx context.Context, token string) (*models.Admin, error) {
			t.Fatal("Verify should not be called without a token")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/affiliates", nil)
	rec := httptest.NewRecorder()
	mw(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_BearerToken(t *testing.T) {
	want := &models.Admin{ID: uuid.New(), Role: models.RoleSuperAdmin}
	mw := Auth(&mockAuthService{
		verifyFunc: func(ctx context.Context, token string) (*models.Admin, error) {
			assert.Equal(t, "session-token", token)
			return want, nil
		},
	})

	var seen *models.Admin
	req := httptest.NewRequest(http.MethodGet, "/api/admin/affiliates", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	mw(okHandler(&seen)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, seen)
}

func TestAuth_CookieFallback(t *testing.T) {
	want := &models.Admin{ID: uuid.New(), Role: models.RoleB2BAgent}
	mw := Auth(&mockAuthService{
		verifyFunc: func(ctx context.Context, token string) (*models.Admin, error) {
			assert.Equal(t, "cookie-token", token)
			return want, nil
		},
	})

	var seen *models.Admin
	req := httptest.NewRequest(http.MethodGet, "/api/admin/affiliates", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	rec := httptest.NewRecorder()
	mw(okHandler(&seen)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, seen)
}

func TestAuth_InvalidSession(t *testing.T) {
	mw := Auth(&mockAuthService{
		verifyFunc: func(ctx context.Context, token string) (*models.Admin, error) {
			return nil, apierrors.ErrUnauthorized
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/affiliates", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	mw(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		role    models.AdminRole
		allowed []models.AdminRole
		status  int
	}{
		{"super admin on super-only route", models.RoleSuperAdmin, []models.AdminRole{models.RoleSuperAdmin}, http.StatusOK},
		{"b2b agent on super-only route", models.RoleB2BAgent, []models.AdminRole{models.RoleSuperAdmin}, http.StatusForbidden},
		{"financial agent on payments route", models.RoleFinancialAgent, []models.AdminRole{models.RoleSuperAdmin, models.RoleFinancialAgent}, http.StatusOK},
		{"b2b agent on payments route", models.RoleB2BAgent, []models.AdminRole{models.RoleSuperAdmin, models.RoleFinancialAgent}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := RequireRole(tt.allowed...)
			admin := &models.Admin{ID: uuid.New(), Role: tt.role}

			req := httptest.NewRequest(http.MethodGet, "/api/admin/payments", nil)
			req = req.WithContext(context.WithValue(req.Context(), AdminKey, admin))
			rec := httptest.NewRecorder()
			mw(okHandler(nil)).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireRole_NoAdminInContext(t *testing.T) {
	mw := RequireRole(models.RoleSuperAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/payments", nil)
	rec := httptest.NewRecorder()
	mw(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
