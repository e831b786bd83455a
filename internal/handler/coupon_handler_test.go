package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubira/affiliates-api/internal/middleware"
	"github.com/tubira/affiliates-api/internal/models"
	"github.com/tubira/affiliates-api/internal/service"
)

type mockCouponService struct {
	validateFunc func(ctx context.Context, code string) (*service.CouponValidation, error)
	createFunc   func(ctx context.Context, input service.CreateCouponInput) (*models.Coupon, error)
	deleted      []uuid.UUID
}

func (m *mockCouponService) Validate(ctx context.Context, code string) (*service.CouponValidation, error) {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, code)
	}
	return &service.CouponValidation{Valid: false, Reason: "Invalid coupon code"}, nil
}

func (m *mockCouponService) IncrementUsage(ctx context.Context, code string) error { return nil }

func (m *mockCouponService) Create(ctx context.Context, input service.CreateCouponInput) (*models.Coupon, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}
	return &models.Coupon{ID: uuid.New(), Code: input.Code}, nil
}

func (m *mockCouponService) List(ctx context.Context) ([]*models.Coupon, error) { return nil, nil }

func (m *mockCouponService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func (m *mockCouponService) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func TestValidateCoupon_Valid(t *testing.T) {
	h := NewCouponHandler(&mockCouponService{
		validateFunc: func(ctx context.Context, code string) (*service.CouponValidation, error) {
			assert.Equal(t, "LAUNCH20", code)
			return &service.CouponValidation{Valid: true, DiscountPercentage: 20}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/validate-coupon", strings.NewReader(`{"code":"LAUNCH20"}`))
	rec := httptest.NewRecorder()
	h.Validate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data service.CouponValidation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Valid)
	assert.Equal(t, 20, body.Data.DiscountPercentage)
}

func TestValidateCoupon_InvalidStillOK(t *testing.T) {
	h := NewCouponHandler(&mockCouponService{})

	req := httptest.NewRequest(http.MethodPost, "/api/validate-coupon", strings.NewReader(`{"code":"NOPE"}`))
	rec := httptest.NewRecorder()
	h.Validate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid coupon code")
}

func TestCreateCoupon_RequiresAdminContext(t *testing.T) {
	h := NewCouponHandler(&mockCouponService{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/coupons", strings.NewReader(`{"code":"SAVE10","discount_percentage":10}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCoupon_StampsCreator(t *testing.T) {
	admin := &models.Admin{ID: uuid.New(), Role: models.RoleSuperAdmin}
	var got service.CreateCouponInput
	h := NewCouponHandler(&mockCouponService{
		createFunc: func(ctx context.Context, input service.CreateCouponInput) (*models.Coupon, error) {
			got = input
			return &models.Coupon{ID: uuid.New(), Code: input.Code}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/coupons", strings.NewReader(`{"code":"SAVE10","discount_percentage":10}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.AdminKey, admin))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, admin.ID, got.CreatedBy)
	assert.Equal(t, "SAVE10", got.Code)
}

func TestUpdateCoupon_MissingIsActive(t *testing.T) {
	h := NewCouponHandler(&mockCouponService{})
	r := h.AdminRoutes()

	req := httptest.NewRequest(http.MethodPatch, "/"+uuid.NewString(), strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "is_active")
}

func TestDeleteCoupon_RoutesByID(t *testing.T) {
	svc := &mockCouponService{}
	h := NewCouponHandler(svc)
	r := h.AdminRoutes()

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/"+id.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, svc.deleted)
}
