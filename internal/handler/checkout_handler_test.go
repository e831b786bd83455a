package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/service"
)

type mockCheckoutService struct {
	createSessionFunc func(ctx context.Context, input service.CheckoutInput) (*service.CheckoutSessionInfo, error)
}

func (m *mockCheckoutService) CreateSession(ctx context.Context, input service.CheckoutInput) (*service.CheckoutSessionInfo, error) {
	if m.createSessionFunc != nil {
		return m.createSessionFunc(ctx, input)
	}
	return &service.CheckoutSessionInfo{SessionID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
}

const validCheckoutBody = `{
	"plan": "standard",
	"name": "Jordan Vale",
	"email": "jordan@example.com",
	"phone": "+15550001111",
	"country": "US",
	"address": "1 Market St"
}`

func TestCheckoutCreate_Success(t *testing.T) {
	var got service.CheckoutInput
	h := NewCheckoutHandler(&mockCheckoutService{
		createSessionFunc: func(ctx context.Context, input service.CheckoutInput) (*service.CheckoutSessionInfo, error) {
			got = input
			return &service.CheckoutSessionInfo{SessionID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(validCheckoutBody))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "standard", got.Plan)
	assert.Equal(t, "jordan@example.com", got.Email)

	var body struct {
		Data service.CheckoutSessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cs_test_123", body.Data.SessionID)
	assert.Contains(t, body.Data.URL, "checkout.stripe.com")
}

func TestCheckoutCreate_InvalidJSON(t *testing.T) {
	h := NewCheckoutHandler(&mockCheckoutService{})

	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutCreate_MissingField(t *testing.T) {
	called := false
	h := NewCheckoutHandler(&mockCheckoutService{
		createSessionFunc: func(ctx context.Context, input service.CheckoutInput) (*service.CheckoutSessionInfo, error) {
			called = true
			return nil, nil
		},
	})

	body := `{"plan": "standard", "name": "Jordan Vale"}`
	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestCheckoutCreate_ServiceError(t *testing.T) {
	h := NewCheckoutHandler(&mockCheckoutService{
		createSessionFunc: func(ctx context.Context, input service.CheckoutInput) (*service.CheckoutSessionInfo, error) {
			return nil, apierrors.NewValidationError("plan", "unknown plan")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(validCheckoutBody))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown plan")
}
