package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubira/affiliates-api/internal/models"
)

type mockEmailService struct {
	sendFunc        func(ctx context.Context, to, subject, html string) error
	sendWelcomeFunc func(ctx context.Context, to, name string, plan models.Plan) error
}

func (m *mockEmailService) Send(ctx context.Context, to, subject, html string) error {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, subject, html)
	}
	return nil
}

func (m *mockEmailService) SendWelcome(ctx context.Context, to, name string, plan models.Plan) error {
	if m.sendWelcomeFunc != nil {
		return m.sendWelcomeFunc(ctx, to, name, plan)
	}
	return nil
}

func (m *mockEmailService) SendAdminNotification(ctx context.Context, to, affiliateName, affiliateEmail string, plan models.Plan, amount int64) error {
	return nil
}

func (m *mockEmailService) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	return nil
}

func TestSendEmail_WelcomeWithCatalogPlan(t *testing.T) {
	var gotTo, gotName string
	var gotPlan models.Plan
	h := NewEmailHandler(&mockEmailService{
		sendWelcomeFunc: func(ctx context.Context, to, name string, plan models.Plan) error {
			gotTo, gotName, gotPlan = to, name, plan
			return nil
		},
	})

	body := `{"to":"jane@example.com","name":"Jane Doe","plan":"standard","planPrice":"$500"}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane@example.com", gotTo)
	assert.Equal(t, "Jane Doe", gotName)
	assert.Equal(t, models.PlanStandard, gotPlan.ID)
	assert.Equal(t, int64(50000), gotPlan.Price)
}

func TestSendEmail_PlanDisplayNameAccepted(t *testing.T) {
	var gotPlan models.Plan
	h := NewEmailHandler(&mockEmailService{
		sendWelcomeFunc: func(ctx context.Context, to, name string, plan models.Plan) error {
			gotPlan = plan
			return nil
		},
	})

	body := `{"to":"jane@example.com","name":"Jane Doe","plan":"Premium Plan","planPrice":"$1,000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PlanPremium, gotPlan.ID)
}

func TestSendEmail_MissingFields(t *testing.T) {
	called := false
	h := NewEmailHandler(&mockEmailService{
		sendWelcomeFunc: func(ctx context.Context, to, name string, plan models.Plan) error {
			called = true
			return nil
		},
	})

	body := `{"to":"jane@example.com","name":"Jane Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestSendEmail_UnknownPlan(t *testing.T) {
	h := NewEmailHandler(&mockEmailService{})

	body := `{"to":"jane@example.com","name":"Jane Doe","plan":"enterprise","planPrice":"$9,999"}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown plan")
}

func TestSendEmail_ArbitraryContentIgnored(t *testing.T) {
	h := NewEmailHandler(&mockEmailService{
		sendFunc: func(ctx context.Context, to, subject, html string) error {
			t.Fatal("raw Send must not be reachable from the public endpoint")
			return nil
		},
	})

	body := `{"to":"jane@example.com","name":"Jane Doe","plan":"standard","planPrice":"$500","subject":"win a prize","html":"<script>x</script>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
