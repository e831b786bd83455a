// Package service provides business logic for the affiliate program API.
package service

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/models"
)

var emailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "affiliates_emails_sent_total",
		Help: "Total number of email sends by outcome",
	},
	[]string{"outcome"},
)

// EmailService sends transactional email through the Resend HTTP API.
// All sends are best-effort; callers log failures and move on.
type EmailService interface {
	Send(ctx context.Context, to, subject, html string) error
	SendWelcome(ctx context.Context, to, name string, plan models.Plan) error
	SendAdminNotification(ctx context.Context, to, affiliateName, affiliateEmail string, plan models.Plan, amount int64) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

type emailService struct {
	client *resty.Client
	from   string
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewEmailService creates a Resend-backed email service.
func NewEmailService(cfg *config.EmailConfig) EmailService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &emailService{
		client: client,
		from:   cfg.FromAddress,
	}
}

func (s *emailService) Send(ctx context.Context, to, subject, html string) error {
	var errResp resendError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendEmailRequest{
			From:    s.from,
			To:      []string{to},
			Subject: subject,
			HTML:    html,
		}).
		SetResult(&sendEmailResponse{}).
		SetError(&errResp).
		Post("/emails")
	if err != nil {
		emailsSentTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("resend request failed: %w", err)
	}
	if resp.IsError() {
		emailsSentTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode(), errResp.Message)
	}
	emailsSentTotal.WithLabelValues("sent").Inc()
	return nil
}

func (s *emailService) SendWelcome(ctx context.Context, to, name string, plan models.Plan) error {
	subject := "Welcome to the Tubira Affiliate Program"
	html := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your payment for the <strong>%s</strong> (%s) has been received.</p>
		<p>Our team will review your application and activate your account shortly.</p>
		<p>— The Tubira Team</p>`,
		name, plan.Name, plan.PriceDisplay)
	return s.Send(ctx, to, subject, html)
}

func (s *emailService) SendAdminNotification(ctx context.Context, to, affiliateName, affiliateEmail string, plan models.Plan, amount int64) error {
	subject := fmt.Sprintf("New affiliate payment: %s", affiliateName)
	html := fmt.Sprintf(`
		<h2>New affiliate payment received</h2>
		<ul>
			<li>Name: %s</li>
			<li>Email: %s</li>
			<li>Plan: %s</li>
			<li>Amount: $%.2f</li>
		</ul>`,
		affiliateName, affiliateEmail, plan.Name, float64(amount)/100)
	return s.Send(ctx, to, subject, html)
}

func (s *emailService) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	subject := "Reset your admin password"
	html := fmt.Sprintf(`
		<h2>Password reset requested</h2>
		<p>Hi %s, a password reset was requested for your account.</p>
		<p><a href="%s">Reset your password</a></p>
		<p>The link expires in one hour. If you did not request this, ignore this email.</p>`,
		name, resetURL)
	return s.Send(ctx, to, subject, html)
}

// Compile-time check to ensure emailService implements EmailService.
var _ EmailService = (*emailService)(nil)
