package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/tubira/affiliates-api/internal/middleware"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// maxWebhookBodyBytes caps the webhook payload size, per Stripe's
// documented maximum.
const maxWebhookBodyBytes = 64 * 1024

// WebhookHandler receives Stripe webhook deliveries.
type WebhookHandler struct {
	webhooks service.WebhookService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhooks service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// Handle handles POST /api/webhooks/stripe. Stripe retries deliveries
// that do not get a 2xx, so only genuine processing failures return 500.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		middleware.RecordWebhookEvent("rejected")
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Failed to read request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.webhooks.HandleWebhook(r.Context(), payload, signature); err != nil {
		if apierrors.IsAPIError(err) {
			middleware.RecordWebhookEvent("rejected")
			response.Error(w, err)
			return
		}
		middleware.RecordWebhookEvent("failed")
		h.logger.Error("webhook processing failed", "error", err)
		response.Error(w, apierrors.ErrInternal)
		return
	}

	middleware.RecordWebhookEvent("processed")
	response.Raw(w, http.StatusOK, map[string]bool{"received": true})
}
