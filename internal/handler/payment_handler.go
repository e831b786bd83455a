package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// PaymentHandler handles the admin payment surface.
type PaymentHandler struct {
	payments service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Routes returns the admin payment routes.
func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/export", h.Export)
	return r
}

// List handles GET /api/admin/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, payments)
}

// Stats handles GET /api/admin/payments/stats
func (h *PaymentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.payments.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, stats)
}

// Export handles GET /api/admin/payments/export
func (h *PaymentHandler) Export(w http.ResponseWriter, r *http.Request) {
	header, rows, err := h.payments.ExportCSV(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.CSV(w, "payments.csv", header, rows)
}
