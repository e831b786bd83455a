package service

import (
	"context"
	"strconv"
	"time"

	"github.com/tubira/affiliates-api/internal/models"
	"github.com/tubira/affiliates-api/internal/repository"
)

// PaymentService backs the financial view of the admin dashboard.
type PaymentService interface {
	List(ctx context.Context) ([]*models.Payment, error)
	Stats(ctx context.Context) (*models.PaymentStats, error)
	ExportCSV(ctx context.Context) ([]string, [][]string, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
}

// NewPaymentService creates a new payment service.
func NewPaymentService(paymentRepo repository.PaymentRepository) PaymentService {
	return &paymentService{paymentRepo: paymentRepo}
}

func (s *paymentService) List(ctx context.Context) ([]*models.Payment, error) {
	return s.paymentRepo.List(ctx)
}

func (s *paymentService) Stats(ctx context.Context) (*models.PaymentStats, error) {
	return s.paymentRepo.Stats(ctx)
}

func (s *paymentService) ExportCSV(ctx context.Context) ([]string, [][]string, error) {
	payments, err := s.paymentRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	header := []string{"ID", "Affiliate ID", "Plan", "Amount", "Currency", "Status", "Payment Intent", "Created At"}
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		affiliateID := ""
		if p.AffiliateID != nil {
			affiliateID = p.AffiliateID.String()
		}
		rows = append(rows, []string{
			p.ID.String(),
			affiliateID,
			string(p.Plan),
			strconv.FormatInt(p.Amount, 10),
			p.Currency,
			string(p.Status),
			deref(p.StripePaymentIntentID),
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	return header, rows, nil
}

// Compile-time check to ensure paymentService implements PaymentService.
var _ PaymentService = (*paymentService)(nil)
