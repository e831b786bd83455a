package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/repository"
)

// AffiliateService backs the admin affiliate dashboard.
type AffiliateService interface {
	List(ctx context.Context, status *models.AffiliateStatus) ([]*models.Affiliate, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.AffiliateStatus, actor *models.Admin) (*models.Affiliate, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	ExportCSV(ctx context.Context, status *models.AffiliateStatus) ([]string, [][]string, error)
}

// DashboardStats aggregates the admin landing page counters.
type DashboardStats struct {
	TotalAffiliates int64                            `json:"total_affiliates"`
	ByStatus        map[models.AffiliateStatus]int64 `json:"by_status"`
	Payments        *models.PaymentStats             `json:"payments"`
}

type affiliateService struct {
	affiliateRepo repository.AffiliateRepository
	paymentRepo   repository.PaymentRepository
	activityRepo  repository.ActivityRepository
}

// NewAffiliateService creates a new affiliate service.
func NewAffiliateService(
	affiliateRepo repository.AffiliateRepository,
	paymentRepo repository.PaymentRepository,
	activityRepo repository.ActivityRepository,
) AffiliateService {
	return &affiliateService{
		affiliateRepo: affiliateRepo,
		paymentRepo:   paymentRepo,
		activityRepo:  activityRepo,
	}
}

func (s *affiliateService) List(ctx context.Context, status *models.AffiliateStatus) ([]*models.Affiliate, error) {
	if status != nil && !models.ValidAffiliateStatus(*status) {
		return nil, apierrors.NewValidationError("status", fmt.Sprintf("unknown status %q", *status))
	}
	return s.affiliateRepo.List(ctx, status)
}

func (s *affiliateService) Get(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	affiliate, err := s.affiliateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, apierrors.NewNotFoundError("Affiliate")
	}
	return affiliate, nil
}

// UpdateStatus applies an admin-driven transition. The pending to paid
// move belongs to the webhook reconciler; admins act on paid accounts.
func (s *affiliateService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AffiliateStatus, actor *models.Admin) (*models.Affiliate, error) {
	if !models.ValidAffiliateStatus(status) {
		return nil, apierrors.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	affiliate, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if affiliate.Status == status {
		return affiliate, nil
	}
	if status == models.AffiliateStatusPaid {
		return nil, apierrors.NewBusinessRuleError("The paid status is set by payment confirmation, not manually")
	}
	if affiliate.Status == models.AffiliateStatusPending && status == models.AffiliateStatusActive {
		return nil, apierrors.NewBusinessRuleError("Affiliate must complete payment before activation")
	}

	if err := s.affiliateRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Status changed from %s to %s", affiliate.Status, status)
	if actor != nil {
		description += fmt.Sprintf(" by %s", actor.Name)
	}
	activity := &models.Activity{
		AffiliateID: affiliate.ID,
		Type:        models.ActivityStatusChange,
		Description: description,
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, err
	}

	affiliate.Status = status
	return affiliate, nil
}

func (s *affiliateService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.affiliateRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	paymentStats, err := s.paymentRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}
	return &DashboardStats{
		TotalAffiliates: total,
		ByStatus:        byStatus,
		Payments:        paymentStats,
	}, nil
}

// ExportCSV returns the affiliate export in the dashboard's column order.
func (s *affiliateService) ExportCSV(ctx context.Context, status *models.AffiliateStatus) ([]string, [][]string, error) {
	affiliates, err := s.List(ctx, status)
	if err != nil {
		return nil, nil, err
	}

	header := []string{"Name", "Email", "Phone", "Company", "Country", "Plan", "Plan Price", "Status", "Created At"}
	rows := make([][]string, 0, len(affiliates))
	for _, a := range affiliates {
		rows = append(rows, []string{
			a.Name,
			a.Email,
			deref(a.Phone),
			deref(a.Company),
			deref(a.Country),
			string(a.Plan),
			strconv.FormatInt(a.PlanPrice, 10),
			string(a.Status),
			a.CreatedAt.Format(time.RFC3339),
		})
	}
	return header, rows, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time check to ensure affiliateService implements AffiliateService.
var _ AffiliateService = (*affiliateService)(nil)
