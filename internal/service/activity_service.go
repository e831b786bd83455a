package service

import (
	"context"
	"strconv"
	"time"

	"github.com/tubira/affiliates-api/internal/models"
	"github.com/tubira/affiliates-api/internal/repository"
)

// ActivityService exposes the append-only audit log to the dashboard.
type ActivityService interface {
	List(ctx context.Context, filter repository.ActivityFilter) ([]*models.Activity, error)
	ExportCSV(ctx context.Context, filter repository.ActivityFilter) ([]string, [][]string, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
}

// NewActivityService creates a new activity service.
func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) List(ctx context.Context, filter repository.ActivityFilter) ([]*models.Activity, error) {
	return s.activityRepo.List(ctx, filter)
}

func (s *activityService) ExportCSV(ctx context.Context, filter repository.ActivityFilter) ([]string, [][]string, error) {
	activities, err := s.activityRepo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	header := []string{"Type", "Affiliate ID", "Description", "Amount", "Created At"}
	rows := make([][]string, 0, len(activities))
	for _, a := range activities {
		amount := ""
		if a.Amount != nil {
			amount = strconv.FormatInt(*a.Amount, 10)
		}
		rows = append(rows, []string{
			string(a.Type),
			a.AffiliateID.String(),
			a.Description,
			amount,
			a.CreatedAt.Format(time.RFC3339),
		})
	}
	return header, rows, nil
}

// Compile-time check to ensure activityService implements ActivityService.
var _ ActivityService = (*activityService)(nil)
