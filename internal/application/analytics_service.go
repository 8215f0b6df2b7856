package application

import (
	"context"
	"time"

	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	apperrors "github.com/pharmacy-platform/stock-request-service/pkg/errors"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
)

const recentRequestsLimit = 5

// DashboardStats is the read model served to the back-office dashboard
type DashboardStats struct {
	CountsByStatus      map[string]int64       `json:"countsByStatus"`
	CountsByUrgency     map[string]int64       `json:"countsByUrgency"`
	EstimatedCostAtRisk float64                `json:"estimatedCostAtRisk"`
	RecentRequests      []*domain.StockRequest `json:"recentRequests"`
}

// AnalyticsService serves the read-only dashboard projection. It only reads
// persisted workflow state and tolerates an empty store.
type AnalyticsService struct {
	requests  domain.StockRequestRepository
	logger    *logging.Logger
	opTimeout time.Duration
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(requests domain.StockRequestRepository, logger *logging.Logger) *AnalyticsService {
	return &AnalyticsService{
		requests:  requests,
		logger:    logger,
		opTimeout: DefaultOperationTimeout,
	}
}

// Stats aggregates request counts, capital at risk and the newest requests.
// Every status and urgency level appears in the maps, zero when absent.
func (s *AnalyticsService) Stats(ctx context.Context) (*DashboardStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	stats, err := s.requests.Stats(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.ErrTimeout("stats")
		}
		s.logger.WithError(err).Error("Failed to aggregate stats")
		return nil, apperrors.ErrInternal("failed to aggregate stats").Wrap(err)
	}

	recent, err := s.requests.FindRecent(ctx, recentRequestsLimit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.ErrTimeout("stats")
		}
		s.logger.WithError(err).Error("Failed to load recent requests")
		return nil, apperrors.ErrInternal("failed to load recent requests").Wrap(err)
	}
	if recent == nil {
		recent = make([]*domain.StockRequest, 0)
	}

	result := &DashboardStats{
		CountsByStatus:      make(map[string]int64),
		CountsByUrgency:     make(map[string]int64),
		EstimatedCostAtRisk: stats.EstimatedCostAtRisk,
		RecentRequests:      recent,
	}

	for _, status := range []domain.RequestStatus{
		domain.StatusPending, domain.StatusUnderReview, domain.StatusApproved,
		domain.StatusRejected, domain.StatusOrdered, domain.StatusReceived,
		domain.StatusCancelled,
	} {
		result.CountsByStatus[string(status)] = stats.CountsByStatus[string(status)]
	}

	for _, urgency := range []domain.UrgencyLevel{
		domain.UrgencyLow, domain.UrgencyMedium, domain.UrgencyHigh, domain.UrgencyCritical,
	} {
		result.CountsByUrgency[string(urgency)] = stats.CountsByUrgency[string(urgency)]
	}

	return result, nil
}
