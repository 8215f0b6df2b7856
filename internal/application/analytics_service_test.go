package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	apperrors "github.com/pharmacy-platform/stock-request-service/pkg/errors"
)

// TestStats tests the dashboard projection shape
func TestStats(t *testing.T) {
	t.Run("Empty store yields zero-filled maps", func(t *testing.T) {
		repo := &fakeRequestRepo{
			statsFn: func(context.Context) (*domain.RequestStats, error) {
				return &domain.RequestStats{
					CountsByStatus:  map[string]int64{},
					CountsByUrgency: map[string]int64{},
				}, nil
			},
			findRecentFn: func(context.Context, int) ([]*domain.StockRequest, error) {
				return nil, nil
			},
		}

		service := NewAnalyticsService(repo, testLogger())

		stats, err := service.Stats(context.Background())
		require.NoError(t, err)

		assert.Len(t, stats.CountsByStatus, 7)
		assert.Len(t, stats.CountsByUrgency, 4)
		for status, count := range stats.CountsByStatus {
			assert.Zero(t, count, "status %s", status)
		}
		assert.Zero(t, stats.EstimatedCostAtRisk)
		assert.NotNil(t, stats.RecentRequests)
		assert.Empty(t, stats.RecentRequests)
	})

	t.Run("Populated store", func(t *testing.T) {
		var capturedLimit int
		repo := &fakeRequestRepo{
			statsFn: func(context.Context) (*domain.RequestStats, error) {
				return &domain.RequestStats{
					CountsByStatus:      map[string]int64{"Pending": 3, "Ordered": 1},
					CountsByUrgency:     map[string]int64{"Critical": 2, "Medium": 2},
					EstimatedCostAtRisk: 412.50,
				}, nil
			},
			findRecentFn: func(_ context.Context, limit int) ([]*domain.StockRequest, error) {
				capturedLimit = limit
				return []*domain.StockRequest{
					{ID: "REQ-1", RequestNumber: "SR-20260829-002"},
					{ID: "REQ-2", RequestNumber: "SR-20260829-001"},
				}, nil
			},
		}

		service := NewAnalyticsService(repo, testLogger())

		stats, err := service.Stats(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 5, capturedLimit)
		assert.Equal(t, int64(3), stats.CountsByStatus["Pending"])
		assert.Equal(t, int64(0), stats.CountsByStatus["Rejected"])
		assert.Equal(t, int64(2), stats.CountsByUrgency["Critical"])
		assert.Equal(t, int64(0), stats.CountsByUrgency["Low"])
		assert.InDelta(t, 412.50, stats.EstimatedCostAtRisk, 0.001)
		require.Len(t, stats.RecentRequests, 2)
		assert.Equal(t, "REQ-1", stats.RecentRequests[0].ID)
	})

	t.Run("Aggregation failure", func(t *testing.T) {
		repo := &fakeRequestRepo{
			statsFn: func(context.Context) (*domain.RequestStats, error) {
				return nil, errUnexpected
			},
		}

		service := NewAnalyticsService(repo, testLogger())

		_, err := service.Stats(context.Background())

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInternalError, appErr.Code)
	})
}
