package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-platform/stock-request-service/internal/application"
	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	"github.com/pharmacy-platform/stock-request-service/pkg/auth"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/metrics"
)

var errUnexpected = errors.New("unexpected call")

type stubRequestRepo struct {
	createFn           func(context.Context, *domain.StockRequest) error
	findByIDFn         func(context.Context, string) (*domain.StockRequest, error)
	findByNumberFn     func(context.Context, string) (*domain.StockRequest, error)
	listFn             func(context.Context, domain.RequestFilter, domain.Pagination) ([]*domain.StockRequest, int64, error)
	findRecentFn       func(context.Context, int) ([]*domain.StockRequest, error)
	updateTransitionFn func(context.Context, *domain.StockRequest, domain.RequestStatus) error
	statsFn            func(context.Context) (*domain.RequestStats, error)
}

func (s *stubRequestRepo) Create(ctx context.Context, request *domain.StockRequest) error {
	if s.createFn == nil {
		return errUnexpected
	}
	return s.createFn(ctx, request)
}

func (s *stubRequestRepo) FindByID(ctx context.Context, requestID string) (*domain.StockRequest, error) {
	if s.findByIDFn == nil {
		return nil, errUnexpected
	}
	return s.findByIDFn(ctx, requestID)
}

func (s *stubRequestRepo) FindByRequestNumber(ctx context.Context, requestNumber string) (*domain.StockRequest, error) {
	if s.findByNumberFn == nil {
		return nil, errUnexpected
	}
	return s.findByNumberFn(ctx, requestNumber)
}

func (s *stubRequestRepo) List(ctx context.Context, filter domain.RequestFilter, pagination domain.Pagination) ([]*domain.StockRequest, int64, error) {
	if s.listFn == nil {
		return nil, 0, errUnexpected
	}
	return s.listFn(ctx, filter, pagination)
}

func (s *stubRequestRepo) FindRecent(ctx context.Context, limit int) ([]*domain.StockRequest, error) {
	if s.findRecentFn == nil {
		return nil, errUnexpected
	}
	return s.findRecentFn(ctx, limit)
}

func (s *stubRequestRepo) UpdateTransition(ctx context.Context, request *domain.StockRequest, fromStatus domain.RequestStatus) error {
	if s.updateTransitionFn == nil {
		return errUnexpected
	}
	return s.updateTransitionFn(ctx, request, fromStatus)
}

func (s *stubRequestRepo) Receive(context.Context, *domain.StockRequest, int) (int, error) {
	return 0, errUnexpected
}

func (s *stubRequestRepo) Stats(ctx context.Context) (*domain.RequestStats, error) {
	if s.statsFn == nil {
		return nil, errUnexpected
	}
	return s.statsFn(ctx)
}

type stubLedger struct{}

func (stubLedger) GetItem(_ context.Context, itemID string) (*domain.InventoryItem, error) {
	return &domain.InventoryItem{ID: itemID, CurrentStock: 40, ReorderThreshold: 10, UnitPrice: 2.5}, nil
}

func (stubLedger) IncrementStock(context.Context, string, int) (int, error) {
	return 0, errUnexpected
}

type stubVendorRepo struct{}

func (stubVendorRepo) FindByID(_ context.Context, vendorID string) (*domain.Vendor, error) {
	return &domain.Vendor{ID: vendorID, Name: "MediSupply", IsActive: true}, nil
}

func (stubVendorRepo) FindAll(context.Context, bool) ([]*domain.Vendor, error) {
	return []*domain.Vendor{}, nil
}

func setupRouter(t *testing.T, repo domain.StockRequestRepository) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.New(&logging.Config{ServiceName: "test", Output: io.Discard})
	m := metrics.New(metrics.DefaultConfig("test"))

	service := application.NewStockRequestService(repo, stubLedger{}, stubVendorRepo{}, logger, m)
	analytics := application.NewAnalyticsService(repo, logger)

	tm := auth.NewTokenManager("test-secret", time.Hour)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.Use(auth.Authenticate(tm))
	NewStockRequestHandler(service, analytics, logger).RegisterRoutes(v1)

	return router, tm
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func workerToken(t *testing.T, tm *auth.TokenManager, userID string) string {
	t.Helper()
	token, err := tm.GenerateToken(userID, "Worker", auth.RoleWorker)
	require.NoError(t, err)
	return token
}

func ownerToken(t *testing.T, tm *auth.TokenManager) string {
	t.Helper()
	token, err := tm.GenerateToken("owner-1", "Owner", auth.RoleOwner)
	require.NoError(t, err)
	return token
}

func pendingRequest(t *testing.T, requestedBy string) *domain.StockRequest {
	t.Helper()
	request, err := domain.NewStockRequest(domain.NewStockRequestParams{
		ItemID:               "ITEM-001",
		RequestedBy:          requestedBy,
		RequestedQuantity:    50,
		Reason:               "Running low",
		CurrentStockSnapshot: 40,
		ReorderThreshold:     10,
	})
	require.NoError(t, err)
	request.AssignRequestNumber("SR-20260829-001")
	request.ClearDomainEvents()
	return request
}

func TestCreateRequestEndpoint(t *testing.T) {
	body := `{"itemId": "ITEM-001", "requestedQuantity": 25, "reason": "Stock running low"}`

	t.Run("worker creates request", func(t *testing.T) {
		repo := &stubRequestRepo{
			createFn: func(_ context.Context, request *domain.StockRequest) error {
				request.AssignRequestNumber("SR-20260829-001")
				return nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "POST", "/api/v1/stock-requests", workerToken(t, tm, "worker-1"), body)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Data *domain.StockRequest `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "SR-20260829-001", resp.Data.RequestNumber)
		assert.Equal(t, "worker-1", resp.Data.RequestedBy)
	})

	t.Run("missing token", func(t *testing.T) {
		router, _ := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "POST", "/api/v1/stock-requests", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("owner cannot create", func(t *testing.T) {
		router, tm := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "POST", "/api/v1/stock-requests", ownerToken(t, tm), body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("duplicate maps to conflict", func(t *testing.T) {
		repo := &stubRequestRepo{
			createFn: func(context.Context, *domain.StockRequest) error {
				return domain.ErrDuplicateRequest
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "POST", "/api/v1/stock-requests", workerToken(t, tm, "worker-1"), body)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CONFLICT", resp["code"])
	})

	t.Run("missing reason fails validation", func(t *testing.T) {
		router, tm := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "POST", "/api/v1/stock-requests",
			workerToken(t, tm, "worker-1"),
			`{"itemId": "ITEM-001", "requestedQuantity": 25}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestApproveEndpoint(t *testing.T) {
	t.Run("owner approves pending request", func(t *testing.T) {
		request := pendingRequest(t, "worker-1")
		repo := &stubRequestRepo{
			findByIDFn: func(context.Context, string) (*domain.StockRequest, error) {
				return request, nil
			},
			updateTransitionFn: func(context.Context, *domain.StockRequest, domain.RequestStatus) error {
				return nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "POST", "/api/v1/stock-requests/"+request.ID+"/approve", ownerToken(t, tm), `{}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data *domain.StockRequest `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, domain.StatusApproved, resp.Data.Status)
	})

	t.Run("already approved yields 409", func(t *testing.T) {
		request := pendingRequest(t, "worker-1")
		require.NoError(t, request.Approve("owner-1", "", "", nil))

		repo := &stubRequestRepo{
			findByIDFn: func(context.Context, string) (*domain.StockRequest, error) {
				return request, nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "POST", "/api/v1/stock-requests/"+request.ID+"/approve", ownerToken(t, tm), `{}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_TRANSITION", resp["code"])
		assert.Equal(t, "Request is already Approved", resp["message"])
	})

	t.Run("worker cannot approve", func(t *testing.T) {
		router, tm := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "POST", "/api/v1/stock-requests/REQ-1/approve", workerToken(t, tm, "worker-1"), `{}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRejectEndpoint(t *testing.T) {
	t.Run("reason is required", func(t *testing.T) {
		router, tm := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "POST", "/api/v1/stock-requests/REQ-1/reject", ownerToken(t, tm), `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListEndpoint(t *testing.T) {
	t.Run("owner lists with status filter", func(t *testing.T) {
		var captured domain.RequestFilter
		repo := &stubRequestRepo{
			listFn: func(_ context.Context, filter domain.RequestFilter, _ domain.Pagination) ([]*domain.StockRequest, int64, error) {
				captured = filter
				return []*domain.StockRequest{pendingRequest(t, "worker-1")}, 1, nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "GET", "/api/v1/stock-requests?status=Pending&page=1&pageSize=10", ownerToken(t, tm), "")

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, captured.Status)
		assert.Equal(t, domain.StatusPending, *captured.Status)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(1), resp["totalItems"])
	})

	t.Run("invalid status filter", func(t *testing.T) {
		router, tm := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "GET", "/api/v1/stock-requests?status=Bogus", ownerToken(t, tm), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("mine pins the requester", func(t *testing.T) {
		var captured domain.RequestFilter
		repo := &stubRequestRepo{
			listFn: func(_ context.Context, filter domain.RequestFilter, _ domain.Pagination) ([]*domain.StockRequest, int64, error) {
				captured = filter
				return []*domain.StockRequest{}, 0, nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "GET", "/api/v1/stock-requests/mine", workerToken(t, tm, "worker-7"), "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "worker-7", captured.RequestedBy)
	})
}

func TestStatsEndpoint(t *testing.T) {
	t.Run("owner reads dashboard", func(t *testing.T) {
		repo := &stubRequestRepo{
			statsFn: func(context.Context) (*domain.RequestStats, error) {
				return &domain.RequestStats{
					CountsByStatus:  map[string]int64{"Pending": 2},
					CountsByUrgency: map[string]int64{},
				}, nil
			},
			findRecentFn: func(context.Context, int) ([]*domain.StockRequest, error) {
				return nil, nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "GET", "/api/v1/stock-requests/stats", ownerToken(t, tm), "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data *application.DashboardStats `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.Data.CountsByStatus["Pending"])
		assert.Equal(t, int64(0), resp.Data.CountsByStatus["Cancelled"])
		assert.NotNil(t, resp.Data.RecentRequests)
	})

	t.Run("worker is denied", func(t *testing.T) {
		router, tm := setupRouter(t, &stubRequestRepo{})
		w := doJSON(t, router, "GET", "/api/v1/stock-requests/stats", workerToken(t, tm, "worker-1"), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCancelEndpoint(t *testing.T) {
	t.Run("worker cancels own request", func(t *testing.T) {
		request := pendingRequest(t, "worker-1")
		repo := &stubRequestRepo{
			findByIDFn: func(context.Context, string) (*domain.StockRequest, error) {
				return request, nil
			},
			updateTransitionFn: func(context.Context, *domain.StockRequest, domain.RequestStatus) error {
				return nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "POST", "/api/v1/stock-requests/"+request.ID+"/cancel", workerToken(t, tm, "worker-1"), "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("worker cannot cancel another worker's request", func(t *testing.T) {
		request := pendingRequest(t, "worker-2")
		repo := &stubRequestRepo{
			findByIDFn: func(context.Context, string) (*domain.StockRequest, error) {
				return request, nil
			},
		}
		router, tm := setupRouter(t, repo)

		w := doJSON(t, router, "POST", "/api/v1/stock-requests/"+request.ID+"/cancel", workerToken(t, tm, "worker-1"), "")

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetByNumberEndpoint(t *testing.T) {
	request := pendingRequest(t, "worker-1")
	repo := &stubRequestRepo{
		findByNumberFn: func(_ context.Context, requestNumber string) (*domain.StockRequest, error) {
			if requestNumber != request.RequestNumber {
				return nil, domain.ErrRequestNotFound
			}
			return request, nil
		},
	}
	router, tm := setupRouter(t, repo)

	t.Run("found", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/v1/stock-requests/number/SR-20260829-001", ownerToken(t, tm), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown number", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/v1/stock-requests/number/SR-19990101-001", ownerToken(t, tm), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetRequestOwnership(t *testing.T) {
	request := pendingRequest(t, "worker-2")
	repo := &stubRequestRepo{
		findByIDFn: func(context.Context, string) (*domain.StockRequest, error) {
			return request, nil
		},
	}
	router, tm := setupRouter(t, repo)

	t.Run("owner sees any request", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/v1/stock-requests/"+request.ID, ownerToken(t, tm), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other worker is denied", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/v1/stock-requests/"+request.ID, workerToken(t, tm, "worker-1"), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
