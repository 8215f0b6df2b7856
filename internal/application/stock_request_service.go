package application

import (
	"context"
	"errors"
	"time"

	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	apperrors "github.com/pharmacy-platform/stock-request-service/pkg/errors"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/metrics"
)

// DefaultOperationTimeout bounds every store interaction so no operation
// blocks indefinitely
const DefaultOperationTimeout = 10 * time.Second

// StockRequestService orchestrates the replenishment workflow
type StockRequestService struct {
	requests  domain.StockRequestRepository
	ledger    domain.InventoryLedger
	vendors   domain.VendorRepository
	logger    *logging.Logger
	metrics   *metrics.Metrics
	opTimeout time.Duration
}

// NewStockRequestService creates a new StockRequestService
func NewStockRequestService(
	requests domain.StockRequestRepository,
	ledger domain.InventoryLedger,
	vendors domain.VendorRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *StockRequestService {
	return &StockRequestService{
		requests:  requests,
		ledger:    ledger,
		vendors:   vendors,
		logger:    logger,
		metrics:   m,
		opTimeout: DefaultOperationTimeout,
	}
}

// WithOperationTimeout overrides the per-operation store timeout
func (s *StockRequestService) WithOperationTimeout(timeout time.Duration) *StockRequestService {
	s.opTimeout = timeout
	return s
}

// CreateRequest creates a new replenishment request on behalf of a worker.
// The duplicate guard and request numbering are both enforced at the store,
// so concurrent submissions for the same item yield exactly one success.
func (s *StockRequestService) CreateRequest(ctx context.Context, requestedBy string, cmd CreateRequestCommand) (*domain.StockRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	item, err := s.ledger.GetItem(ctx, cmd.ItemID)
	if err != nil {
		return nil, s.mapError(ctx, "createRequest", err)
	}

	if cmd.PreferredVendorID != "" {
		if _, err := s.vendors.FindByID(ctx, cmd.PreferredVendorID); err != nil {
			if errors.Is(err, domain.ErrVendorNotFound) {
				return nil, apperrors.ErrValidation("preferred vendor not found").
					WithDetail("vendorId", cmd.PreferredVendorID)
			}
			return nil, s.mapError(ctx, "createRequest", err)
		}
	}

	request, err := domain.NewStockRequest(domain.NewStockRequestParams{
		ItemID:               cmd.ItemID,
		RequestedBy:          requestedBy,
		RequestedQuantity:    cmd.RequestedQuantity,
		UrgencyLevel:         domain.UrgencyLevel(cmd.UrgencyLevel),
		Reason:               cmd.Reason,
		PreferredVendorID:    cmd.PreferredVendorID,
		EstimatedCost:        cmd.EstimatedCost,
		CurrentStockSnapshot: item.CurrentStock,
		ReorderThreshold:     item.ReorderThreshold,
	})
	if err != nil {
		return nil, s.mapError(ctx, "createRequest", err)
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, domain.ErrDuplicateRequest) {
			s.metrics.RecordDuplicateRequestBlocked()
		}
		return nil, s.mapError(ctx, "createRequest", err)
	}

	s.metrics.RecordStockRequestCreated(string(request.UrgencyLevel))
	s.logger.Audit(ctx, "stock_request.create", "StockRequest", request.ID, requestedBy, map[string]any{
		"requestNumber": request.RequestNumber,
		"itemId":        request.ItemID,
		"quantity":      request.RequestedQuantity,
		"isUrgent":      request.IsUrgent,
	})

	return request, nil
}

// BulkCreateResult carries per-element outcomes of a bulk submission
type BulkCreateResult struct {
	Created  []*domain.StockRequest `json:"created"`
	Failures []BulkCreateFailure    `json:"failures"`
}

// BulkCreateFailure describes one rejected element of a bulk submission
type BulkCreateFailure struct {
	Index  int                `json:"index"`
	ItemID string             `json:"itemId"`
	Error  *apperrors.AppError `json:"error"`
}

// CreateBulk creates several requests in one call. Elements succeed or fail
// independently; a duplicate or invalid element never blocks the others.
func (s *StockRequestService) CreateBulk(ctx context.Context, requestedBy string, cmd BulkCreateCommand) (*BulkCreateResult, error) {
	result := &BulkCreateResult{
		Created:  make([]*domain.StockRequest, 0, len(cmd.Requests)),
		Failures: make([]BulkCreateFailure, 0),
	}

	for i, create := range cmd.Requests {
		request, err := s.CreateRequest(ctx, requestedBy, create)
		if err != nil {
			result.Failures = append(result.Failures, BulkCreateFailure{
				Index:  i,
				ItemID: create.ItemID,
				Error:  apperrors.FromError(err),
			})
			continue
		}
		result.Created = append(result.Created, request)
	}

	return result, nil
}

// BeginReview moves a pending request into UnderReview
func (s *StockRequestService) BeginReview(ctx context.Context, requestID, reviewerID string) (*domain.StockRequest, error) {
	return s.transitionRequest(ctx, "beginReview", requestID, reviewerID, func(r *domain.StockRequest) error {
		return r.BeginReview(reviewerID)
	})
}

// Approve approves a request
func (s *StockRequestService) Approve(ctx context.Context, requestID, reviewerID string, cmd ApproveCommand) (*domain.StockRequest, error) {
	return s.transitionRequest(ctx, "approve", requestID, reviewerID, func(r *domain.StockRequest) error {
		return r.Approve(reviewerID, cmd.AdminNotes, cmd.VendorID, cmd.ExpectedDeliveryDate)
	})
}

// Reject rejects a request with a mandatory reason
func (s *StockRequestService) Reject(ctx context.Context, requestID, reviewerID string, cmd RejectCommand) (*domain.StockRequest, error) {
	return s.transitionRequest(ctx, "reject", requestID, reviewerID, func(r *domain.StockRequest) error {
		return r.Reject(reviewerID, cmd.Reason)
	})
}

// DispatchToVendor dispatches an approved request to a vendor
func (s *StockRequestService) DispatchToVendor(ctx context.Context, requestID, actorID string, cmd DispatchCommand) (*domain.StockRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	vendor, err := s.vendors.FindByID(ctx, cmd.VendorID)
	if err != nil {
		if errors.Is(err, domain.ErrVendorNotFound) {
			return nil, apperrors.ErrValidation("vendor not found").WithDetail("vendorId", cmd.VendorID)
		}
		return nil, s.mapError(ctx, "dispatchToVendor", err)
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, s.mapError(ctx, "dispatchToVendor", err)
	}

	item, err := s.ledger.GetItem(ctx, request.ItemID)
	if err != nil {
		return nil, s.mapError(ctx, "dispatchToVendor", err)
	}

	fromStatus := request.Status
	if err := request.DispatchToVendor(vendor.ID, cmd.ExpectedDeliveryDate, cmd.OrderDate, cmd.Notes, item.UnitPrice); err != nil {
		return nil, s.mapError(ctx, "dispatchToVendor", err)
	}

	if err := s.requests.UpdateTransition(ctx, request, fromStatus); err != nil {
		return nil, s.resolveStaleOrMap(ctx, "dispatchToVendor", requestID, err)
	}

	s.metrics.RecordStockRequestTransition(string(domain.StatusOrdered))
	s.logger.Audit(ctx, "stock_request.dispatch", "StockRequest", request.ID, actorID, map[string]any{
		"vendorId":  vendor.ID,
		"totalCost": request.OrderDetails.TotalCost,
	})

	return request, nil
}

// MarkReceived confirms physical receipt. The status write and the inventory
// credit commit atomically; a duplicate call observes Received and fails.
func (s *StockRequestService) MarkReceived(ctx context.Context, requestID, actorID string, cmd ReceiveCommand) (*domain.StockRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, s.mapError(ctx, "markReceived", err)
	}

	if err := request.MarkReceived(cmd.ReceivedQuantity, cmd.InvoiceNumber, cmd.ActualDeliveryDate, cmd.ActualCost); err != nil {
		return nil, s.mapError(ctx, "markReceived", err)
	}

	credited := request.ReceivedQuantity()
	newStock, err := s.requests.Receive(ctx, request, credited)
	if err != nil {
		return nil, s.resolveStaleOrMap(ctx, "markReceived", requestID, err)
	}

	s.metrics.RecordStockRequestTransition(string(domain.StatusReceived))
	s.metrics.RecordStockUnitsCredited(credited)
	s.logger.Audit(ctx, "stock_request.receive", "StockRequest", request.ID, actorID, map[string]any{
		"receivedQuantity": credited,
		"newStock":         newStock,
		"invoiceNumber":    cmd.InvoiceNumber,
	})

	return request, nil
}

// Cancel cancels a request from any non-terminal status
func (s *StockRequestService) Cancel(ctx context.Context, requestID, actorID string) (*domain.StockRequest, error) {
	return s.transitionRequest(ctx, "cancel", requestID, actorID, func(r *domain.StockRequest) error {
		return r.Cancel(actorID)
	})
}

// GetByID retrieves a request by ID
func (s *StockRequestService) GetByID(ctx context.Context, requestID string) (*domain.StockRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, s.mapError(ctx, "getById", err)
	}
	return request, nil
}

// GetByNumber retrieves a request by its human-readable number, used by
// audit and reporting flows
func (s *StockRequestService) GetByNumber(ctx context.Context, requestNumber string) (*domain.StockRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	request, err := s.requests.FindByRequestNumber(ctx, requestNumber)
	if err != nil {
		return nil, s.mapError(ctx, "getByNumber", err)
	}
	return request, nil
}

// List retrieves requests matching the filter, newest first
func (s *StockRequestService) List(ctx context.Context, filter domain.RequestFilter, pagination domain.Pagination) ([]*domain.StockRequest, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	requests, total, err := s.requests.List(ctx, filter, pagination)
	if err != nil {
		return nil, 0, s.mapError(ctx, "listByStatus", err)
	}
	return requests, total, nil
}

// ListMine retrieves the requests created by one worker
func (s *StockRequestService) ListMine(ctx context.Context, requestedBy string, filter domain.RequestFilter, pagination domain.Pagination) ([]*domain.StockRequest, int64, error) {
	filter.RequestedBy = requestedBy
	return s.List(ctx, filter, pagination)
}

// transitionRequest loads, mutates and conditionally persists a request. When
// the conditional write loses a race, the request is reloaded so the error
// names the status the winner left behind.
func (s *StockRequestService) transitionRequest(ctx context.Context, op, requestID, actorID string, mutate func(*domain.StockRequest) error) (*domain.StockRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, s.mapError(ctx, op, err)
	}

	fromStatus := request.Status
	if err := mutate(request); err != nil {
		return nil, s.mapError(ctx, op, err)
	}

	if err := s.requests.UpdateTransition(ctx, request, fromStatus); err != nil {
		return nil, s.resolveStaleOrMap(ctx, op, requestID, err)
	}

	s.metrics.RecordStockRequestTransition(string(request.Status))
	s.logger.Audit(ctx, "stock_request."+op, "StockRequest", request.ID, actorID, map[string]any{
		"fromStatus": string(fromStatus),
		"toStatus":   string(request.Status),
	})

	return request, nil
}

// resolveStaleOrMap turns a lost conditional write into an InvalidTransition
// naming the current status
func (s *StockRequestService) resolveStaleOrMap(ctx context.Context, op, requestID string, err error) error {
	if !errors.Is(err, domain.ErrStaleRequest) {
		return s.mapError(ctx, op, err)
	}

	current, findErr := s.requests.FindByID(ctx, requestID)
	if findErr != nil {
		return s.mapError(ctx, op, findErr)
	}
	return apperrors.ErrInvalidTransition(string(current.Status))
}

// mapError translates domain and context errors into the API error taxonomy
func (s *StockRequestService) mapError(ctx context.Context, op string, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return apperrors.ErrTimeout(op)
	}

	if ite, ok := domain.IsInvalidTransition(err); ok {
		return apperrors.ErrInvalidTransition(string(ite.Current))
	}

	switch {
	case errors.Is(err, domain.ErrRequestNotFound):
		return apperrors.ErrNotFound("Stock request")
	case errors.Is(err, domain.ErrItemNotFound):
		return apperrors.ErrNotFound("Inventory item")
	case errors.Is(err, domain.ErrVendorNotFound):
		return apperrors.ErrNotFound("Vendor")
	case errors.Is(err, domain.ErrDuplicateRequest):
		return apperrors.ErrConflict("An in-flight replenishment request already exists for this item")
	case isDomainValidation(err):
		return apperrors.ErrValidation(err.Error())
	default:
		s.logger.WithError(err).Error("Operation failed", "operation", op)
		return apperrors.ErrInternal("operation failed").Wrap(err)
	}
}

func isDomainValidation(err error) bool {
	for _, sentinel := range []error{
		domain.ErrInvalidQuantity,
		domain.ErrInvalidReceivedQuantity,
		domain.ErrReasonRequired,
		domain.ErrReasonTooLong,
		domain.ErrAdminNotesTooLong,
		domain.ErrRejectionReasonRequired,
		domain.ErrInvalidUrgencyLevel,
		domain.ErrNegativeEstimatedCost,
		domain.ErrVendorRequired,
		domain.ErrDeliveryDateRequired,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
