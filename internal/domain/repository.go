package domain

import (
	"context"
	"time"
)

// StockRequestRepository defines the interface for stock request persistence
type StockRequestRepository interface {
	// Create persists a new request. The duplicate guard is enforced
	// atomically with the insert; a conflicting in-flight request for the
	// same item yields ErrDuplicateRequest.
	Create(ctx context.Context, request *StockRequest) error

	// FindByID retrieves a request by its ID
	FindByID(ctx context.Context, requestID string) (*StockRequest, error)

	// FindByRequestNumber retrieves a request by its human-readable number
	FindByRequestNumber(ctx context.Context, requestNumber string) (*StockRequest, error)

	// List retrieves requests matching the filter, newest first, with total count
	List(ctx context.Context, filter RequestFilter, pagination Pagination) ([]*StockRequest, int64, error)

	// FindRecent retrieves the most recently created requests
	FindRecent(ctx context.Context, limit int) ([]*StockRequest, error)

	// UpdateTransition persists a status transition using a conditional write
	// pinned to fromStatus. If the stored status no longer matches,
	// ErrStaleRequest is returned and no state changes.
	UpdateTransition(ctx context.Context, request *StockRequest, fromStatus RequestStatus) error

	// Receive persists the Received transition and credits inventory stock
	// as a single atomic unit. The conditional status write, the ledger
	// increment and the outbox append all commit or all abort together.
	Receive(ctx context.Context, request *StockRequest, creditQuantity int) (newStock int, err error)

	// Stats aggregates counts by status and urgency plus the estimated cost
	// tied up in non-terminal requests. An empty collection yields zeroes.
	Stats(ctx context.Context) (*RequestStats, error)
}

// RequestNumberGenerator produces the daily request number sequence. The
// store consumes it when inserting a request, so a failed insert never
// leaves a gap in the sequence.
type RequestNumberGenerator interface {
	// Next returns the next request number for the given creation time,
	// formatted SR-<YYYYMMDD>-<seq>. Collision-free under concurrent callers.
	Next(ctx context.Context, at time.Time) (string, error)
}

// RequestFilter represents filter options for querying requests
type RequestFilter struct {
	Status      *RequestStatus
	Urgency     *UrgencyLevel
	RequestedBy string
	Search      string
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PageSize: 20}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// RequestStats holds the analytics projection over persisted requests
type RequestStats struct {
	CountsByStatus      map[string]int64 `json:"countsByStatus"`
	CountsByUrgency     map[string]int64 `json:"countsByUrgency"`
	EstimatedCostAtRisk float64          `json:"estimatedCostAtRisk"`
}
