package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RequestStatus represents the status of a stock replenishment request
type RequestStatus string

const (
	StatusPending     RequestStatus = "Pending"
	StatusUnderReview RequestStatus = "UnderReview"
	StatusApproved    RequestStatus = "Approved"
	StatusRejected    RequestStatus = "Rejected"
	StatusOrdered     RequestStatus = "Ordered"
	StatusReceived    RequestStatus = "Received"
	StatusCancelled   RequestStatus = "Cancelled"
)

// IsValid checks if the status is valid
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected,
		StatusOrdered, StatusReceived, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status accepts no further transitions
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusReceived, StatusCancelled:
		return true
	default:
		return false
	}
}

// NonTerminalStatuses returns the statuses considered in-flight. A request in
// one of these statuses blocks new requests for the same item.
func NonTerminalStatuses() []RequestStatus {
	return []RequestStatus{StatusPending, StatusUnderReview, StatusApproved, StatusOrdered}
}

// validTransitions is the single transition table consulted for every status move
var validTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected, StatusCancelled},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:    {StatusOrdered, StatusCancelled},
	StatusOrdered:     {StatusReceived, StatusCancelled},
	StatusRejected:    {},
	StatusReceived:    {},
	StatusCancelled:   {},
}

// CanTransitionTo checks if the status can transition to another status
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	for _, allowed := range validTransitions[s] {
		if target == allowed {
			return true
		}
	}
	return false
}

// UrgencyLevel represents how urgently the replenishment is needed
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "Low"
	UrgencyMedium   UrgencyLevel = "Medium"
	UrgencyHigh     UrgencyLevel = "High"
	UrgencyCritical UrgencyLevel = "Critical"
)

// IsValid checks if the urgency level is valid
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	default:
		return false
	}
}

// Length limits count runes, matching the max= tags on the API commands.
const (
	maxReasonLength     = 500
	maxAdminNotesLength = 1000
)

// OrderDetails holds vendor order metadata, populated progressively as the
// request moves through Ordered and Received.
type OrderDetails struct {
	VendorID             string     `bson:"vendorId,omitempty" json:"vendorId,omitempty"`
	OrderDate            *time.Time `bson:"orderDate,omitempty" json:"orderDate,omitempty"`
	ExpectedDeliveryDate *time.Time `bson:"expectedDeliveryDate,omitempty" json:"expectedDeliveryDate,omitempty"`
	ActualDeliveryDate   *time.Time `bson:"actualDeliveryDate,omitempty" json:"actualDeliveryDate,omitempty"`
	InvoiceNumber        string     `bson:"invoiceNumber,omitempty" json:"invoiceNumber,omitempty"`
	TotalCost            *float64   `bson:"totalCost,omitempty" json:"totalCost,omitempty"`
	ReceivedQuantity     *int       `bson:"receivedQuantity,omitempty" json:"receivedQuantity,omitempty"`
	Notes                string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// StockRequest is the aggregate root for the replenishment workflow
type StockRequest struct {
	ID                   string        `bson:"_id" json:"id"`
	RequestNumber        string        `bson:"requestNumber" json:"requestNumber"`
	ItemID               string        `bson:"itemId" json:"itemId"`
	RequestedBy          string        `bson:"requestedBy" json:"requestedBy"`
	CurrentStockSnapshot int           `bson:"currentStockSnapshot" json:"currentStockSnapshot"`
	RequestedQuantity    int           `bson:"requestedQuantity" json:"requestedQuantity"`
	UrgencyLevel         UrgencyLevel  `bson:"urgencyLevel" json:"urgencyLevel"`
	Reason               string        `bson:"reason" json:"reason"`
	PreferredVendorID    string        `bson:"preferredVendorId,omitempty" json:"preferredVendorId,omitempty"`
	EstimatedCost        *float64      `bson:"estimatedCost,omitempty" json:"estimatedCost,omitempty"`
	Status               RequestStatus `bson:"status" json:"status"`
	ReviewedBy           string        `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt           *time.Time    `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	AdminNotes           string        `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	OrderDetails         *OrderDetails `bson:"orderDetails,omitempty" json:"orderDetails,omitempty"`
	IsUrgent             bool          `bson:"isUrgent" json:"isUrgent"`
	StockCredited        bool          `bson:"stockCredited" json:"stockCredited"`
	CreatedAt            time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt" json:"updatedAt"`
	DomainEvents         []DomainEvent `bson:"-" json:"-"`
}

// NewStockRequestParams carries the inputs for creating a stock request.
// The request number is not part of the params: the store assigns it via
// AssignRequestNumber when the insert commits, so failed inserts never
// consume a number.
type NewStockRequestParams struct {
	ItemID               string
	RequestedBy          string
	RequestedQuantity    int
	UrgencyLevel         UrgencyLevel
	Reason               string
	PreferredVendorID    string
	EstimatedCost        *float64
	CurrentStockSnapshot int
	ReorderThreshold     int
}

// NewStockRequest creates a new StockRequest aggregate in Pending status
func NewStockRequest(p NewStockRequestParams) (*StockRequest, error) {
	if p.RequestedQuantity < 1 {
		return nil, ErrInvalidQuantity
	}

	reason := strings.TrimSpace(p.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, ErrReasonTooLong
	}

	urgency := p.UrgencyLevel
	if urgency == "" {
		urgency = UrgencyMedium
	}
	if !urgency.IsValid() {
		return nil, ErrInvalidUrgencyLevel
	}

	if p.EstimatedCost != nil && *p.EstimatedCost < 0 {
		return nil, ErrNegativeEstimatedCost
	}

	ledgerSnapshot := InventoryItem{
		CurrentStock:     p.CurrentStockSnapshot,
		ReorderThreshold: p.ReorderThreshold,
	}

	now := time.Now().UTC()
	request := &StockRequest{
		ID:                   "REQ-" + uuid.New().String(),
		ItemID:               p.ItemID,
		RequestedBy:          p.RequestedBy,
		CurrentStockSnapshot: p.CurrentStockSnapshot,
		RequestedQuantity:    p.RequestedQuantity,
		UrgencyLevel:         urgency,
		Reason:               reason,
		PreferredVendorID:    p.PreferredVendorID,
		EstimatedCost:        p.EstimatedCost,
		Status:               StatusPending,
		IsUrgent:             urgency == UrgencyCritical || ledgerSnapshot.IsUnderStocked(),
		CreatedAt:            now,
		UpdatedAt:            now,
		DomainEvents:         make([]DomainEvent, 0),
	}

	request.addDomainEvent(&StockRequestCreatedEvent{
		RequestID:         request.ID,
		RequestNumber:     request.RequestNumber,
		ItemID:            request.ItemID,
		RequestedQuantity: request.RequestedQuantity,
		UrgencyLevel:      string(urgency),
		RequestedBy:       request.RequestedBy,
		IsUrgent:          request.IsUrgent,
		OccurredAt_:       now,
	})

	return request, nil
}

// AssignRequestNumber records the number reserved for this request and
// threads it through the pending creation event. The store calls this once,
// inside the same transaction as the insert.
func (r *StockRequest) AssignRequestNumber(number string) {
	r.RequestNumber = number
	for _, event := range r.DomainEvents {
		if created, ok := event.(*StockRequestCreatedEvent); ok {
			created.RequestNumber = number
		}
	}
}

// transition moves the request into target after consulting the transition table
func (r *StockRequest) transition(target RequestStatus, actorID, notes string) error {
	if !r.Status.CanTransitionTo(target) {
		return NewInvalidTransitionError(r.Status)
	}

	now := time.Now().UTC()
	from := r.Status
	r.Status = target
	r.UpdatedAt = now

	r.addDomainEvent(&RequestStatusChangedEvent{
		RequestID:     r.ID,
		RequestNumber: r.RequestNumber,
		FromStatus:    string(from),
		ToStatus:      string(target),
		ActorID:       actorID,
		Notes:         notes,
		OccurredAt_:   now,
	})

	return nil
}

// BeginReview moves a pending request into UnderReview
func (r *StockRequest) BeginReview(reviewerID string) error {
	if err := r.transition(StatusUnderReview, reviewerID, ""); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.ReviewedBy = reviewerID
	r.ReviewedAt = &now

	return nil
}

// Approve approves the request. An optional vendor and expected delivery date
// may be recorded ahead of dispatch; dispatch still validates its own inputs.
func (r *StockRequest) Approve(reviewerID, adminNotes string, vendorID string, expectedDelivery *time.Time) error {
	if utf8.RuneCountInString(adminNotes) > maxAdminNotesLength {
		return ErrAdminNotesTooLong
	}

	if err := r.transition(StatusApproved, reviewerID, adminNotes); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.ReviewedBy = reviewerID
	r.ReviewedAt = &now
	if adminNotes != "" {
		r.AdminNotes = adminNotes
	}

	if vendorID != "" || expectedDelivery != nil {
		if r.OrderDetails == nil {
			r.OrderDetails = &OrderDetails{}
		}
		if vendorID != "" {
			r.OrderDetails.VendorID = vendorID
		}
		if expectedDelivery != nil {
			r.OrderDetails.ExpectedDeliveryDate = expectedDelivery
		}
	}

	return nil
}

// Reject rejects the request with a mandatory reason
func (r *StockRequest) Reject(reviewerID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	if utf8.RuneCountInString(reason) > maxAdminNotesLength {
		return ErrAdminNotesTooLong
	}

	if err := r.transition(StatusRejected, reviewerID, reason); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.ReviewedBy = reviewerID
	r.ReviewedAt = &now
	r.AdminNotes = reason

	return nil
}

// DispatchToVendor moves an approved request into Ordered, attaching vendor
// order metadata. Total cost is the explicit estimate when present, otherwise
// unit price times requested quantity.
func (r *StockRequest) DispatchToVendor(vendorID string, expectedDelivery time.Time, orderDate *time.Time, notes string, unitPrice float64) error {
	if vendorID == "" {
		return ErrVendorRequired
	}
	if expectedDelivery.IsZero() {
		return ErrDeliveryDateRequired
	}

	if err := r.transition(StatusOrdered, "", notes); err != nil {
		return err
	}

	now := time.Now().UTC()
	placed := now
	if orderDate != nil {
		placed = *orderDate
	}

	totalCost := unitPrice * float64(r.RequestedQuantity)
	if r.EstimatedCost != nil {
		totalCost = *r.EstimatedCost
	}

	if r.OrderDetails == nil {
		r.OrderDetails = &OrderDetails{}
	}
	r.OrderDetails.VendorID = vendorID
	r.OrderDetails.OrderDate = &placed
	r.OrderDetails.ExpectedDeliveryDate = &expectedDelivery
	r.OrderDetails.TotalCost = &totalCost
	if notes != "" {
		r.OrderDetails.Notes = notes
	}

	return nil
}

// MarkReceived confirms physical receipt of an ordered request. Received
// quantity defaults to the requested quantity when not supplied. The caller is
// responsible for crediting inventory atomically with the status write.
func (r *StockRequest) MarkReceived(receivedQuantity int, invoiceNumber string, actualDelivery *time.Time, actualCost *float64) error {
	if receivedQuantity < 0 {
		return ErrInvalidReceivedQuantity
	}
	if receivedQuantity == 0 {
		receivedQuantity = r.RequestedQuantity
	}

	if err := r.transition(StatusReceived, "", ""); err != nil {
		return err
	}

	now := time.Now().UTC()
	delivered := now
	if actualDelivery != nil {
		delivered = *actualDelivery
	}

	if r.OrderDetails == nil {
		r.OrderDetails = &OrderDetails{}
	}
	r.OrderDetails.ActualDeliveryDate = &delivered
	r.OrderDetails.ReceivedQuantity = &receivedQuantity
	if invoiceNumber != "" {
		r.OrderDetails.InvoiceNumber = invoiceNumber
	}
	if actualCost != nil {
		r.OrderDetails.TotalCost = actualCost
	}

	r.StockCredited = true

	r.addDomainEvent(&StockRequestReceivedEvent{
		RequestID:        r.ID,
		RequestNumber:    r.RequestNumber,
		ItemID:           r.ItemID,
		ReceivedQuantity: receivedQuantity,
		InvoiceNumber:    invoiceNumber,
		OccurredAt_:      now,
	})

	return nil
}

// Cancel cancels the request from any non-terminal status. No stock reversal
// is needed since stock is only credited at receipt.
func (r *StockRequest) Cancel(actorID string) error {
	return r.transition(StatusCancelled, actorID, "")
}

// ReceivedQuantity returns the quantity credited at receipt, or zero if the
// request has not been received.
func (r *StockRequest) ReceivedQuantity() int {
	if r.OrderDetails == nil || r.OrderDetails.ReceivedQuantity == nil {
		return 0
	}
	return *r.OrderDetails.ReceivedQuantity
}

// addDomainEvent adds a domain event
func (r *StockRequest) addDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (r *StockRequest) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}

// ClearDomainEvents clears all domain events
func (r *StockRequest) ClearDomainEvents() {
	r.DomainEvents = make([]DomainEvent, 0)
}
