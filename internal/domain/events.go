package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StockRequestCreatedEvent is emitted when a new request enters the workflow
type StockRequestCreatedEvent struct {
	RequestID         string    `json:"requestId"`
	RequestNumber     string    `json:"requestNumber"`
	ItemID            string    `json:"itemId"`
	RequestedQuantity int       `json:"requestedQuantity"`
	UrgencyLevel      string    `json:"urgencyLevel"`
	RequestedBy       string    `json:"requestedBy"`
	IsUrgent          bool      `json:"isUrgent"`
	OccurredAt_       time.Time `json:"occurredAt"`
}

func (e *StockRequestCreatedEvent) EventType() string     { return "pharmacy.stock-request.created" }
func (e *StockRequestCreatedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// RequestStatusChangedEvent is emitted on every status transition
type RequestStatusChangedEvent struct {
	RequestID     string    `json:"requestId"`
	RequestNumber string    `json:"requestNumber"`
	FromStatus    string    `json:"fromStatus"`
	ToStatus      string    `json:"toStatus"`
	ActorID       string    `json:"actorId,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	OccurredAt_   time.Time `json:"occurredAt"`
}

func (e *RequestStatusChangedEvent) EventType() string {
	return "pharmacy.stock-request.status-changed"
}
func (e *RequestStatusChangedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// StockRequestReceivedEvent is emitted when delivery is confirmed and stock credited
type StockRequestReceivedEvent struct {
	RequestID        string    `json:"requestId"`
	RequestNumber    string    `json:"requestNumber"`
	ItemID           string    `json:"itemId"`
	ReceivedQuantity int       `json:"receivedQuantity"`
	InvoiceNumber    string    `json:"invoiceNumber,omitempty"`
	OccurredAt_      time.Time `json:"occurredAt"`
}

func (e *StockRequestReceivedEvent) EventType() string     { return "pharmacy.stock-request.received" }
func (e *StockRequestReceivedEvent) OccurredAt() time.Time { return e.OccurredAt_ }
