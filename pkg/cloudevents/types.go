package cloudevents

import (
	"time"
)

// EventType constants for pharmacy domain events
const (
	// Stock request events
	StockRequestCreated       = "pharmacy.stock-request.created"
	StockRequestStatusChanged = "pharmacy.stock-request.status-changed"
	StockRequestReceived      = "pharmacy.stock-request.received"

	// Inventory events
	StockCredited = "pharmacy.inventory.stock-credited"
)

// Source constants for event sources
const (
	SourceStockRequest = "/pharmacy/stock-request-service"
)

// PharmacyCloudEvent represents a CloudEvents v1.0 compliant event
type PharmacyCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Pharmacy-specific extensions
	CorrelationID string `json:"pharmacycorrelationid,omitempty"`
}

// StockRequestCreatedData is the payload for StockRequestCreated
type StockRequestCreatedData struct {
	RequestID         string `json:"requestId"`
	RequestNumber     string `json:"requestNumber"`
	ItemID            string `json:"itemId"`
	RequestedQuantity int    `json:"requestedQuantity"`
	UrgencyLevel      string `json:"urgencyLevel"`
	RequestedBy       string `json:"requestedBy"`
	IsUrgent          bool   `json:"isUrgent"`
}

// StockRequestStatusChangedData is the payload for StockRequestStatusChanged
type StockRequestStatusChangedData struct {
	RequestID     string `json:"requestId"`
	RequestNumber string `json:"requestNumber"`
	FromStatus    string `json:"fromStatus"`
	ToStatus      string `json:"toStatus"`
	ActorID       string `json:"actorId,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// StockRequestReceivedData is the payload for StockRequestReceived
type StockRequestReceivedData struct {
	RequestID        string `json:"requestId"`
	RequestNumber    string `json:"requestNumber"`
	ItemID           string `json:"itemId"`
	ReceivedQuantity int    `json:"receivedQuantity"`
	InvoiceNumber    string `json:"invoiceNumber,omitempty"`
}

// StockCreditedData is the payload for StockCredited
type StockCreditedData struct {
	ItemID    string `json:"itemId"`
	Quantity  int    `json:"quantity"`
	RequestID string `json:"requestId"`
}
