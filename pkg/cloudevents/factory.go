package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
)

// EventFactory creates CloudEvents for pharmacy domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new PharmacyCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *PharmacyCloudEvent {
	event := &PharmacyCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	if v := ctx.Value(logging.CorrelationIDKey); v != nil {
		if id, ok := v.(string); ok {
			event.CorrelationID = id
		}
	}

	return event
}

// CreateStockRequestCreatedEvent creates a StockRequestCreated event
func (f *EventFactory) CreateStockRequestCreatedEvent(
	ctx context.Context,
	requestID string,
	requestNumber string,
	itemID string,
	requestedQuantity int,
	urgencyLevel string,
	requestedBy string,
	isUrgent bool,
) *PharmacyCloudEvent {
	data := StockRequestCreatedData{
		RequestID:         requestID,
		RequestNumber:     requestNumber,
		ItemID:            itemID,
		RequestedQuantity: requestedQuantity,
		UrgencyLevel:      urgencyLevel,
		RequestedBy:       requestedBy,
		IsUrgent:          isUrgent,
	}
	return f.CreateEvent(ctx, StockRequestCreated, "stock-request/"+requestID, data)
}

// CreateStatusChangedEvent creates a StockRequestStatusChanged event
func (f *EventFactory) CreateStatusChangedEvent(
	ctx context.Context,
	requestID string,
	requestNumber string,
	fromStatus string,
	toStatus string,
	actorID string,
	notes string,
) *PharmacyCloudEvent {
	data := StockRequestStatusChangedData{
		RequestID:     requestID,
		RequestNumber: requestNumber,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		ActorID:       actorID,
		Notes:         notes,
	}
	return f.CreateEvent(ctx, StockRequestStatusChanged, "stock-request/"+requestID, data)
}

// CreateStockRequestReceivedEvent creates a StockRequestReceived event
func (f *EventFactory) CreateStockRequestReceivedEvent(
	ctx context.Context,
	requestID string,
	requestNumber string,
	itemID string,
	receivedQuantity int,
	invoiceNumber string,
) *PharmacyCloudEvent {
	data := StockRequestReceivedData{
		RequestID:        requestID,
		RequestNumber:    requestNumber,
		ItemID:           itemID,
		ReceivedQuantity: receivedQuantity,
		InvoiceNumber:    invoiceNumber,
	}
	return f.CreateEvent(ctx, StockRequestReceived, "stock-request/"+requestID, data)
}

// CreateStockCreditedEvent creates a StockCredited event
func (f *EventFactory) CreateStockCreditedEvent(
	ctx context.Context,
	itemID string,
	quantity int,
	requestID string,
) *PharmacyCloudEvent {
	data := StockCreditedData{
		ItemID:    itemID,
		Quantity:  quantity,
		RequestID: requestID,
	}
	return f.CreateEvent(ctx, StockCredited, "inventory/"+itemID, data)
}
