package cloudevents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
)

func TestCreateEvent(t *testing.T) {
	factory := NewEventFactory(SourceStockRequest)
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-123")

	event := factory.CreateEvent(ctx, StockRequestCreated, "stock-request/REQ-1", map[string]string{"k": "v"})

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, StockRequestCreated, event.Type)
	assert.Equal(t, SourceStockRequest, event.Source)
	assert.Equal(t, "stock-request/REQ-1", event.Subject)
	assert.Equal(t, "application/json", event.DataContentType)
	assert.Equal(t, "corr-123", event.CorrelationID)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Time.IsZero())
}

func TestTypedEventConstructors(t *testing.T) {
	factory := NewEventFactory(SourceStockRequest)
	ctx := context.Background()

	t.Run("Created", func(t *testing.T) {
		event := factory.CreateStockRequestCreatedEvent(ctx,
			"REQ-1", "SR-20260829-001", "ITEM-001", 25, "High", "worker-1", true)

		assert.Equal(t, StockRequestCreated, event.Type)
		assert.Equal(t, "stock-request/REQ-1", event.Subject)

		data, ok := event.Data.(StockRequestCreatedData)
		require.True(t, ok)
		assert.Equal(t, "SR-20260829-001", data.RequestNumber)
		assert.Equal(t, 25, data.RequestedQuantity)
		assert.True(t, data.IsUrgent)
	})

	t.Run("Status changed", func(t *testing.T) {
		event := factory.CreateStatusChangedEvent(ctx,
			"REQ-1", "SR-20260829-001", "Pending", "Approved", "owner-1", "go ahead")

		assert.Equal(t, StockRequestStatusChanged, event.Type)

		data, ok := event.Data.(StockRequestStatusChangedData)
		require.True(t, ok)
		assert.Equal(t, "Pending", data.FromStatus)
		assert.Equal(t, "Approved", data.ToStatus)
		assert.Equal(t, "owner-1", data.ActorID)
	})

	t.Run("Received", func(t *testing.T) {
		event := factory.CreateStockRequestReceivedEvent(ctx,
			"REQ-1", "SR-20260829-001", "ITEM-001", 45, "INV-2026-014")

		assert.Equal(t, StockRequestReceived, event.Type)

		data, ok := event.Data.(StockRequestReceivedData)
		require.True(t, ok)
		assert.Equal(t, 45, data.ReceivedQuantity)
		assert.Equal(t, "INV-2026-014", data.InvoiceNumber)
	})

	t.Run("Stock credited", func(t *testing.T) {
		event := factory.CreateStockCreditedEvent(ctx, "ITEM-001", 45, "REQ-1")

		assert.Equal(t, StockCredited, event.Type)
		assert.Equal(t, "inventory/ITEM-001", event.Subject)

		data, ok := event.Data.(StockCreditedData)
		require.True(t, ok)
		assert.Equal(t, 45, data.Quantity)
	})
}
