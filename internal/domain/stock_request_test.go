package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T) *StockRequest {
	t.Helper()
	request, err := NewStockRequest(NewStockRequestParams{
		ItemID:               "ITEM-001",
		RequestedBy:          "worker-1",
		RequestedQuantity:    50,
		UrgencyLevel:         UrgencyMedium,
		Reason:               "Running low before the weekend",
		CurrentStockSnapshot: 40,
		ReorderThreshold:     10,
	})
	require.NoError(t, err)
	return request
}

// TestNewStockRequest tests request creation and validation
func TestNewStockRequest(t *testing.T) {
	cost := 125.50
	negativeCost := -1.0

	tests := []struct {
		name        string
		params      NewStockRequestParams
		expectError error
	}{
		{
			name: "Valid request",
			params: NewStockRequestParams{
				ItemID:            "ITEM-001",
				RequestedBy:       "worker-1",
				RequestedQuantity: 10,
				UrgencyLevel:      UrgencyHigh,
				Reason:            "Shelf empty",
				EstimatedCost:     &cost,
			},
		},
		{
			name: "Quantity below one",
			params: NewStockRequestParams{
				ItemID:            "ITEM-001",
				RequestedBy:       "worker-1",
				RequestedQuantity: 0,
				Reason:            "Shelf empty",
			},
			expectError: ErrInvalidQuantity,
		},
		{
			name: "Missing reason",
			params: NewStockRequestParams{
				ItemID:            "ITEM-001",
				RequestedBy:       "worker-1",
				RequestedQuantity: 10,
				Reason:            "   ",
			},
			expectError: ErrReasonRequired,
		},
		{
			name: "Reason too long",
			params: NewStockRequestParams{
				ItemID:            "ITEM-001",
				RequestedBy:       "worker-1",
				RequestedQuantity: 10,
				Reason:            strings.Repeat("x", 501),
			},
			expectError: ErrReasonTooLong,
		},
		{
			name: "Invalid urgency level",
			params: NewStockRequestParams{
				ItemID:            "ITEM-001",
				RequestedBy:       "worker-1",
				RequestedQuantity: 10,
				UrgencyLevel:      UrgencyLevel("extreme"),
				Reason:            "Shelf empty",
			},
			expectError: ErrInvalidUrgencyLevel,
		},
		{
			name: "Negative estimated cost",
			params: NewStockRequestParams{
				ItemID:            "ITEM-001",
				RequestedBy:       "worker-1",
				RequestedQuantity: 10,
				Reason:            "Shelf empty",
				EstimatedCost:     &negativeCost,
			},
			expectError: ErrNegativeEstimatedCost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := NewStockRequest(tt.params)

			if tt.expectError != nil {
				assert.Equal(t, tt.expectError, err)
				assert.Nil(t, request)
				return
			}

			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(request.ID, "REQ-"))
			assert.Equal(t, StatusPending, request.Status)
			assert.False(t, request.StockCredited)
			assert.NotZero(t, request.CreatedAt)
			require.Len(t, request.GetDomainEvents(), 1)
			assert.Equal(t, "pharmacy.stock-request.created", request.GetDomainEvents()[0].EventType())
		})
	}
}

// TestNewStockRequestDefaultsUrgency tests the Medium default
func TestNewStockRequestDefaultsUrgency(t *testing.T) {
	request, err := NewStockRequest(NewStockRequestParams{
		ItemID:               "ITEM-001",
		RequestedBy:          "worker-1",
		RequestedQuantity:    5,
		Reason:               "Restock",
		CurrentStockSnapshot: 100,
		ReorderThreshold:     10,
	})

	require.NoError(t, err)
	assert.Equal(t, UrgencyMedium, request.UrgencyLevel)
	assert.False(t, request.IsUrgent)
}

// TestIsUrgentDerivation tests the urgency flag derivation
func TestIsUrgentDerivation(t *testing.T) {
	tests := []struct {
		name      string
		urgency   UrgencyLevel
		stock     int
		threshold int
		expect    bool
	}{
		{"Stock at threshold", UrgencyMedium, 2, 10, true},
		{"Stock above threshold", UrgencyMedium, 50, 10, false},
		{"Critical urgency regardless of stock", UrgencyCritical, 500, 10, true},
		{"Stock equal to threshold", UrgencyLow, 10, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := NewStockRequest(NewStockRequestParams{
				ItemID:               "ITEM-001",
				RequestedBy:          "worker-1",
				RequestedQuantity:    5,
				UrgencyLevel:         tt.urgency,
				Reason:               "Restock",
				CurrentStockSnapshot: tt.stock,
				ReorderThreshold:     tt.threshold,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expect, request.IsUrgent)
		})
	}
}

// TestStatusTransitionTable tests the transition table exhaustively
func TestStatusTransitionTable(t *testing.T) {
	allStatuses := []RequestStatus{
		StatusPending, StatusUnderReview, StatusApproved, StatusRejected,
		StatusOrdered, StatusReceived, StatusCancelled,
	}

	allowed := map[RequestStatus]map[RequestStatus]bool{
		StatusPending:     {StatusUnderReview: true, StatusApproved: true, StatusRejected: true, StatusCancelled: true},
		StatusUnderReview: {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
		StatusApproved:    {StatusOrdered: true, StatusCancelled: true},
		StatusOrdered:     {StatusReceived: true, StatusCancelled: true},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			expect := allowed[from][to]
			assert.Equal(t, expect, from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

// TestTerminalStatuses tests terminal status detection
func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusReceived.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusUnderReview.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, StatusOrdered.IsTerminal())

	assert.ElementsMatch(t,
		[]RequestStatus{StatusPending, StatusUnderReview, StatusApproved, StatusOrdered},
		NonTerminalStatuses())
}

// TestBeginReview tests moving a request into review
func TestBeginReview(t *testing.T) {
	request := newTestRequest(t)

	err := request.BeginReview("owner-1")
	require.NoError(t, err)

	assert.Equal(t, StatusUnderReview, request.Status)
	assert.Equal(t, "owner-1", request.ReviewedBy)
	require.NotNil(t, request.ReviewedAt)

	// A second review attempt must name the current status
	err = request.BeginReview("owner-2")
	ite, ok := IsInvalidTransition(err)
	require.True(t, ok)
	assert.Equal(t, StatusUnderReview, ite.Current)
}

// TestApprove tests approval from Pending and UnderReview
func TestApprove(t *testing.T) {
	t.Run("From pending", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Approve("owner-1", "go ahead", "", nil)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, request.Status)
		assert.Equal(t, "go ahead", request.AdminNotes)
		assert.Equal(t, "owner-1", request.ReviewedBy)
	})

	t.Run("From under review", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.BeginReview("owner-1"))
		require.NoError(t, request.Approve("owner-1", "", "", nil))
		assert.Equal(t, StatusApproved, request.Status)
	})

	t.Run("With early vendor details", func(t *testing.T) {
		request := newTestRequest(t)
		expected := time.Now().UTC().Add(72 * time.Hour)
		require.NoError(t, request.Approve("owner-1", "", "VEN-001", &expected))
		require.NotNil(t, request.OrderDetails)
		assert.Equal(t, "VEN-001", request.OrderDetails.VendorID)
		assert.Equal(t, expected, *request.OrderDetails.ExpectedDeliveryDate)
	})

	t.Run("Notes too long", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Approve("owner-1", strings.Repeat("x", 1001), "", nil)
		assert.Equal(t, ErrAdminNotesTooLong, err)
		assert.Equal(t, StatusPending, request.Status)
	})

	t.Run("From ordered", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve("owner-1", "", "", nil))
		require.NoError(t, request.DispatchToVendor("VEN-001", time.Now().Add(time.Hour), nil, "", 2.5))

		err := request.Approve("owner-2", "", "", nil)
		ite, ok := IsInvalidTransition(err)
		require.True(t, ok)
		assert.Equal(t, StatusOrdered, ite.Current)
	})
}

// TestReject tests rejection and its mandatory reason
func TestReject(t *testing.T) {
	t.Run("Valid rejection", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Reject("owner-1", "over budget this month")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, request.Status)
		assert.Equal(t, "over budget this month", request.AdminNotes)
	})

	t.Run("Empty reason leaves status unchanged", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Reject("owner-1", "  ")
		assert.Equal(t, ErrRejectionReasonRequired, err)
		assert.Equal(t, StatusPending, request.Status)
	})

	t.Run("Terminal request", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Cancel("worker-1"))

		err := request.Reject("owner-1", "too late")
		ite, ok := IsInvalidTransition(err)
		require.True(t, ok)
		assert.Equal(t, StatusCancelled, ite.Current)
	})
}

// TestDispatchToVendor tests the Approved -> Ordered transition
func TestDispatchToVendor(t *testing.T) {
	expected := time.Now().UTC().Add(48 * time.Hour)

	t.Run("Total cost from unit price", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve("owner-1", "", "", nil))

		err := request.DispatchToVendor("VEN-001", expected, nil, "rush order", 3.2)
		require.NoError(t, err)

		assert.Equal(t, StatusOrdered, request.Status)
		require.NotNil(t, request.OrderDetails)
		assert.Equal(t, "VEN-001", request.OrderDetails.VendorID)
		assert.Equal(t, expected, *request.OrderDetails.ExpectedDeliveryDate)
		assert.NotNil(t, request.OrderDetails.OrderDate)
		assert.InDelta(t, 160.0, *request.OrderDetails.TotalCost, 0.001)
		assert.Equal(t, "rush order", request.OrderDetails.Notes)
	})

	t.Run("Explicit estimate takes precedence", func(t *testing.T) {
		cost := 99.0
		request, err := NewStockRequest(NewStockRequestParams{
			ItemID:            "ITEM-002",
			RequestedBy:       "worker-1",
			RequestedQuantity: 50,
			Reason:            "Restock",
			EstimatedCost:     &cost,
		})
		require.NoError(t, err)
		require.NoError(t, request.Approve("owner-1", "", "", nil))

		require.NoError(t, request.DispatchToVendor("VEN-001", expected, nil, "", 3.2))
		assert.Equal(t, 99.0, *request.OrderDetails.TotalCost)
	})

	t.Run("Missing vendor", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve("owner-1", "", "", nil))

		err := request.DispatchToVendor("", expected, nil, "", 1.0)
		assert.Equal(t, ErrVendorRequired, err)
		assert.Equal(t, StatusApproved, request.Status)
	})

	t.Run("Missing delivery date", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve("owner-1", "", "", nil))

		err := request.DispatchToVendor("VEN-001", time.Time{}, nil, "", 1.0)
		assert.Equal(t, ErrDeliveryDateRequired, err)
		assert.Equal(t, StatusApproved, request.Status)
	})

	t.Run("From pending", func(t *testing.T) {
		request := newTestRequest(t)

		err := request.DispatchToVendor("VEN-001", expected, nil, "", 1.0)
		ite, ok := IsInvalidTransition(err)
		require.True(t, ok)
		assert.Equal(t, StatusPending, ite.Current)
	})
}

// TestMarkReceived tests receipt confirmation
func TestMarkReceived(t *testing.T) {
	expected := time.Now().UTC().Add(24 * time.Hour)

	orderedRequest := func(t *testing.T) *StockRequest {
		request := newTestRequest(t)
		require.NoError(t, request.Approve("owner-1", "", "", nil))
		require.NoError(t, request.DispatchToVendor("VEN-001", expected, nil, "", 2.0))
		return request
	}

	t.Run("Explicit quantity", func(t *testing.T) {
		request := orderedRequest(t)

		err := request.MarkReceived(45, "INV-2026-014", nil, nil)
		require.NoError(t, err)

		assert.Equal(t, StatusReceived, request.Status)
		assert.True(t, request.StockCredited)
		assert.Equal(t, 45, request.ReceivedQuantity())
		assert.Equal(t, "INV-2026-014", request.OrderDetails.InvoiceNumber)
		assert.NotNil(t, request.OrderDetails.ActualDeliveryDate)
	})

	t.Run("Quantity defaults to requested", func(t *testing.T) {
		request := orderedRequest(t)

		require.NoError(t, request.MarkReceived(0, "", nil, nil))
		assert.Equal(t, request.RequestedQuantity, request.ReceivedQuantity())
	})

	t.Run("Actual cost overwrites total", func(t *testing.T) {
		request := orderedRequest(t)
		actual := 80.0

		require.NoError(t, request.MarkReceived(50, "", nil, &actual))
		assert.Equal(t, 80.0, *request.OrderDetails.TotalCost)
	})

	t.Run("Negative quantity", func(t *testing.T) {
		request := orderedRequest(t)

		err := request.MarkReceived(-1, "", nil, nil)
		assert.Equal(t, ErrInvalidReceivedQuantity, err)
		assert.Equal(t, StatusOrdered, request.Status)
	})

	t.Run("Double receipt rejected", func(t *testing.T) {
		request := orderedRequest(t)
		require.NoError(t, request.MarkReceived(50, "", nil, nil))

		err := request.MarkReceived(50, "", nil, nil)
		ite, ok := IsInvalidTransition(err)
		require.True(t, ok)
		assert.Equal(t, StatusReceived, ite.Current)
	})

	t.Run("From pending", func(t *testing.T) {
		request := newTestRequest(t)

		err := request.MarkReceived(50, "", nil, nil)
		ite, ok := IsInvalidTransition(err)
		require.True(t, ok)
		assert.Equal(t, StatusPending, ite.Current)
	})
}

// TestCancel tests cancellation from every status
func TestCancel(t *testing.T) {
	expected := time.Now().UTC().Add(24 * time.Hour)

	t.Run("From each non-terminal status", func(t *testing.T) {
		setups := map[string]func(t *testing.T) *StockRequest{
			"Pending": newTestRequest,
			"UnderReview": func(t *testing.T) *StockRequest {
				r := newTestRequest(t)
				require.NoError(t, r.BeginReview("owner-1"))
				return r
			},
			"Approved": func(t *testing.T) *StockRequest {
				r := newTestRequest(t)
				require.NoError(t, r.Approve("owner-1", "", "", nil))
				return r
			},
			"Ordered": func(t *testing.T) *StockRequest {
				r := newTestRequest(t)
				require.NoError(t, r.Approve("owner-1", "", "", nil))
				require.NoError(t, r.DispatchToVendor("VEN-001", expected, nil, "", 1.0))
				return r
			},
		}

		for name, setup := range setups {
			t.Run(name, func(t *testing.T) {
				request := setup(t)
				require.NoError(t, request.Cancel("worker-1"))
				assert.Equal(t, StatusCancelled, request.Status)
				assert.False(t, request.StockCredited)
			})
		}
	})

	t.Run("Terminal statuses immutable", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Reject("owner-1", "not needed"))

		err := request.Cancel("worker-1")
		ite, ok := IsInvalidTransition(err)
		require.True(t, ok)
		assert.Equal(t, StatusRejected, ite.Current)
		assert.Equal(t, StatusRejected, request.Status)
	})
}

// TestDomainEventsOnTransitions tests event accumulation across the lifecycle
func TestDomainEventsOnTransitions(t *testing.T) {
	request := newTestRequest(t)
	require.NoError(t, request.Approve("owner-1", "", "", nil))
	require.NoError(t, request.DispatchToVendor("VEN-001", time.Now().Add(time.Hour), nil, "", 2.0))
	require.NoError(t, request.MarkReceived(50, "INV-1", nil, nil))

	types := make([]string, 0)
	for _, event := range request.GetDomainEvents() {
		types = append(types, event.EventType())
	}

	assert.Equal(t, []string{
		"pharmacy.stock-request.created",
		"pharmacy.stock-request.status-changed",
		"pharmacy.stock-request.status-changed",
		"pharmacy.stock-request.status-changed",
		"pharmacy.stock-request.received",
	}, types)

	request.ClearDomainEvents()
	assert.Empty(t, request.GetDomainEvents())
}

// TestAssignRequestNumber tests that the assigned number threads into the
// pending creation event
func TestAssignRequestNumber(t *testing.T) {
	request := newTestRequest(t)
	assert.Empty(t, request.RequestNumber)

	request.AssignRequestNumber("SR-20260829-014")

	assert.Equal(t, "SR-20260829-014", request.RequestNumber)
	events := request.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*StockRequestCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "SR-20260829-014", created.RequestNumber)
}

// TestLengthLimitsCountRunes tests that multibyte text is measured in
// characters rather than bytes
func TestLengthLimitsCountRunes(t *testing.T) {
	t.Run("Reason at the limit", func(t *testing.T) {
		request, err := NewStockRequest(NewStockRequestParams{
			ItemID:            "ITEM-001",
			RequestedBy:       "worker-1",
			RequestedQuantity: 10,
			Reason:            strings.Repeat("é", 500),
		})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, request.Status)
	})

	t.Run("Reason over the limit", func(t *testing.T) {
		_, err := NewStockRequest(NewStockRequestParams{
			ItemID:            "ITEM-001",
			RequestedBy:       "worker-1",
			RequestedQuantity: 10,
			Reason:            strings.Repeat("é", 501),
		})
		assert.Equal(t, ErrReasonTooLong, err)
	})

	t.Run("Admin notes at the limit", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve("owner-1", strings.Repeat("ü", 1000), "", nil))
		assert.Equal(t, StatusApproved, request.Status)
	})

	t.Run("Admin notes over the limit", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Approve("owner-1", strings.Repeat("ü", 1001), "", nil)
		assert.Equal(t, ErrAdminNotesTooLong, err)
		assert.Equal(t, StatusPending, request.Status)
	})

	t.Run("Rejection reason over the limit", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Reject("owner-1", strings.Repeat("б", 1001))
		assert.Equal(t, ErrAdminNotesTooLong, err)
		assert.Equal(t, StatusPending, request.Status)
	})
}
