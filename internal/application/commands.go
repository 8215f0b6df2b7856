package application

import "time"

// CreateRequestCommand represents a worker's replenishment request submission
type CreateRequestCommand struct {
	ItemID            string   `json:"itemId" binding:"required"`
	RequestedQuantity int      `json:"requestedQuantity" binding:"required,min=1"`
	UrgencyLevel      string   `json:"urgencyLevel" binding:"omitempty,urgency_level"`
	Reason            string   `json:"reason" binding:"required,max=500"`
	PreferredVendorID string   `json:"preferredVendorId"`
	EstimatedCost     *float64 `json:"estimatedCost" binding:"omitempty,gte=0"`
}

// BulkCreateCommand represents a batch of replenishment submissions
type BulkCreateCommand struct {
	Requests []CreateRequestCommand `json:"requests" binding:"required,min=1,max=50,dive"`
}

// ApproveCommand represents an owner's approval. Vendor details are optional
// here; dispatch validates its own inputs regardless.
type ApproveCommand struct {
	AdminNotes           string     `json:"adminNotes" binding:"omitempty,max=1000"`
	VendorID             string     `json:"vendorId"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate"`
}

// RejectCommand represents an owner's rejection with a mandatory reason
type RejectCommand struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// DispatchCommand represents dispatching an approved request to a vendor
type DispatchCommand struct {
	VendorID             string     `json:"vendorId" binding:"required"`
	ExpectedDeliveryDate time.Time  `json:"expectedDeliveryDate" binding:"required"`
	OrderDate            *time.Time `json:"orderDate"`
	Notes                string     `json:"notes" binding:"omitempty,max=1000"`
}

// ReceiveCommand represents receipt confirmation of an ordered request
type ReceiveCommand struct {
	ReceivedQuantity   int        `json:"receivedQuantity" binding:"omitempty,min=1"`
	InvoiceNumber      string     `json:"invoiceNumber" binding:"omitempty,invoice_number"`
	ActualDeliveryDate *time.Time `json:"actualDeliveryDate"`
	ActualCost         *float64   `json:"actualCost" binding:"omitempty,gte=0"`
}
