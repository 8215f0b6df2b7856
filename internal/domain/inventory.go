package domain

import "context"

// InventoryItem is the ledger's view of a sellable item
type InventoryItem struct {
	ID               string  `bson:"_id" json:"id"`
	Name             string  `bson:"name" json:"name"`
	Category         string  `bson:"category,omitempty" json:"category,omitempty"`
	CurrentStock     int     `bson:"currentStock" json:"currentStock"`
	ReorderThreshold int     `bson:"reorderThreshold" json:"reorderThreshold"`
	UnitPrice        float64 `bson:"unitPrice" json:"unitPrice"`
}

// IsUnderStocked reports whether on-hand stock is at or below the reorder threshold
func (i *InventoryItem) IsUnderStocked() bool {
	return i.CurrentStock <= i.ReorderThreshold
}

// InventoryLedger exposes the inventory operations the workflow consumes.
// Stock increments must be atomic adds, never application-level read-modify-write.
type InventoryLedger interface {
	// GetItem retrieves an item with its on-hand stock and reorder threshold
	GetItem(ctx context.Context, itemID string) (*InventoryItem, error)

	// IncrementStock atomically adds amount to the item's stock and returns
	// the new quantity
	IncrementStock(ctx context.Context, itemID string, amount int) (int, error)
}
