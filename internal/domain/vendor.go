package domain

import "context"

// Vendor represents an entry in the vendor directory, read-only to this service
type Vendor struct {
	ID           string `bson:"_id" json:"id"`
	Name         string `bson:"name" json:"name"`
	Category     string `bson:"category,omitempty" json:"category,omitempty"`
	ContactName  string `bson:"contactName,omitempty" json:"contactName,omitempty"`
	ContactPhone string `bson:"contactPhone,omitempty" json:"contactPhone,omitempty"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	Address      string `bson:"address,omitempty" json:"address,omitempty"`
	IsActive     bool   `bson:"isActive" json:"isActive"`
}

// VendorRepository defines read access to the vendor directory
type VendorRepository interface {
	// FindByID retrieves a vendor by ID
	FindByID(ctx context.Context, vendorID string) (*Vendor, error)

	// FindAll retrieves vendors, optionally limited to active ones
	FindAll(ctx context.Context, activeOnly bool) ([]*Vendor, error)
}
