package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	"github.com/pharmacy-platform/stock-request-service/pkg/mongodb"
)

const vendorCollection = "vendors"

// VendorRepository implements read access to the vendor directory
type VendorRepository struct {
	collection *mongodb.GuardedCollection
}

// NewVendorRepository creates a new MongoDB vendor repository
func NewVendorRepository(client *mongodb.GuardedClient) *VendorRepository {
	return &VendorRepository{
		collection: client.Collection(vendorCollection),
	}
}

// FindByID retrieves a vendor by ID
func (r *VendorRepository) FindByID(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := r.collection.FindOne(ctx, bson.M{"_id": vendorID}).Decode(&vendor)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrVendorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}
	return &vendor, nil
}

// FindAll retrieves vendors, optionally limited to active ones
func (r *VendorRepository) FindAll(ctx context.Context, activeOnly bool) ([]*domain.Vendor, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}

	opts := options.Find().SetSort(mongodb.SortAscending("name"))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer cursor.Close(ctx)

	var vendors []*domain.Vendor
	if err := cursor.All(ctx, &vendors); err != nil {
		return nil, fmt.Errorf("failed to decode vendors: %w", err)
	}

	return vendors, nil
}
