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

const inventoryCollection = "inventory_items"

// InventoryRepository implements domain.InventoryLedger on MongoDB. Stock
// mutation is a server-side $inc, never an application-level read-modify-write.
type InventoryRepository struct {
	collection *mongodb.GuardedCollection
}

// NewInventoryRepository creates a new MongoDB inventory repository
func NewInventoryRepository(client *mongodb.GuardedClient) *InventoryRepository {
	return &InventoryRepository{
		collection: client.Collection(inventoryCollection),
	}
}

// GetItem retrieves an item with its on-hand stock and reorder threshold
func (r *InventoryRepository) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.collection.FindOne(ctx, bson.M{"_id": itemID}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory item: %w", err)
	}
	return &item, nil
}

// IncrementStock atomically adds amount to the item's stock and returns the
// new quantity
func (r *InventoryRepository) IncrementStock(ctx context.Context, itemID string, amount int) (int, error) {
	update := bson.M{"$inc": bson.M{"currentStock": amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item domain.InventoryItem
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": itemID}, update, opts).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return 0, domain.ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment stock for %s: %w", itemID, err)
	}

	return item.CurrentStock, nil
}
