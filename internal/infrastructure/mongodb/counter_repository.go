package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacy-platform/stock-request-service/pkg/mongodb"
)

const counterCollection = "request_counters"

// RequestCounterRepository implements domain.RequestNumberGenerator using a
// per-day counter document. The atomic $inc upsert serializes numbering under
// concurrent creators, so suffixes within a day are contiguous from 001.
type RequestCounterRepository struct {
	collection *mongodb.GuardedCollection
}

// NewRequestCounterRepository creates a new counter repository
func NewRequestCounterRepository(client *mongodb.GuardedClient) *RequestCounterRepository {
	return &RequestCounterRepository{
		collection: client.Collection(counterCollection),
	}
}

// counterKey returns the per-day counter document ID for the given creation
// time. The day boundary follows the time's location (local midnight).
func counterKey(at time.Time) string {
	return "SR-" + at.Format("20060102")
}

// formatRequestNumber renders a day key and sequence value as a request
// number. Suffixes are zero-padded to three digits; past 999 the suffix
// widens rather than colliding.
func formatRequestNumber(key string, seq int) string {
	return fmt.Sprintf("%s-%03d", key, seq)
}

// Next returns the next request number for the given creation time. When ctx
// is a session context the $inc joins the caller's transaction, so an aborted
// insert releases the number.
func (r *RequestCounterRepository) Next(ctx context.Context, at time.Time) (string, error) {
	key := counterKey(at)

	update := bson.M{
		"$inc":         bson.M{"seq": 1},
		"$setOnInsert": bson.M{"createdAt": mongodb.Now()},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int `bson:"seq"`
	}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("failed to advance request counter %s: %w", key, err)
	}

	return formatRequestNumber(key, counter.Seq), nil
}
