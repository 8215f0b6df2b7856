package mongodb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pharmacy-platform/stock-request-service/pkg/resilience"
)

// openBreaker returns a circuit breaker tripped into the open state
func openBreaker(t *testing.T) *resilience.CircuitBreaker {
	t.Helper()

	config := resilience.DefaultCircuitBreakerConfig("mongodb-test")
	config.FailureThreshold = 1
	cb := resilience.NewCircuitBreaker(config, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return nil, errors.New("connection refused")
	})
	require.Error(t, err)

	return cb
}

// TestFindOneWhenBreakerOpen tests that a rejected read surfaces the breaker
// error rather than decoding as a missing document
func TestFindOneWhenBreakerOpen(t *testing.T) {
	collection := &GuardedCollection{name: "stock_requests", circuitBreaker: openBreaker(t)}

	var doc bson.M
	err := collection.FindOne(context.Background(), bson.M{"_id": "REQ-1"}).Decode(&doc)

	require.Error(t, err)
	assert.False(t, errors.Is(err, mongo.ErrNoDocuments))
	assert.Contains(t, err.Error(), "circuit breaker open")
}

// TestFindOneAndUpdateWhenBreakerOpen tests the same guarantee for the
// read-modify-write path
func TestFindOneAndUpdateWhenBreakerOpen(t *testing.T) {
	collection := &GuardedCollection{name: "request_counters", circuitBreaker: openBreaker(t)}

	result := collection.FindOneAndUpdate(context.Background(),
		bson.M{"_id": "SR-20260829"}, bson.M{"$inc": bson.M{"seq": 1}})

	err := result.Err()
	require.Error(t, err)
	assert.False(t, errors.Is(err, mongo.ErrNoDocuments))
	assert.Contains(t, err.Error(), "circuit breaker open")
}
