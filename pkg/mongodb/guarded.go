package mongodb

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/metrics"
	"github.com/pharmacy-platform/stock-request-service/pkg/resilience"
)

// GuardedClient wraps Client with metrics, query logging and circuit
// breaker protection for every collection operation.
type GuardedClient struct {
	client         *Client
	circuitBreaker *resilience.CircuitBreaker
	metrics        *metrics.Metrics
	logger         *logging.Logger
}

// NewGuardedClient creates a circuit breaker protected MongoDB client
func NewGuardedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *GuardedClient {
	config := resilience.DefaultCircuitBreakerConfig("mongodb")

	var slogLogger *slog.Logger
	if logger != nil && logger.Logger != nil {
		slogLogger = logger.Logger
	} else {
		slogLogger = slog.Default()
	}

	return &GuardedClient{
		client:         client,
		circuitBreaker: resilience.NewCircuitBreaker(config, slogLogger),
		metrics:        m,
		logger:         logger,
	}
}

// Collection returns a guarded collection handle
func (c *GuardedClient) Collection(name string) *GuardedCollection {
	return &GuardedCollection{
		collection:     c.client.Collection(name),
		name:           name,
		circuitBreaker: c.circuitBreaker,
		metrics:        c.metrics,
		logger:         c.logger,
	}
}

// Database returns the underlying database handle
func (c *GuardedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *GuardedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck performs a health check with circuit breaker protection
func (c *GuardedClient) HealthCheck(ctx context.Context) error {
	_, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.client.HealthCheck(ctx)
	})
	return err
}

// WithTransaction executes a function within a transaction with circuit breaker protection
func (c *GuardedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	_, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.client.WithTransaction(ctx, fn)
	})
	return err
}

// RawClient returns the underlying Client for advanced operations
func (c *GuardedClient) RawClient() *Client {
	return c.client
}

// GuardedCollection wraps a MongoDB Collection with metrics and circuit breaker protection
type GuardedCollection struct {
	collection     *mongo.Collection
	name           string
	circuitBreaker *resilience.CircuitBreaker
	metrics        *metrics.Metrics
	logger         *logging.Logger
}

// Name returns the collection name
func (c *GuardedCollection) Name() string {
	return c.name
}

// Raw returns the underlying mongo.Collection
func (c *GuardedCollection) Raw() *mongo.Collection {
	return c.collection
}

func (c *GuardedCollection) record(ctx context.Context, operation string, success bool, duration time.Duration, rowsAffected int64) {
	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.name, operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, success, rowsAffected)
	}
}

// InsertOne inserts a single document
func (c *GuardedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.InsertOne(ctx, document, opts...)
	})
	c.record(ctx, "insertOne", err == nil, time.Since(start), 1)
	if err != nil {
		return nil, err
	}
	return result.(*mongo.InsertOneResult), nil
}

// InsertMany inserts multiple documents
func (c *GuardedCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.InsertMany(ctx, documents, opts...)
	})
	c.record(ctx, "insertMany", err == nil, time.Since(start), int64(len(documents)))
	if err != nil {
		return nil, err
	}
	return result.(*mongo.InsertManyResult), nil
}

// FindOne finds a single document
func (c *GuardedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.FindOne(ctx, filter, opts...), nil
	})
	c.record(ctx, "findOne", err == nil, time.Since(start), 1)
	if err != nil {
		return rejectedSingleResult(err)
	}
	return result.(*mongo.SingleResult)
}

// Find finds multiple documents
func (c *GuardedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.Find(ctx, filter, opts...)
	})
	c.record(ctx, "find", err == nil, time.Since(start), 0)
	if err != nil {
		return nil, err
	}
	return result.(*mongo.Cursor), nil
}

// UpdateOne updates a single document
func (c *GuardedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.UpdateOne(ctx, filter, update, opts...)
	})
	if err != nil {
		c.record(ctx, "updateOne", false, time.Since(start), 0)
		return nil, err
	}
	updateResult := result.(*mongo.UpdateResult)
	c.record(ctx, "updateOne", true, time.Since(start), updateResult.ModifiedCount)
	return updateResult, nil
}

// FindOneAndUpdate finds and updates a document
func (c *GuardedCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.FindOneAndUpdate(ctx, filter, update, opts...), nil
	})
	c.record(ctx, "findOneAndUpdate", err == nil, time.Since(start), 1)
	if err != nil {
		return rejectedSingleResult(err)
	}
	return result.(*mongo.SingleResult)
}

// rejectedSingleResult wraps a circuit breaker rejection in a SingleResult so
// callers decode the breaker error instead of ErrNoDocuments.
func rejectedSingleResult(err error) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
}

// CountDocuments counts documents
func (c *GuardedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.CountDocuments(ctx, filter, opts...)
	})
	c.record(ctx, "countDocuments", err == nil, time.Since(start), 0)
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Aggregate runs an aggregation pipeline
func (c *GuardedCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.Aggregate(ctx, pipeline, opts...)
	})
	c.record(ctx, "aggregate", err == nil, time.Since(start), 0)
	if err != nil {
		return nil, err
	}
	return result.(*mongo.Cursor), nil
}

// DeleteMany deletes multiple documents
func (c *GuardedCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.DeleteMany(ctx, filter, opts...)
	})
	if err != nil {
		c.record(ctx, "deleteMany", false, time.Since(start), 0)
		return nil, err
	}
	deleteResult := result.(*mongo.DeleteResult)
	c.record(ctx, "deleteMany", true, time.Since(start), deleteResult.DeletedCount)
	return deleteResult, nil
}

// Indexes returns the collection's index view
func (c *GuardedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}

// NewProductionClient creates a fully configured MongoDB client with
// metrics and circuit breaker protection.
func NewProductionClient(ctx context.Context, config *Config, m *metrics.Metrics, logger *logging.Logger) (*GuardedClient, error) {
	baseClient, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}

	return NewGuardedClient(baseClient, m, logger), nil
}
