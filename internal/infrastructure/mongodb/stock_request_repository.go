package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	"github.com/pharmacy-platform/stock-request-service/pkg/cloudevents"
	"github.com/pharmacy-platform/stock-request-service/pkg/kafka"
	"github.com/pharmacy-platform/stock-request-service/pkg/mongodb"
	"github.com/pharmacy-platform/stock-request-service/pkg/outbox"
	outboxMongo "github.com/pharmacy-platform/stock-request-service/pkg/outbox/mongodb"
)

const stockRequestCollection = "stock_requests"

// StockRequestRepository implements domain.StockRequestRepository on MongoDB.
// Mutations write the aggregate, its outbox events and, for receipt, the
// inventory credit inside a single multi-document transaction.
type StockRequestRepository struct {
	client       *mongodb.GuardedClient
	collection   *mongodb.GuardedCollection
	inventory    *InventoryRepository
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	numbers      domain.RequestNumberGenerator
}

// NewStockRequestRepository creates a new MongoDB stock request repository
func NewStockRequestRepository(
	client *mongodb.GuardedClient,
	inventory *InventoryRepository,
	outboxRepo *outboxMongo.OutboxRepository,
	eventFactory *cloudevents.EventFactory,
	numbers domain.RequestNumberGenerator,
) *StockRequestRepository {
	return &StockRequestRepository{
		client:       client,
		collection:   client.Collection(stockRequestCollection),
		inventory:    inventory,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		numbers:      numbers,
	}
}

// EnsureIndexes creates the collection indexes. The partial unique index on
// itemId restricted to non-terminal statuses is the duplicate guard: a second
// in-flight request for the same item fails the insert with a duplicate key
// error, atomically with the write.
func (r *StockRequestRepository) EnsureIndexes(ctx context.Context) error {
	nonTerminal := make([]string, 0, 4)
	for _, s := range domain.NonTerminalStatuses() {
		nonTerminal = append(nonTerminal, string(s))
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "itemId", Value: 1}},
			Options: options.Index().
				SetName("uniq_itemId_inflight").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": nonTerminal},
				}),
		},
		{
			Keys:    bson.D{{Key: "requestNumber", Value: 1}},
			Options: options.Index().SetName("uniq_requestNumber").SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "urgencyLevel", Value: 1}}},
		{Keys: bson.D{{Key: "requestedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isUrgent", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create stock request indexes: %w", err)
	}

	return r.outboxRepo.EnsureIndexes(ctx)
}

// Create persists a new request and its creation events transactionally.
// The request number is reserved inside the same transaction, so an aborted
// insert rolls the counter back and the daily sequence stays contiguous.
func (r *StockRequestRepository) Create(ctx context.Context, request *domain.StockRequest) error {
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		number, err := r.numbers.Next(sessCtx, time.Now())
		if err != nil {
			return err
		}
		request.AssignRequestNumber(number)

		if _, err := r.collection.InsertOne(sessCtx, request); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrDuplicateRequest
			}
			return fmt.Errorf("failed to insert stock request: %w", err)
		}

		outboxEvents, err := r.buildOutboxEvents(sessCtx, request)
		if err != nil {
			return err
		}
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	request.ClearDomainEvents()
	return nil
}

// FindByID retrieves a request by its ID
func (r *StockRequestRepository) FindByID(ctx context.Context, requestID string) (*domain.StockRequest, error) {
	var request domain.StockRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": requestID}).Decode(&request)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock request: %w", err)
	}
	return &request, nil
}

// FindByRequestNumber retrieves a request by its human-readable number
func (r *StockRequestRepository) FindByRequestNumber(ctx context.Context, requestNumber string) (*domain.StockRequest, error) {
	var request domain.StockRequest
	err := r.collection.FindOne(ctx, bson.M{"requestNumber": requestNumber}).Decode(&request)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock request: %w", err)
	}
	return &request, nil
}

func buildListFilter(filter domain.RequestFilter) bson.M {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.Urgency != nil {
		query["urgencyLevel"] = string(*filter.Urgency)
	}
	if filter.RequestedBy != "" {
		query["requestedBy"] = filter.RequestedBy
	}
	if filter.Search != "" {
		pattern := primitiveRegex(filter.Search)
		query["$or"] = []bson.M{
			{"requestNumber": pattern},
			{"reason": pattern},
			{"itemId": pattern},
		}
	}
	return query
}

func primitiveRegex(search string) bson.M {
	return bson.M{"$regex": search, "$options": "i"}
}

// List retrieves requests matching the filter, newest first, with total count
func (r *StockRequestRepository) List(ctx context.Context, filter domain.RequestFilter, pagination domain.Pagination) ([]*domain.StockRequest, int64, error) {
	query := buildListFilter(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count stock requests: %w", err)
	}

	opts := options.Find().
		SetSort(mongodb.SortDescending("createdAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*domain.StockRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, fmt.Errorf("failed to decode stock requests: %w", err)
	}

	return requests, total, nil
}

// FindRecent retrieves the most recently created requests
func (r *StockRequestRepository) FindRecent(ctx context.Context, limit int) ([]*domain.StockRequest, error) {
	opts := options.Find().
		SetSort(mongodb.SortDescending("createdAt")).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent stock requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*domain.StockRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode stock requests: %w", err)
	}

	return requests, nil
}

// UpdateTransition persists a status transition with a conditional write
// pinned to fromStatus. A concurrent transition wins the race and this call
// returns ErrStaleRequest without modifying anything.
func (r *StockRequestRepository) UpdateTransition(ctx context.Context, request *domain.StockRequest, fromStatus domain.RequestStatus) error {
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{"_id": request.ID, "status": string(fromStatus)}
		result, err := r.collection.UpdateOne(sessCtx, filter, bson.M{"$set": request})
		if err != nil {
			return fmt.Errorf("failed to update stock request: %w", err)
		}
		if result.MatchedCount == 0 {
			return domain.ErrStaleRequest
		}

		outboxEvents, err := r.buildOutboxEvents(sessCtx, request)
		if err != nil {
			return err
		}
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	request.ClearDomainEvents()
	return nil
}

// Receive persists the Received transition and credits inventory stock as a
// single atomic unit: the conditional status write, the ledger increment and
// the outbox append all commit or abort together.
func (r *StockRequestRepository) Receive(ctx context.Context, request *domain.StockRequest, creditQuantity int) (int, error) {
	var newStock int

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{"_id": request.ID, "status": string(domain.StatusOrdered)}
		result, err := r.collection.UpdateOne(sessCtx, filter, bson.M{"$set": request})
		if err != nil {
			return fmt.Errorf("failed to update stock request: %w", err)
		}
		if result.MatchedCount == 0 {
			return domain.ErrStaleRequest
		}

		newStock, err = r.inventory.IncrementStock(sessCtx, request.ItemID, creditQuantity)
		if err != nil {
			return err
		}

		outboxEvents, err := r.buildOutboxEvents(sessCtx, request)
		if err != nil {
			return err
		}

		creditedEvent := r.eventFactory.CreateStockCreditedEvent(sessCtx, request.ItemID, creditQuantity, request.ID)
		creditedOutbox, err := outbox.NewOutboxEventFromCloudEvent(
			request.ItemID, "InventoryItem", kafka.Topics.InventoryEvents, creditedEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, creditedOutbox)

		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	request.ClearDomainEvents()
	return newStock, nil
}

// Stats aggregates counts by status and urgency plus the estimated cost tied
// up in non-terminal requests
func (r *StockRequestRepository) Stats(ctx context.Context) (*domain.RequestStats, error) {
	nonTerminal := make([]string, 0, 4)
	for _, s := range domain.NonTerminalStatuses() {
		nonTerminal = append(nonTerminal, string(s))
	}

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"byStatus": []bson.M{
				{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"byUrgency": []bson.M{
				{"$group": bson.M{"_id": "$urgencyLevel", "count": bson.M{"$sum": 1}}},
			},
			"costAtRisk": []bson.M{
				{"$match": bson.M{"status": bson.M{"$in": nonTerminal}}},
				{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": bson.M{"$ifNull": []interface{}{"$estimatedCost", 0}}}}},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ByStatus []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byStatus"`
		ByUrgency []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byUrgency"`
		CostAtRisk []struct {
			Total float64 `bson:"total"`
		} `bson:"costAtRisk"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	stats := &domain.RequestStats{
		CountsByStatus:  make(map[string]int64),
		CountsByUrgency: make(map[string]int64),
	}

	if len(results) == 0 {
		return stats, nil
	}

	for _, row := range results[0].ByStatus {
		stats.CountsByStatus[row.ID] = row.Count
	}
	for _, row := range results[0].ByUrgency {
		stats.CountsByUrgency[row.ID] = row.Count
	}
	if len(results[0].CostAtRisk) > 0 {
		stats.EstimatedCostAtRisk = results[0].CostAtRisk[0].Total
	}

	return stats, nil
}

// buildOutboxEvents converts the aggregate's pending domain events into outbox
// entries destined for the stock request topic
func (r *StockRequestRepository) buildOutboxEvents(ctx context.Context, request *domain.StockRequest) ([]*outbox.OutboxEvent, error) {
	domainEvents := request.GetDomainEvents()
	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

	for _, event := range domainEvents {
		cloudEvent := r.toCloudEvent(ctx, request, event)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			request.ID, "StockRequest", kafka.Topics.StockRequestEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}

		outboxEvents = append(outboxEvents, outboxEvent)
	}

	return outboxEvents, nil
}

// toCloudEvent maps a domain event onto the published payload schema.
// Consumers see the pkg/cloudevents data structs, not the aggregate's
// internal event types.
func (r *StockRequestRepository) toCloudEvent(ctx context.Context, request *domain.StockRequest, event domain.DomainEvent) *cloudevents.PharmacyCloudEvent {
	switch e := event.(type) {
	case *domain.StockRequestCreatedEvent:
		return r.eventFactory.CreateStockRequestCreatedEvent(ctx,
			e.RequestID, e.RequestNumber, e.ItemID, e.RequestedQuantity,
			e.UrgencyLevel, e.RequestedBy, e.IsUrgent)
	case *domain.RequestStatusChangedEvent:
		return r.eventFactory.CreateStatusChangedEvent(ctx,
			e.RequestID, e.RequestNumber, e.FromStatus, e.ToStatus, e.ActorID, e.Notes)
	case *domain.StockRequestReceivedEvent:
		return r.eventFactory.CreateStockRequestReceivedEvent(ctx,
			e.RequestID, e.RequestNumber, e.ItemID, e.ReceivedQuantity, e.InvoiceNumber)
	default:
		return r.eventFactory.CreateEvent(ctx, event.EventType(), "stock-request/"+request.ID, event)
	}
}
