// Package store holds the mongo-backed persistence layer. Every mutation is
// an atomic single-document read-modify-write; there are no multi-document
// transactions, which is the concurrency contract the order service relies on.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/internal/orders"
	"github.com/dinehall/orderdesk/pkg/models"
)

type OrderStore struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{
		col:      db.Collection("orders"),
		counters: db.Collection("counters"),
	}
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	_, err := s.col.InsertOne(ctx, order)
	return err
}

func (s *OrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func scopeFilter(scope orders.Scope) bson.M {
	filter := bson.M{}
	if scope.CustomerID != "" {
		filter["customer_id"] = scope.CustomerID
	}
	if scope.OrderType != "" {
		filter["order_type"] = scope.OrderType
	}
	if scope.TableNumber > 0 {
		filter["table_number"] = scope.TableNumber
	}
	if len(scope.Statuses) > 0 {
		filter["order_status"] = bson.M{"$in": scope.Statuses}
	} else if len(scope.NotStatuses) > 0 {
		filter["order_status"] = bson.M{"$nin": scope.NotStatuses}
	}
	return filter
}

func (s *OrderStore) List(ctx context.Context, scope orders.Scope, page, limit int) ([]*models.Order, int64, error) {
	filter := scopeFilter(scope)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var result []*models.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, update orders.StatusUpdate) (*models.Order, error) {
	set := bson.M{"order_status": update.Status}
	if update.DeliveredAt != nil {
		set["delivered_at"] = update.DeliveredAt
	}
	if update.CancelledAt != nil {
		set["cancelled_at"] = update.CancelledAt
	}
	if update.CancellationReason != "" {
		set["cancellation_reason"] = update.CancellationReason
	}
	return s.findOneAndSet(ctx, id, set)
}

func (s *OrderStore) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Order, error) {
	return s.findOneAndSet(ctx, id, bson.M{"payment_status": status})
}

func (s *OrderStore) findOneAndSet(ctx context.Context, id string, set bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// NextOrderNumber mints a unique human-readable order number from an atomic
// counter document. The $inc makes the sequence collision-proof under
// concurrent creations; a countDocuments-based scheme would race.
func (s *OrderStore) NextOrderNumber(ctx context.Context) (string, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("ORD%d%04d", time.Now().UnixMilli(), counter.Seq), nil
}

func (s *OrderStore) Stats(ctx context.Context) (*orders.Stats, error) {
	stats := &orders.Stats{}

	var err error
	if stats.TotalOrders, err = s.col.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.PendingOrders, err = s.col.CountDocuments(ctx, bson.M{"order_status": models.StatusPending}); err != nil {
		return nil, err
	}
	if stats.CompletedOrders, err = s.col.CountDocuments(ctx, bson.M{"order_status": models.StatusDelivered}); err != nil {
		return nil, err
	}
	if stats.CancelledOrders, err = s.col.CountDocuments(ctx, bson.M{"order_status": models.StatusCancelled}); err != nil {
		return nil, err
	}

	// Revenue only counts delivered orders that were actually paid.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "order_status", Value: models.StatusDelivered},
			{Key: "payment_status", Value: models.PaymentPaid},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total_amount"}}},
		}}},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var revenue []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &revenue); err != nil {
		return nil, err
	}
	if len(revenue) > 0 {
		stats.TotalRevenue = revenue[0].Total
	}

	return stats, nil
}
