package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/pkg/models"
)

type MenuStore struct {
	col *mongo.Collection
}

func NewMenuStore(db *mongo.Database) *MenuStore {
	return &MenuStore{col: db.Collection("menu_items")}
}

func (s *MenuStore) Insert(ctx context.Context, item *models.MenuItem) error {
	_, err := s.col.InsertOne(ctx, item)
	return err
}

func (s *MenuStore) MenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Newf(apperr.NotFound, "menu item not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MenuStore) List(ctx context.Context, onlyAvailable bool) ([]*models.MenuItem, error) {
	filter := bson.M{}
	if onlyAvailable {
		filter["is_available"] = true
	}

	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*models.MenuItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MenuStore) Update(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	set := bson.M{
		"name":         item.Name,
		"description":  item.Description,
		"price":        item.Price,
		"category":     item.Category,
		"image_url":    item.ImageURL,
		"is_available": item.IsAvailable,
		"updated_at":   item.UpdatedAt,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.MenuItem
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": item.ID}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Newf(apperr.NotFound, "menu item not found: %s", item.ID)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

type TableStore struct {
	col *mongo.Collection
}

func NewTableStore(db *mongo.Database) *TableStore {
	return &TableStore{col: db.Collection("tables")}
}

func (s *TableStore) Insert(ctx context.Context, table *models.Table) error {
	count, err := s.col.CountDocuments(ctx, bson.M{"number": table.Number})
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Newf(apperr.Validation, "table %d already exists", table.Number)
	}
	_, err = s.col.InsertOne(ctx, table)
	return err
}

func (s *TableStore) List(ctx context.Context) ([]*models.Table, error) {
	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tables []*models.Table
	if err := cursor.All(ctx, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *TableStore) TableByNumber(ctx context.Context, number int) (*models.Table, error) {
	var table models.Table
	err := s.col.FindOne(ctx, bson.M{"number": number}).Decode(&table)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Newf(apperr.NotFound, "table %d not found", number)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}
