package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/G0V1NDS/city-list/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection implements Collection on a MongoDB collection.
type MongoCollection[T any, P entityPtr[T]] struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoCollection[T any, P entityPtr[T]](coll *mongo.Collection) *MongoCollection[T, P] {
	return &MongoCollection[T, P]{coll: coll, now: time.Now}
}

func activeFilter() bson.M {
	return bson.M{"status": models.StatusActive}
}

func (c *MongoCollection[T, P]) Find(ctx context.Context, q Query) ([]*T, error) {
	filter := activeFilter()
	if q.Search != "" {
		filter["name"] = bson.M{
			"$regex":   fmt.Sprintf(".*%s.*", regexp.QuoteMeta(q.Search)),
			"$options": "i",
		}
	}

	opts := options.Find().SetSkip(q.Skip).SetLimit(q.limit())
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []*T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	return docs, nil
}

func (c *MongoCollection[T, P]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	err := c.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, NotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", c.coll.Name(), err)
	}
	return &doc, nil
}

func (c *MongoCollection[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	filter := activeFilter()
	filter["_id"] = oid
	return c.findOne(ctx, filter)
}

func (c *MongoCollection[T, P]) FindByIDAnyStatus(ctx context.Context, id string) (*T, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return c.findOne(ctx, bson.M{"_id": oid})
}

func (c *MongoCollection[T, P]) FindByName(ctx context.Context, name string) (*T, error) {
	filter := activeFilter()
	filter["name"] = name
	return c.findOne(ctx, filter)
}

func (c *MongoCollection[T, P]) CheckDuplicate(ctx context.Context, name, excludedID string) error {
	filter := activeFilter()
	filter["name"] = name
	if excludedID != "" {
		oid, err := parseID(excludedID)
		if err != nil {
			return err
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	existing, err := c.findOne(ctx, filter)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return Conflict(existing)
}

func (c *MongoCollection[T, P]) Create(ctx context.Context, doc *T) error {
	prepareCreate(P(doc), c.now())
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			conflict := Conflict(nil)
			conflict.Err = err
			return conflict
		}
		return fmt.Errorf("insert %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *MongoCollection[T, P]) UpdateExisting(ctx context.Context, doc *T) error {
	p := P(doc)
	p.Touch(c.now())

	filter := activeFilter()
	filter["_id"] = p.GetID()
	res, err := c.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			conflict := Conflict(nil)
			conflict.Err = err
			return conflict
		}
		return fmt.Errorf("replace %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return NotFound()
	}
	return nil
}

func (c *MongoCollection[T, P]) Update(ctx context.Context, f Filter, fields bson.M) error {
	filter := activeFilter()
	if !f.ID.IsZero() {
		filter["_id"] = f.ID
	}
	if f.Name != "" {
		filter["name"] = f.Name
	}

	res, err := c.coll.UpdateMany(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return NotFound()
	}
	if res.ModifiedCount == 0 {
		return UpdateFailed()
	}
	return nil
}

func (c *MongoCollection[T, P]) RemoveByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return c.Update(ctx, Filter{ID: oid}, removeFields(c.now()))
}
