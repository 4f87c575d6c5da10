package store

import (
	"context"
	"time"

	"github.com/G0V1NDS/city-list/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Query drives Find. Search is a case-insensitive substring match on name.
type Query struct {
	Search string
	Sort   bson.D
	Skip   int64
	Limit  int64
}

func (q Query) limit() int64 {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	if q.Limit > MaxLimit {
		return MaxLimit
	}
	return q.Limit
}

// Filter selects documents for Update. Zero fields are ignored; the active
// status is always part of the match.
type Filter struct {
	ID   primitive.ObjectID
	Name string
}

// Collection is the document store adapter shared by every entity service.
// All reads and writes are scoped to active documents unless the method
// name says otherwise.
type Collection[T any] interface {
	Find(ctx context.Context, q Query) ([]*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindByIDAnyStatus(ctx context.Context, id string) (*T, error)
	FindByName(ctx context.Context, name string) (*T, error)
	CheckDuplicate(ctx context.Context, name, excludedID string) error
	Create(ctx context.Context, doc *T) error
	UpdateExisting(ctx context.Context, doc *T) error
	Update(ctx context.Context, f Filter, fields bson.M) error
	RemoveByID(ctx context.Context, id string) error
}

type entityPtr[T any] interface {
	*T
	models.Entity
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, InvalidID(err)
	}
	return oid, nil
}

func prepareCreate(e models.Entity, now time.Time) {
	if e.GetID().IsZero() {
		e.SetID(primitive.NewObjectID())
	}
	if e.GetStatus() == "" {
		e.SetStatus(models.StatusActive)
	}
	e.Touch(now)
}

func removeFields(now time.Time) bson.M {
	return bson.M{"status": models.StatusDeleted, "updatedAt": now}
}
