package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Base holds the fields every directory document carries.
type Base struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (b *Base) GetID() primitive.ObjectID   { return b.ID }
func (b *Base) SetID(id primitive.ObjectID) { b.ID = id }
func (b *Base) GetStatus() string           { return b.Status }
func (b *Base) SetStatus(status string)     { b.Status = status }

// Touch stamps the document for a save at now. CreatedAt is only set once.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Entity is implemented by pointers to State, District and Town.
type Entity interface {
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
	GetName() string
	GetStatus() string
	SetStatus(string)
	Touch(time.Time)
}
