package store

import (
	"github.com/G0V1NDS/city-list/models"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	StatesCollection    = "states"
	DistrictsCollection = "districts"
	TownsCollection     = "towns"
)

// Collections groups the three directory collections.
type Collections struct {
	States    Collection[models.State]
	Districts Collection[models.District]
	Towns     Collection[models.Town]
}

func NewMongoCollections(db *mongo.Database) Collections {
	return Collections{
		States:    NewMongoCollection[models.State](db.Collection(StatesCollection)),
		Districts: NewMongoCollection[models.District](db.Collection(DistrictsCollection)),
		Towns:     NewMongoCollection[models.Town](db.Collection(TownsCollection)),
	}
}

// NewMemoryCollections mirrors the unique indexes created on Mongo.
func NewMemoryCollections() Collections {
	return Collections{
		States:    NewMemoryCollection[models.State](StatesCollection, "name", "code"),
		Districts: NewMemoryCollection[models.District](DistrictsCollection, "name", "code"),
		Towns:     NewMemoryCollection[models.Town](TownsCollection, "name"),
	}
}
