package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/store"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

var (
	DB          *sql.DB
	MongoDB     *mongo.Database
	MongoClient *mongo.Client
)

const retryDelay = 5 * time.Second

// ConnectWithRetry attempts to connect to MongoDB with retries
func ConnectWithRetry(cfg *Config, log *zap.Logger) error {
	retries := cfg.MongoConnectRetries
	if retries <= 0 {
		retries = 1
	}

	var err error
	for i := 0; i < retries; i++ {
		err = connectMongo(cfg, log)
		if err == nil {
			return nil
		}
		log.Warn("Failed to connect to MongoDB",
			zap.Int("attempt", i+1),
			zap.Int("maxRetries", retries),
			zap.Error(err))
		if i < retries-1 {
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", retries, err)
}

func connectMongo(cfg *Config, log *zap.Logger) error {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetSocketTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetWriteConcern(writeconcern.Majority()).
		SetReadConcern(readconcern.Majority()).
		SetReadPreference(readpref.Primary())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("error pinging MongoDB: %w", err)
	}

	MongoClient = client
	MongoDB = client.Database(cfg.MongoDBName)
	log.Info("Successfully connected to MongoDB", zap.String("database", cfg.MongoDBName))

	if err := createIndexes(ctx, MongoDB, log); err != nil {
		return fmt.Errorf("error creating indexes: %w", err)
	}
	return nil
}

// activeOnly scopes a unique index to documents that are not soft deleted,
// so a removed name can be created again.
func activeOnly(name string) *options.IndexOptions {
	return options.Index().
		SetUnique(true).
		SetName(name).
		SetPartialFilterExpression(bson.D{{Key: "status", Value: models.StatusActive}})
}

func createIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	indexes := map[string][]mongo.IndexModel{
		store.StatesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: activeOnly("state_name_active_idx")},
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: activeOnly("state_code_active_idx")},
		},
		store.DistrictsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: activeOnly("district_name_active_idx")},
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: activeOnly("district_code_active_idx")},
			{Keys: bson.D{{Key: "state.name", Value: 1}}, Options: options.Index().SetName("district_state_idx")},
		},
		store.TownsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: activeOnly("town_name_active_idx")},
			{Keys: bson.D{{Key: "district.name", Value: 1}}, Options: options.Index().SetName("town_district_idx")},
		},
	}

	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("error creating %s indexes: %w", coll, err)
		}
		log.Info("Successfully created indexes", zap.String("collection", coll), zap.Int("count", len(idx)))
	}
	return nil
}

// InitDB opens the PostgreSQL database that backs the reconcile queue.
func InitDB(dsn string, log *zap.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("error opening PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error connecting to PostgreSQL database: %w", err)
	}

	DB = db
	log.Info("Successfully connected to PostgreSQL")
	return nil
}

// Health check functions
func CheckMongoHealth(ctx context.Context) error {
	if MongoClient == nil {
		return fmt.Errorf("MongoDB is not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := MongoClient.Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB health check failed: %w", err)
	}
	return nil
}

func CheckPostgresHealth(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("PostgreSQL is not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("PostgreSQL health check failed: %w", err)
	}
	return nil
}

// Graceful shutdown
func CloseDB(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Error("Error closing PostgreSQL connection", zap.Error(err))
		}
	}

	if MongoClient != nil {
		if err := MongoClient.Disconnect(ctx); err != nil {
			log.Error("Error closing MongoDB connection", zap.Error(err))
		}
	}
}
