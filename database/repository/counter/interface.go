package counterRepo

import (
	"context"
	"fmt"
	"time"

	"edufees/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CounterRepository is a durable atomic counter keyed by string.
type CounterRepository interface {
	// Increment atomically adds one to the counter and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)
}

type mongoCounterRepo struct {
	coll *mongo.Collection
}

// NewMongoCounterRepo returns a CounterRepository backed by the "counters" collection.
func NewMongoCounterRepo() CounterRepository {
	return &mongoCounterRepo{coll: database.Database().Collection("counters")}
}

type counterDoc struct {
	Key string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// Increment is a single upsert-and-increment; concurrent callers never see the same value.
func (r *mongoCounterRepo) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return doc.Seq, nil
}
