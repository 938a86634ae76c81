package auditRepo

import (
	"context"
	"fmt"
	"time"

	"edufees/database"
	"edufees/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditRepository is the append-only store behind the audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	// FindByEntity returns the newest entries for one entity, at most limit.
	FindByEntity(ctx context.Context, tenantID string, kind models.EntityKind, entityID string, limit int) ([]models.AuditLog, error)
	// FindByUser returns the newest entries recorded for a user, filtered by q.
	FindByUser(ctx context.Context, tenantID, userID string, q models.AuditQuery) ([]models.AuditLog, error)
}

type mongoAuditRepo struct {
	coll *mongo.Collection
}

// NewMongoAuditRepo returns an AuditRepository backed by "audit_logs".
func NewMongoAuditRepo() AuditRepository {
	repo := &mongoAuditRepo{coll: database.Database().Collection("audit_logs")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		fmt.Printf("failed to create audit indexes: %v\n", err)
	}
	return repo
}

func (r *mongoAuditRepo) Insert(ctx context.Context, entry *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *mongoAuditRepo) FindByEntity(ctx context.Context, tenantID string, kind models.EntityKind, entityID string, limit int) ([]models.AuditLog, error) {
	filter := bson.M{"tenantId": tenantID, "entityType": kind, "entityId": entityID}
	return r.find(ctx, filter, limit)
}

func (r *mongoAuditRepo) FindByUser(ctx context.Context, tenantID, userID string, q models.AuditQuery) ([]models.AuditLog, error) {
	filter := bson.M{"tenantId": tenantID, "userId": userID}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	window := bson.M{}
	if !q.StartDate.IsZero() {
		window["$gte"] = q.StartDate
	}
	if !q.EndDate.IsZero() {
		window["$lte"] = q.EndDate
	}
	if len(window) > 0 {
		filter["timestamp"] = window
	}
	return r.find(ctx, filter, q.Limit)
}

func (r *mongoAuditRepo) find(ctx context.Context, filter bson.M, limit int) ([]models.AuditLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.AuditLog
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode audit log: %w", err)
	}
	return out, nil
}
