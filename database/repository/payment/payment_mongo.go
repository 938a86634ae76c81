package paymentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edufees/database"
	"edufees/database/repository"
	"edufees/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo creates a new instance of PaymentRepository using MongoDB.
func NewMongoPaymentRepo() PaymentRepository {
	repo := &MongoPaymentRepo{coll: database.Database().Collection("payments")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create payment indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "receiptNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "invoiceId", Value: 1}, {Key: "paymentDate", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) GetByID(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Payment
	err := r.coll.FindOne(ctx, bson.M{"id": id, "tenantId": tenantID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment %s: %w", id, err)
	}
	return &p, nil
}

func (r *MongoPaymentRepo) ListByInvoice(ctx context.Context, tenantID, invoiceID string) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "paymentDate", Value: 1}, {Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"tenantId": tenantID, "invoiceId": invoiceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for invoice %s: %w", invoiceID, err)
	}
	defer cursor.Close(ctx)

	var out []models.Payment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return out, nil
}

func (r *MongoPaymentRepo) UpdateUnconfirmed(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": p.ID, "tenantId": p.TenantID, "isConfirmed": false}
	update := bson.M{"$set": bson.M{
		"paymentMethod":      p.PaymentMethod,
		"paymentDate":        p.PaymentDate,
		"transactionDetails": p.TransactionDetails,
		"remarks":            p.Remarks,
		"updatedAt":          p.UpdatedAt,
	}}
	return r.guardedUpdate(ctx, filter, update)
}

func (r *MongoPaymentRepo) MarkConfirmed(ctx context.Context, tenantID, id, by string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "tenantId": tenantID, "isConfirmed": false}
	update := bson.M{"$set": bson.M{
		"isConfirmed": true,
		"confirmedBy": by,
		"confirmedAt": at,
		"updatedAt":   at,
	}}
	return r.guardedUpdate(ctx, filter, update)
}

func (r *MongoPaymentRepo) MarkReversed(ctx context.Context, tenantID, id string, rev models.Reversal) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "tenantId": tenantID, "isConfirmed": true, "isReversed": false}
	update := bson.M{"$set": bson.M{
		"isReversed":        true,
		"reversedAt":        rev.ReversedAt,
		"reversedBy":        rev.ReversedBy,
		"reversalReason":    rev.Reason,
		"reversalPaymentId": rev.ReversalPaymentID,
		"updatedAt":         rev.ReversedAt,
	}}
	return r.guardedUpdate(ctx, filter, update)
}

func (r *MongoPaymentRepo) ClearReversal(ctx context.Context, tenantID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"isReversed": false},
		"$unset": bson.M{"reversedAt": "", "reversedBy": "", "reversalReason": "", "reversalPaymentId": ""},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id, "tenantId": tenantID}, update)
	if err != nil {
		return fmt.Errorf("failed to clear reversal on payment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoPaymentRepo) Remove(ctx context.Context, tenantID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id, "tenantId": tenantID})
	if err != nil {
		return fmt.Errorf("failed to remove payment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// guardedUpdate applies update when filter matches; a miss is reported as
// ErrNotFound or ErrVersionConflict depending on whether the payment exists.
func (r *MongoPaymentRepo) guardedUpdate(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update payment %v: %w", filter["id"], err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"id": filter["id"], "tenantId": filter["tenantId"]})
	if err != nil {
		return fmt.Errorf("failed to check payment %v: %w", filter["id"], err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}
