package invoiceRepo

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

// MongoInvoiceRepo implements InvoiceRepository using MongoDB.
type MongoInvoiceRepo struct {
	coll *mongo.Collection
}

// NewMongoInvoiceRepo creates a new instance of InvoiceRepository using MongoDB.
func NewMongoInvoiceRepo() InvoiceRepository {
	repo := &MongoInvoiceRepo{coll: database.Database().Collection("invoices")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create invoice indexes: %v\n", err)
	}
	return repo
}

func (r *MongoInvoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, inv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *MongoInvoiceRepo) GetByID(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var inv models.Invoice
	err := r.coll.FindOne(ctx, bson.M{"id": id, "tenantId": tenantID}).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice %s: %w", id, err)
	}
	return &inv, nil
}

func (r *MongoInvoiceRepo) UpdateGuarded(ctx context.Context, inv *models.Invoice, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	next := *inv
	next.Version = expectedVersion + 1

	filter := bson.M{"id": inv.ID, "tenantId": inv.TenantID, "version": expectedVersion}
	res, err := r.coll.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", inv.ID, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, inv.TenantID, inv.ID)
	}
	inv.Version = next.Version
	return nil
}

func (r *MongoInvoiceRepo) Delete(ctx context.Context, tenantID, id string, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id, "tenantId": tenantID, "version": expectedVersion})
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return r.missOrConflict(ctx, tenantID, id)
	}
	return nil
}

// missOrConflict tells a missing invoice apart from one whose version moved.
func (r *MongoInvoiceRepo) missOrConflict(ctx context.Context, tenantID, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"id": id, "tenantId": tenantID})
	if err != nil {
		return fmt.Errorf("failed to check invoice %s: %w", id, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

func (r *MongoInvoiceRepo) ListByStudentSession(ctx context.Context, tenantID, studentID, session string) ([]models.Invoice, error) {
	return r.List(ctx, tenantID, Filter{StudentID: studentID, AcademicSession: session})
}

func (r *MongoInvoiceRepo) List(ctx context.Context, tenantID string, filter Filter) ([]models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	q := bson.M{"tenantId": tenantID}
	if filter.StudentID != "" {
		q["studentId"] = filter.StudentID
	}
	if filter.ClassID != "" {
		q["classId"] = filter.ClassID
	}
	if filter.AcademicSession != "" {
		q["academicSession"] = filter.AcademicSession
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	if !filter.DueBefore.IsZero() {
		q["dueDate"] = bson.M{"$lt": filter.DueBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "invoiceNumber", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Invoice
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}
	return out, nil
}
