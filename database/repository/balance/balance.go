package balanceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edufees/database"
	"edufees/database/repository"
	"edufees/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BalanceRepository stores the derived per-student, per-session balances.
type BalanceRepository interface {
	// Upsert writes the derived totals of b and returns the stored record.
	// PreviousSessionBalance is never touched by Upsert.
	Upsert(ctx context.Context, b *models.StudentBalance) (*models.StudentBalance, error)
	Get(ctx context.Context, tenantID, studentID, session string) (*models.StudentBalance, error)
	// SetPreviousSessionBalance records the amount carried into session.
	SetPreviousSessionBalance(ctx context.Context, tenantID, studentID, session string, amount decimal.Decimal, at time.Time) (*models.StudentBalance, error)
}

type mongoBalanceRepo struct {
	coll *mongo.Collection
}

// NewMongoBalanceRepo returns a BalanceRepository backed by "student_balances".
func NewMongoBalanceRepo() BalanceRepository {
	repo := &mongoBalanceRepo{coll: database.Database().Collection("student_balances")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "studentId", Value: 1}, {Key: "academicSession", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		fmt.Printf("failed to create balance indexes: %v\n", err)
	}
	return repo
}

func balanceKey(tenantID, studentID, session string) bson.M {
	return bson.M{"tenantId": tenantID, "studentId": studentID, "academicSession": session}
}

func (r *mongoBalanceRepo) Upsert(ctx context.Context, b *models.StudentBalance) (*models.StudentBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"totalBalance":  b.TotalBalance,
			"totalInvoiced": b.TotalInvoiced,
			"totalPaid":     b.TotalPaid,
			"invoiceCount":  b.InvoiceCount,
			"lastUpdated":   b.LastUpdated,
		},
		"$setOnInsert": bson.M{"previousSessionBalance": decimal.Zero},
	}
	return r.findOneAndUpsert(ctx, balanceKey(b.TenantID, b.StudentID, b.AcademicSession), update)
}

func (r *mongoBalanceRepo) SetPreviousSessionBalance(ctx context.Context, tenantID, studentID, session string, amount decimal.Decimal, at time.Time) (*models.StudentBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"previousSessionBalance": amount, "lastUpdated": at},
		"$setOnInsert": bson.M{
			"totalBalance":  decimal.Zero,
			"totalInvoiced": decimal.Zero,
			"totalPaid":     decimal.Zero,
			"invoiceCount":  0,
		},
	}
	return r.findOneAndUpsert(ctx, balanceKey(tenantID, studentID, session), update)
}

func (r *mongoBalanceRepo) findOneAndUpsert(ctx context.Context, filter, update bson.M) (*models.StudentBalance, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.StudentBalance
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to upsert balance: %w", err)
	}
	return &out, nil
}

func (r *mongoBalanceRepo) Get(ctx context.Context, tenantID, studentID, session string) (*models.StudentBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out models.StudentBalance
	err := r.coll.FindOne(ctx, balanceKey(tenantID, studentID, session)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	return &out, nil
}
