package feeStructureRepo

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

// MongoFeeStructureRepo implements FeeStructureRepository using MongoDB.
type MongoFeeStructureRepo struct {
	coll *mongo.Collection
}

// NewMongoFeeStructureRepo creates the repository and makes sure its indexes exist.
func NewMongoFeeStructureRepo() FeeStructureRepository {
	repo := &MongoFeeStructureRepo{coll: database.Database().Collection("fee_structures")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create fee structure indexes: %v\n", err)
	}
	return repo
}

func (r *MongoFeeStructureRepo) Create(ctx context.Context, fs *models.FeeStructure) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, fs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create fee structure: %w", err)
	}
	return nil
}

func (r *MongoFeeStructureRepo) Update(ctx context.Context, fs *models.FeeStructure) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": fs.ID, "tenantId": fs.TenantID}
	res, err := r.coll.ReplaceOne(ctx, filter, fs)
	if err != nil {
		return fmt.Errorf("failed to update fee structure %s: %w", fs.ID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoFeeStructureRepo) GetByID(ctx context.Context, tenantID, id string) (*models.FeeStructure, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var fs models.FeeStructure
	err := r.coll.FindOne(ctx, bson.M{"id": id, "tenantId": tenantID}).Decode(&fs)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fee structure %s: %w", id, err)
	}
	return &fs, nil
}

func (r *MongoFeeStructureRepo) List(ctx context.Context, tenantID string, filter Filter) ([]models.FeeStructure, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	q := bson.M{"tenantId": tenantID}
	if filter.ClassID != "" {
		q["classId"] = filter.ClassID
	}
	if filter.SectionID != "" {
		q["sectionId"] = filter.SectionID
	}
	if filter.AcademicSession != "" {
		q["academicSession"] = filter.AcademicSession
	}
	if filter.ActiveOnly {
		q["isActive"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee structures: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.FeeStructure
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode fee structures: %w", err)
	}
	return out, nil
}
