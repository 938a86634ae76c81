package directoryRepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"edufees/database"
	"edufees/database/repository"
	"edufees/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDirectory reads the users, classes and tenants collections.
type MongoDirectory struct {
	users   *mongo.Collection
	classes *mongo.Collection
	tenants *mongo.Collection
}

func NewMongoDirectory() Directory {
	db := database.Database()
	return &MongoDirectory{
		users:   db.Collection("users"),
		classes: db.Collection("classes"),
		tenants: db.Collection("tenants"),
	}
}

func (d *MongoDirectory) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.Student
	err := d.users.FindOne(ctx, bson.M{"id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return &s, nil
}

func (d *MongoDirectory) FindStudentsForClass(ctx context.Context, tenantID string, class models.Class, sectionID string) ([]models.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var or bson.A
	if class.ID != "" {
		or = append(or, bson.M{"classId": class.ID})
	}
	if class.Name != "" {
		or = append(or, bson.M{"className": bson.M{"$regex": "^\\s*" + regexp.QuoteMeta(class.Name) + "\\s*$", "$options": "i"}})
	}
	if g := class.GradeNumber(); g != "" {
		or = append(or, bson.M{"className": bson.M{"$regex": models.GradePattern(g)}})
	}
	if len(or) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"tenantId": tenantID,
		"role":     models.RoleStudent,
		"isActive": true,
		"$or":      or,
	}
	if sectionID != "" {
		filter["sectionId"] = sectionID
	}

	cursor, err := d.users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query students for class %s: %w", class.Name, err)
	}
	defer cursor.Close(ctx)

	var out []models.Student
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return out, nil
}

func (d *MongoDirectory) ResolveClass(ctx context.Context, tenantID, ref string) (*models.Class, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Class
	err := d.classes.FindOne(ctx, bson.M{"tenantId": tenantID, "id": ref}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		byName := bson.M{"tenantId": tenantID, "name": bson.M{"$regex": "^" + regexp.QuoteMeta(ref) + "$", "$options": "i"}}
		err = d.classes.FindOne(ctx, byName).Decode(&c)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve class %s: %w", ref, err)
	}
	return &c, nil
}

func (d *MongoDirectory) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var t models.Tenant
	err := d.tenants.FindOne(ctx, bson.M{"id": tenantID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tenant %s: %w", tenantID, err)
	}
	return &t, nil
}
