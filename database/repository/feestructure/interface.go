package feeStructureRepo

import (
	"context"

	"edufees/models"
)

// Filter narrows a structure listing. Empty fields are ignored.
type Filter struct {
	ClassID         string
	SectionID       string
	AcademicSession string
	ActiveOnly      bool
}

// FeeStructureRepository defines methods for fee structure data access.
type FeeStructureRepository interface {
	// Create inserts a new structure.
	Create(ctx context.Context, fs *models.FeeStructure) error
	// Update replaces an existing structure.
	Update(ctx context.Context, fs *models.FeeStructure) error
	// GetByID retrieves a structure inside a tenant.
	GetByID(ctx context.Context, tenantID, id string) (*models.FeeStructure, error)
	// List returns the tenant's structures matching filter.
	List(ctx context.Context, tenantID string, filter Filter) ([]models.FeeStructure, error)
}
