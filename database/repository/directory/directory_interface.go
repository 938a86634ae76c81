package directoryRepo

import (
	"context"

	"edufees/models"
)

// StudentDirectory reads students owned by the user directory.
type StudentDirectory interface {
	// GetStudent looks a user up by id without tenant filtering; callers check
	// the tenant and role themselves.
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	// FindStudentsForClass returns the tenant's active students matching class
	// by id, display name or embedded grade number.
	FindStudentsForClass(ctx context.Context, tenantID string, class models.Class, sectionID string) ([]models.Student, error)
}

// ClassDirectory resolves class references.
type ClassDirectory interface {
	// ResolveClass finds a class by id or, failing that, by case-insensitive name.
	ResolveClass(ctx context.Context, tenantID, ref string) (*models.Class, error)
}

// TenantDirectory reads tenant branding.
type TenantDirectory interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// Directory bundles the read-only directory lookups.
type Directory interface {
	StudentDirectory
	ClassDirectory
	TenantDirectory
}
