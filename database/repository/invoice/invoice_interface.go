package invoiceRepo

import (
	"context"
	"time"

	"edufees/models"
)

// Filter narrows an invoice listing. Zero fields are ignored.
type Filter struct {
	StudentID       string
	ClassID         string
	AcademicSession string
	Statuses        []models.InvoiceStatus
	DueBefore       time.Time
	Limit           int
}

// InvoiceRepository defines methods for invoice data access.
// Every read and write is scoped to a tenant.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Invoice, error)

	// UpdateGuarded persists inv only if the stored version still equals
	// expectedVersion. On success inv.Version is expectedVersion+1; a lost
	// race returns repository.ErrVersionConflict and nothing is written.
	UpdateGuarded(ctx context.Context, inv *models.Invoice, expectedVersion int64) error

	// Delete removes the invoice if it is still at expectedVersion.
	Delete(ctx context.Context, tenantID, id string, expectedVersion int64) error

	ListByStudentSession(ctx context.Context, tenantID, studentID, session string) ([]models.Invoice, error)
	List(ctx context.Context, tenantID string, filter Filter) ([]models.Invoice, error)
}
