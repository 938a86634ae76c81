package paymentRepo

import (
	"context"
	"time"

	"edufees/models"
)

// PaymentRepository defines methods for payment data access. Payments are
// append-only: the guarded methods below are the only writes after Create.
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Payment, error)
	ListByInvoice(ctx context.Context, tenantID, invoiceID string) ([]models.Payment, error)

	// UpdateUnconfirmed writes the editable fields while the payment is unconfirmed.
	UpdateUnconfirmed(ctx context.Context, p *models.Payment) error
	// MarkConfirmed flips isConfirmed from false to true.
	MarkConfirmed(ctx context.Context, tenantID, id, by string, at time.Time) error
	// MarkReversed sets the reversal fields on a confirmed, not yet reversed payment.
	MarkReversed(ctx context.Context, tenantID, id string, r models.Reversal) error

	// ClearReversal and Remove undo MarkReversed and Create for a unit of
	// work that failed before it completed. Nothing else calls them.
	ClearReversal(ctx context.Context, tenantID, id string) error
	Remove(ctx context.Context, tenantID, id string) error
}
