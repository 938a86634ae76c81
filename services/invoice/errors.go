package invoice

import (
	"errors"

	"edufees/models"
	"edufees/utils"
)

// classify maps the invoice state-machine errors onto the ledger taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrPaymentExceedsDue):
		return utils.Validation("payment_exceeds_balance", "amount", err.Error())
	case errors.Is(err, models.ErrReversalExceedsPaid):
		return utils.Invariant("reversal_exceeds_paid", err.Error(), err)
	case errors.Is(err, models.ErrInvoicePaid):
		return utils.Conflict("invoice_paid", err.Error(), err)
	case errors.Is(err, models.ErrInvoiceCancelled):
		return utils.Conflict("invoice_cancelled", err.Error(), err)
	case errors.Is(err, models.ErrInvoiceHasPayments):
		return utils.Conflict("invoice_has_payments", err.Error(), err)
	case errors.Is(err, models.ErrTotalBelowPaid):
		return utils.Conflict("total_below_paid", err.Error(), err)
	}
	return utils.FromRepo(err, "invoice_not_found", "invoice")
}
