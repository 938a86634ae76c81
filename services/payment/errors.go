package payment

import (
	"errors"

	"edufees/database/repository"
	"edufees/models"
	"edufees/utils"
)

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrPaymentConfirmed):
		return utils.Invariant("payment_confirmed_immutable", "confirmed payments cannot be modified", err)
	case errors.Is(err, models.ErrPaymentAlreadyConfirmed):
		return utils.Conflict("payment_already_confirmed", err.Error(), err)
	case errors.Is(err, models.ErrPaymentNotConfirmed):
		return utils.Conflict("payment_not_confirmed", "only confirmed payments can be reversed", err)
	case errors.Is(err, models.ErrPaymentAlreadyReversed):
		return utils.Conflict("payment_already_reversed", err.Error(), err)
	case errors.Is(err, models.ErrPaymentIsReversal):
		return utils.Invariant("payment_is_reversal", err.Error(), err)
	}
	return utils.FromRepo(err, "payment_not_found", "payment")
}

// txError classifies the outcome of a failed unit of work. A failed undo is
// reported as infrastructure trouble even when the cause was a rule violation.
func txError(err error) error {
	var pw *repository.PartialWriteError
	if errors.As(err, &pw) {
		return utils.Infra("payment write failed and could not be fully undone", err)
	}
	var le *utils.LedgerError
	if errors.As(err, &le) {
		return le
	}
	return utils.FromRepo(err, "payment_not_found", "payment")
}
