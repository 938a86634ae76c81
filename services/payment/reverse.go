package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"edufees/database/repository"
	"edufees/models"
	"edufees/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reverse undoes a confirmed payment by appending a compensating payment of
// the negated amount. The original keeps its amount and confirmation; only
// its reversal fields are set.
func (s *DefaultPaymentService) Reverse(ctx context.Context, scope models.Scope, id, reason string) (*ReverseResult, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, utils.Validation("missing_reason", "reason", "a reversal reason is required")
	}

	orig, err := s.load(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := orig.CanReverse(); err != nil {
		return nil, classify(err)
	}
	inv, err := s.Invoices.Load(ctx, scope.TenantID, orig.InvoiceID)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	number, err := s.Numbering.ReceiptNumber(ctx, scope.TenantID, now)
	if err != nil {
		return nil, err
	}
	rev := &models.Payment{
		ID:              uuid.New().String(),
		TenantID:        scope.TenantID,
		ReceiptNumber:   number,
		InvoiceID:       orig.InvoiceID,
		StudentID:       orig.StudentID,
		AcademicSession: orig.AcademicSession,
		Amount:          negate(orig.Amount),
		PaymentMethod:   orig.PaymentMethod,
		PaymentDate:     now,
		Remarks:         fmt.Sprintf("Reversal of %s: %s", orig.ReceiptNumber, reason),
		CollectedBy:     scope.Actor.UserID,
		IsConfirmed:     true,
		ConfirmedBy:     scope.Actor.UserID,
		ConfirmedAt:     &now,
		ReversalOf:      orig.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	marker := models.Reversal{
		ReversedAt:        now,
		ReversedBy:        scope.Actor.UserID,
		Reason:            reason,
		ReversalPaymentID: rev.ID,
	}

	// The original is claimed first so that only one reversal ever reaches
	// the invoice.
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, comp *repository.Compensations) error {
		if err := s.Payments.MarkReversed(ctx, orig.TenantID, orig.ID, marker); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return classify(models.ErrPaymentAlreadyReversed)
			}
			return err
		}
		comp.Add(func(ctx context.Context) error { return s.Payments.ClearReversal(ctx, orig.TenantID, orig.ID) })

		if err := s.Invoices.RecordPayment(ctx, inv, rev.Amount, comp); err != nil {
			return err
		}
		if err := s.Payments.Create(ctx, rev); err != nil {
			return err
		}
		comp.Add(func(ctx context.Context) error { return s.Payments.Remove(ctx, rev.TenantID, rev.ID) })
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	orig.ApplyReversal(marker)

	s.Logger.Info("payment reversed",
		zap.String("tenantId", orig.TenantID),
		zap.String("paymentId", orig.ID),
		zap.String("reversalId", rev.ID),
		zap.String("amount", orig.Amount.String()),
	)
	s.Audit.LogAction(ctx, scope, models.ActionPaymentReversed, models.PaymentRef(orig), map[string]any{
		"receiptNumber":         orig.ReceiptNumber,
		"reversalPaymentId":     rev.ID,
		"reversalReceiptNumber": rev.ReceiptNumber,
		"amount":                orig.Amount.String(),
		"reason":                reason,
		"invoiceId":             inv.ID,
		"balanceAmount":         inv.BalanceAmount.String(),
	})
	s.afterCommit(ctx, inv, &models.ReceiptPayload{TenantID: rev.TenantID, PaymentID: rev.ID, Reversal: true})

	return &ReverseResult{Original: *orig, Reversal: *rev, Invoice: *inv}, nil
}
