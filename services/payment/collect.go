package payment

import (
	"context"
	"errors"
	"maps"
	"time"

	"edufees/database/repository"
	"edufees/models"
	"edufees/services/gateway"
	"edufees/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentIntentKey is the transactionDetails key holding a Stripe PaymentIntent id.
const PaymentIntentKey = "paymentIntentId"

func (s *DefaultPaymentService) Collect(ctx context.Context, scope models.Scope, in CollectInput) (*CollectResult, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, utils.Validation("invalid_amount", "amount", "amount must be greater than zero")
	}
	method, err := models.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, utils.Validation("invalid_payment_method", "paymentMethod", err.Error())
	}
	now := s.Now().UTC()
	paidAt := in.PaymentDate.UTC()
	if in.PaymentDate.IsZero() {
		paidAt = now
	}
	if paidAt.After(now.Add(24 * time.Hour)) {
		return nil, utils.Validation("invalid_payment_date", "paymentDate", "paymentDate cannot be in the future")
	}

	inv, err := s.Invoices.Load(ctx, scope.TenantID, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	// Checked again under the version guard; this only avoids burning a receipt number.
	if inv.Status == models.InvoiceStatusCancelled {
		return nil, utils.Conflict("invoice_cancelled", "invoice is cancelled", models.ErrInvoiceCancelled)
	}
	if in.Amount.GreaterThan(inv.BalanceAmount) {
		return nil, utils.Validation("payment_exceeds_balance", "amount",
			"amount "+in.Amount.String()+" exceeds invoice balance "+inv.BalanceAmount.String())
	}
	if err := s.verifyOnline(ctx, scope.TenantID, method, in); err != nil {
		return nil, err
	}

	number, err := s.Numbering.ReceiptNumber(ctx, scope.TenantID, now)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		ID:                 uuid.New().String(),
		TenantID:           scope.TenantID,
		ReceiptNumber:      number,
		InvoiceID:          inv.ID,
		StudentID:          inv.StudentID,
		AcademicSession:    inv.AcademicSession,
		Amount:             in.Amount,
		PaymentMethod:      method,
		PaymentDate:        paidAt,
		TransactionDetails: maps.Clone(in.TransactionDetails),
		Remarks:            in.Remarks,
		CollectedBy:        scope.Actor.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if s.AutoConfirm {
		p.IsConfirmed = true
		p.ConfirmedBy = scope.Actor.UserID
		p.ConfirmedAt = &now
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context, comp *repository.Compensations) error {
		if err := s.Invoices.RecordPayment(ctx, inv, p.Amount, comp); err != nil {
			return err
		}
		if err := s.Payments.Create(ctx, p); err != nil {
			return err
		}
		comp.Add(func(ctx context.Context) error { return s.Payments.Remove(ctx, p.TenantID, p.ID) })
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	s.Logger.Info("payment collected",
		zap.String("tenantId", p.TenantID),
		zap.String("paymentId", p.ID),
		zap.String("receiptNumber", p.ReceiptNumber),
		zap.String("invoiceId", inv.ID),
		zap.String("amount", p.Amount.String()),
	)
	s.Audit.LogAction(ctx, scope, models.ActionPaymentCollected, models.PaymentRef(p), map[string]any{
		"receiptNumber": p.ReceiptNumber,
		"invoiceId":     inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"amount":        p.Amount.String(),
		"paymentMethod": string(p.PaymentMethod),
		"confirmed":     p.IsConfirmed,
		"balanceAmount": inv.BalanceAmount.String(),
	})
	s.afterCommit(ctx, inv, &models.ReceiptPayload{TenantID: p.TenantID, PaymentID: p.ID})

	return &CollectResult{Payment: *p, Invoice: *inv}, nil
}

// verifyOnline checks Online payments that reference a gateway intent.
func (s *DefaultPaymentService) verifyOnline(ctx context.Context, tenantID string, method models.PaymentMethod, in CollectInput) error {
	intentID := in.TransactionDetails[PaymentIntentKey]
	if method != models.PaymentMethodOnline || intentID == "" || s.Gateway == nil {
		return nil
	}
	currency := in.TransactionDetails["currency"]
	if currency == "" {
		if t, err := s.Directory.GetTenant(ctx, tenantID); err == nil {
			currency = t.Currency
		}
	}
	err := s.Gateway.Verify(ctx, intentID, in.Amount, currency)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrNotVerified):
		return utils.Validation("payment_not_verified", "transactionDetails."+PaymentIntentKey, err.Error())
	default:
		return utils.Infra("payment gateway unavailable", err)
	}
}

func (s *DefaultPaymentService) Confirm(ctx context.Context, scope models.Scope, id string) (*models.Payment, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	if err := p.Confirm(scope.Actor.UserID, now); err != nil {
		return nil, classify(err)
	}
	if err := s.Payments.MarkConfirmed(ctx, scope.TenantID, id, scope.Actor.UserID, now); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, classify(models.ErrPaymentAlreadyConfirmed)
		}
		return nil, classify(err)
	}
	p.UpdatedAt = now

	s.Audit.LogAction(ctx, scope, models.ActionPaymentConfirmed, models.PaymentRef(p), map[string]any{
		"receiptNumber": p.ReceiptNumber,
		"amount":        p.Amount.String(),
	})
	return p, nil
}

func (s *DefaultPaymentService) Update(ctx context.Context, scope models.Scope, id string, patch models.PaymentPatch) (*models.Payment, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, utils.Validation("empty_update", "", "nothing to update")
	}
	if patch.PaymentMethod != nil {
		m, err := models.ParsePaymentMethod(string(*patch.PaymentMethod))
		if err != nil {
			return nil, utils.Validation("invalid_payment_method", "paymentMethod", err.Error())
		}
		patch.PaymentMethod = &m
	}

	p, err := s.load(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(patch); err != nil {
		return nil, classify(err)
	}
	p.UpdatedAt = s.Now().UTC()
	if err := s.Payments.UpdateUnconfirmed(ctx, p); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, classify(models.ErrPaymentConfirmed)
		}
		return nil, classify(err)
	}

	s.Audit.LogAction(ctx, scope, models.ActionPaymentUpdated, models.PaymentRef(p), map[string]any{
		"fields": patchedFields(patch),
	})
	return p, nil
}

func patchedFields(p models.PaymentPatch) []string {
	var out []string
	if p.PaymentMethod != nil {
		out = append(out, "paymentMethod")
	}
	if p.PaymentDate != nil {
		out = append(out, "paymentDate")
	}
	if p.TransactionDetails != nil {
		out = append(out, "transactionDetails")
	}
	if p.Remarks != nil {
		out = append(out, "remarks")
	}
	return out
}

// negate is the compensating amount of a payment.
func negate(amount decimal.Decimal) decimal.Decimal { return amount.Neg() }
