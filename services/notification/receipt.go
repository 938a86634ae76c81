package notification

import (
	"context"

	"edufees/models"

	"go.uber.org/zap"
)

// ReceiptNotifier delivers a receipt to the student's guardian.
type ReceiptNotifier interface {
	SendReceipt(ctx context.Context, receipt models.ReceiptBundle, reversal bool) error
}

// LogReceiptNotifier writes receipts to the log. It is the default until a
// delivery channel is configured for the tenant.
type LogReceiptNotifier struct {
	Logger *zap.Logger
}

func NewLogReceiptNotifier(logger *zap.Logger) *LogReceiptNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReceiptNotifier{Logger: logger}
}

func (n *LogReceiptNotifier) SendReceipt(_ context.Context, r models.ReceiptBundle, reversal bool) error {
	n.Logger.Info("receipt issued",
		zap.String("tenant", r.Tenant.Name),
		zap.String("receiptNumber", r.Payment.ReceiptNumber),
		zap.String("invoiceNumber", r.Invoice.InvoiceNumber),
		zap.String("student", r.Student.Name),
		zap.String("recipient", recipient(r.Student)),
		zap.String("amount", r.Payment.Amount.String()),
		zap.String("currency", r.Tenant.Currency),
		zap.String("balance", r.Invoice.BalanceAmount.String()),
		zap.Bool("reversal", reversal),
	)
	return nil
}

func recipient(s models.Student) string {
	if s.GuardianEmail != "" {
		return s.GuardianEmail
	}
	return s.Email
}
