package payment

import (
	"context"
	"time"

	"edufees/database/repository"
	directoryRepo "edufees/database/repository/directory"
	paymentRepo "edufees/database/repository/payment"
	"edufees/models"
	"edufees/services/audit"
	"edufees/services/balance"
	"edufees/services/gateway"
	"edufees/services/invoice"
	"edufees/services/numbering"
	"edufees/services/tasks"
	"edufees/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CollectInput is money received against one invoice.
type CollectInput struct {
	InvoiceID          string            `json:"invoiceId" binding:"required"`
	Amount             decimal.Decimal   `json:"amount"`
	PaymentMethod      string            `json:"paymentMethod" binding:"required,paymentmethod"`
	PaymentDate        time.Time         `json:"paymentDate"`
	TransactionDetails map[string]string `json:"transactionDetails,omitempty"`
	Remarks            string            `json:"remarks,omitempty"`
}

// CollectResult is the stored payment and the invoice it settled.
type CollectResult struct {
	Payment models.Payment `json:"payment"`
	Invoice models.Invoice `json:"invoice"`
}

// ReverseResult pairs the reversed payment with its compensating record.
type ReverseResult struct {
	Original models.Payment `json:"original"`
	Reversal models.Payment `json:"reversal"`
	Invoice  models.Invoice `json:"invoice"`
}

// PaymentService is the payment ledger. Payments are append-only: a confirmed
// payment is only ever undone by a compensating payment.
type PaymentService interface {
	Collect(ctx context.Context, scope models.Scope, in CollectInput) (*CollectResult, error)
	Confirm(ctx context.Context, scope models.Scope, id string) (*models.Payment, error)
	Reverse(ctx context.Context, scope models.Scope, id, reason string) (*ReverseResult, error)
	// Update is the only mutation entry point for payment fields.
	Update(ctx context.Context, scope models.Scope, id string, patch models.PaymentPatch) (*models.Payment, error)
	Get(ctx context.Context, scope models.Scope, id string) (*models.Payment, error)
	ListByInvoice(ctx context.Context, scope models.Scope, invoiceID string) ([]models.Payment, error)
	Receipt(ctx context.Context, scope models.Scope, id string) (*models.ReceiptBundle, error)
}

type DefaultPaymentService struct {
	Payments    paymentRepo.PaymentRepository
	Invoices    invoice.InvoiceService
	Directory   directoryRepo.Directory
	Numbering   numbering.NumberingService
	Balances    balance.BalanceService
	Audit       audit.AuditService
	Tx          repository.Transactor
	Gateway     gateway.Verifier
	Receipts    tasks.ReceiptPublisher
	AutoConfirm bool
	Logger      *zap.Logger
	Now         func() time.Time
}

// Options carries the optional collaborators of the payment ledger.
type Options struct {
	Gateway     gateway.Verifier
	Receipts    tasks.ReceiptPublisher
	AutoConfirm bool
}

func NewDefaultPaymentService(
	payments paymentRepo.PaymentRepository,
	invoices invoice.InvoiceService,
	directory directoryRepo.Directory,
	numberingSvc numbering.NumberingService,
	balanceSvc balance.BalanceService,
	auditSvc audit.AuditService,
	tx repository.Transactor,
	opts Options,
	logger *zap.Logger,
) *DefaultPaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	receipts := opts.Receipts
	if receipts == nil {
		receipts = tasks.NopReceiptPublisher{}
	}
	return &DefaultPaymentService{
		Payments:    payments,
		Invoices:    invoices,
		Directory:   directory,
		Numbering:   numberingSvc,
		Balances:    balanceSvc,
		Audit:       auditSvc,
		Tx:          tx,
		Gateway:     opts.Gateway,
		Receipts:    receipts,
		AutoConfirm: opts.AutoConfirm,
		Logger:      logger,
		Now:         time.Now,
	}
}

func (s *DefaultPaymentService) load(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	p, err := s.Payments.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, utils.FromRepo(err, "payment_not_found", "payment")
	}
	return p, nil
}

func (s *DefaultPaymentService) Get(ctx context.Context, scope models.Scope, id string) (*models.Payment, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	return s.load(ctx, scope.TenantID, id)
}

func (s *DefaultPaymentService) ListByInvoice(ctx context.Context, scope models.Scope, invoiceID string) ([]models.Payment, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if _, err := s.Invoices.Load(ctx, scope.TenantID, invoiceID); err != nil {
		return nil, err
	}
	out, err := s.Payments.ListByInvoice(ctx, scope.TenantID, invoiceID)
	if err != nil {
		return nil, utils.Infra("could not list payments", err)
	}
	return out, nil
}

// afterCommit runs the non-authoritative follow-ups of a committed payment write.
func (s *DefaultPaymentService) afterCommit(ctx context.Context, inv *models.Invoice, receipt *models.ReceiptPayload) {
	if _, err := s.Balances.UpdateBalance(ctx, inv.TenantID, inv.StudentID, inv.AcademicSession); err != nil {
		s.Logger.Error("balance recompute failed",
			zap.String("tenantId", inv.TenantID),
			zap.String("studentId", inv.StudentID),
			zap.Error(err),
		)
	}
	if receipt == nil {
		return
	}
	if err := s.Receipts.PublishReceipt(ctx, *receipt); err != nil {
		s.Logger.Warn("receipt not queued", zap.String("paymentId", receipt.PaymentID), zap.Error(err))
	}
}
