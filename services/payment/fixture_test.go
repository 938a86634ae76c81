package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"edufees/database/repository/memory"
	"edufees/models"
	"edufees/services/audit"
	"edufees/services/balance"
	"edufees/services/invoice"
	"edufees/services/numbering"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	today = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	scope = models.Scope{
		TenantID: "t1",
		Actor:    models.Actor{UserID: "acc1", UserName: "Accountant", Role: "accountant"},
	}
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.ReceiptPayload
}

func (p *recordingPublisher) PublishReceipt(_ context.Context, payload models.ReceiptPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, payload)
	return nil
}

func (p *recordingPublisher) Sent() []models.ReceiptPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ReceiptPayload(nil), p.sent...)
}

type fixture struct {
	store     *memory.Store
	payments  *DefaultPaymentService
	invoices  *invoice.DefaultInvoiceService
	balances  *balance.DefaultBalanceService
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return today }

	auditSvc := audit.NewDefaultAuditService(store.Audit, nil)
	auditSvc.Now = clock
	balanceSvc := balance.NewDefaultBalanceService(store.Balances, store.Invoices, nil, auditSvc, nil)
	balanceSvc.Now = clock
	numberingSvc := numbering.NewDefaultNumberingService(store.Counters, "", "")
	invSvc := invoice.NewDefaultInvoiceService(store.Invoices, store.FeeStructures, store.Directory,
		numberingSvc, balanceSvc, auditSvc, nil)
	invSvc.Now = clock

	pub := &recordingPublisher{}
	if opts.Receipts == nil {
		opts.Receipts = pub
	}
	paySvc := NewDefaultPaymentService(store.Payments, invSvc, store.Directory, numberingSvc,
		balanceSvc, auditSvc, store.Transactor(nil), opts, nil)
	paySvc.Now = clock

	store.Directory.PutTenant(models.Tenant{ID: "t1", Name: "Hillview School", Currency: "KES"})
	store.Directory.PutClass(models.Class{ID: "c5", TenantID: "t1", Name: "Grade 5", Grade: "5"})
	store.Directory.PutStudent(models.Student{
		ID: "s1", TenantID: "t1", Name: "Amani", Role: models.RoleStudent,
		ClassID: "c5", ClassName: "Grade 5", IsActive: true,
	})

	return &fixture{store: store, payments: paySvc, invoices: invSvc, balances: balanceSvc, publisher: pub}
}

func (f *fixture) invoice(t *testing.T, amount int64) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.Generate(context.Background(), scope, invoice.GenerateInput{
		FeeSource: invoice.FeeSource{Items: []invoice.ItemInput{
			{FeeHeadName: "Tuition", Amount: decimal.NewFromInt(amount), Frequency: "monthly"},
		}},
		StudentID:       "s1",
		DueDate:         today.AddDate(0, 0, 30),
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) collect(t *testing.T, invoiceID, amount string) *CollectResult {
	t.Helper()
	res, err := f.payments.Collect(context.Background(), scope, CollectInput{
		InvoiceID:     invoiceID,
		Amount:        dec(amount),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) stored(t *testing.T, invoiceID string) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.Load(context.Background(), "t1", invoiceID)
	require.NoError(t, err)
	return inv
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }
