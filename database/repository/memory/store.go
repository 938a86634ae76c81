// Package memory holds in-process implementations of every repository.
// They keep the same guarded-update semantics as the Mongo repositories
// and are used by the service tests and by STORAGE=memory deployments.
package memory

import (
	"sync"

	"edufees/database/repository"

	"go.uber.org/zap"
)

// Store groups one instance of each repository over shared fault injection.
type Store struct {
	Counters      *CounterRepo
	FeeStructures *FeeStructureRepo
	Invoices      *InvoiceRepo
	Payments      *PaymentRepo
	Balances      *BalanceRepo
	Audit         *AuditRepo
	Directory     *Directory

	faults *Faults
}

// NewStore returns an empty store.
func NewStore() *Store {
	f := &Faults{}
	return &Store{
		Counters:      &CounterRepo{faults: f, seq: map[string]int64{}},
		FeeStructures: &FeeStructureRepo{faults: f, rows: map[string]map[string]*rowFS{}},
		Invoices:      &InvoiceRepo{faults: f, rows: map[string]map[string]*rowInvoice{}},
		Payments:      &PaymentRepo{faults: f, rows: map[string]map[string]*rowPayment{}},
		Balances:      &BalanceRepo{faults: f, rows: map[string]*rowBalance{}},
		Audit:         &AuditRepo{faults: f},
		Directory:     NewDirectory(),
		faults:        f,
	}
}

// Faults exposes one-shot error injection for tests.
func (s *Store) Faults() *Faults { return s.faults }

// Transactor returns a sequential transactor, the only mode the memory store supports.
func (s *Store) Transactor(logger *zap.Logger) repository.Transactor {
	return repository.NewSequentialTransactor(logger)
}

// Fault operation names.
const (
	OpCounterIncrement     = "counters.increment"
	OpInvoiceCreate        = "invoices.create"
	OpInvoiceUpdate        = "invoices.update"
	OpPaymentCreate        = "payments.create"
	OpPaymentConfirm       = "payments.confirm"
	OpPaymentReverse       = "payments.reverse"
	OpPaymentRemove        = "payments.remove"
	OpPaymentClearReversal = "payments.clearReversal"
	OpBalanceUpsert        = "balances.upsert"
	OpAuditInsert          = "audit.insert"
)

// Faults makes the next call of an operation fail with a chosen error.
type Faults struct {
	mu      sync.Mutex
	pending map[string][]error
	sticky  map[string]error
}

// FailNext makes the next call of op return err.
func (f *Faults) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = map[string][]error{}
	}
	f.pending[op] = append(f.pending[op], err)
}

// FailAlways makes every call of op return err until Clear is called.
func (f *Faults) FailAlways(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sticky == nil {
		f.sticky = map[string]error{}
	}
	f.sticky[op] = err
}

// Clear removes every injected fault.
func (f *Faults) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
	f.sticky = nil
}

func (f *Faults) take(op string) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.sticky[op]; ok {
		return err
	}
	q := f.pending[op]
	if len(q) == 0 {
		return nil
	}
	f.pending[op] = q[1:]
	return q[0]
}
