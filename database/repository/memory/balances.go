package memory

import (
	"context"
	"sync"
	"time"

	"edufees/database/repository"
	balanceRepo "edufees/database/repository/balance"
	"edufees/models"

	"github.com/shopspring/decimal"
)

type rowBalance struct{ v models.StudentBalance }

// BalanceRepo is an in-memory balanceRepo.BalanceRepository.
type BalanceRepo struct {
	mu     sync.RWMutex
	rows   map[string]*rowBalance
	faults *Faults
}

var _ balanceRepo.BalanceRepository = (*BalanceRepo)(nil)

func balanceKey(tenantID, studentID, session string) string {
	return tenantID + "|" + studentID + "|" + session
}

func (r *BalanceRepo) row(tenantID, studentID, session string) *rowBalance {
	k := balanceKey(tenantID, studentID, session)
	row, ok := r.rows[k]
	if !ok {
		row = &rowBalance{v: models.StudentBalance{
			TenantID:               tenantID,
			StudentID:              studentID,
			AcademicSession:        session,
			TotalBalance:           decimal.Zero,
			TotalInvoiced:          decimal.Zero,
			TotalPaid:              decimal.Zero,
			PreviousSessionBalance: decimal.Zero,
		}}
		r.rows[k] = row
	}
	return row
}

func (r *BalanceRepo) Upsert(_ context.Context, b *models.StudentBalance) (*models.StudentBalance, error) {
	if err := r.faults.take(OpBalanceUpsert); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.row(b.TenantID, b.StudentID, b.AcademicSession)
	row.v.TotalBalance = b.TotalBalance
	row.v.TotalInvoiced = b.TotalInvoiced
	row.v.TotalPaid = b.TotalPaid
	row.v.InvoiceCount = b.InvoiceCount
	row.v.LastUpdated = b.LastUpdated
	out := row.v
	return &out, nil
}

func (r *BalanceRepo) SetPreviousSessionBalance(_ context.Context, tenantID, studentID, session string, amount decimal.Decimal, at time.Time) (*models.StudentBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.row(tenantID, studentID, session)
	row.v.PreviousSessionBalance = amount
	row.v.LastUpdated = at
	out := row.v
	return &out, nil
}

func (r *BalanceRepo) Get(_ context.Context, tenantID, studentID, session string) (*models.StudentBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[balanceKey(tenantID, studentID, session)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := row.v
	return &out, nil
}
