package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"edufees/database/repository"
	paymentRepo "edufees/database/repository/payment"
	"edufees/models"
)

type rowPayment struct{ v models.Payment }

// PaymentRepo is an in-memory paymentRepo.PaymentRepository.
type PaymentRepo struct {
	mu     sync.RWMutex
	rows   map[string]map[string]*rowPayment
	faults *Faults
}

var _ paymentRepo.PaymentRepository = (*PaymentRepo)(nil)

func (r *PaymentRepo) Create(_ context.Context, p *models.Payment) error {
	if err := r.faults.take(OpPaymentCreate); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.rows[p.TenantID]
	if t == nil {
		t = map[string]*rowPayment{}
		r.rows[p.TenantID] = t
	}
	if _, ok := t[p.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, row := range t {
		if row.v.ReceiptNumber == p.ReceiptNumber {
			return repository.ErrDuplicate
		}
	}
	t[p.ID] = &rowPayment{v: clonePayment(*p)}
	return nil
}

func (r *PaymentRepo) GetByID(_ context.Context, tenantID, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[tenantID][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clonePayment(row.v)
	return &out, nil
}

func (r *PaymentRepo) ListByInvoice(_ context.Context, tenantID, invoiceID string) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Payment
	for _, row := range r.rows[tenantID] {
		if row.v.InvoiceID == invoiceID {
			out = append(out, clonePayment(row.v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.Before(out[j].PaymentDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// guarded runs mutate under the write lock when cond holds for the stored row.
func (r *PaymentRepo) guarded(tenantID, id string, cond func(models.Payment) bool, mutate func(*models.Payment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tenantID][id]
	if !ok {
		return repository.ErrNotFound
	}
	if !cond(row.v) {
		return repository.ErrVersionConflict
	}
	mutate(&row.v)
	return nil
}

func (r *PaymentRepo) UpdateUnconfirmed(_ context.Context, p *models.Payment) error {
	next := clonePayment(*p)
	return r.guarded(p.TenantID, p.ID,
		func(cur models.Payment) bool { return !cur.IsConfirmed },
		func(cur *models.Payment) {
			cur.PaymentMethod = next.PaymentMethod
			cur.PaymentDate = next.PaymentDate
			cur.TransactionDetails = next.TransactionDetails
			cur.Remarks = next.Remarks
			cur.UpdatedAt = next.UpdatedAt
		})
}

func (r *PaymentRepo) MarkConfirmed(_ context.Context, tenantID, id, by string, at time.Time) error {
	if err := r.faults.take(OpPaymentConfirm); err != nil {
		return err
	}
	return r.guarded(tenantID, id,
		func(cur models.Payment) bool { return !cur.IsConfirmed },
		func(cur *models.Payment) {
			cur.IsConfirmed = true
			cur.ConfirmedBy = by
			cur.ConfirmedAt = &at
			cur.UpdatedAt = at
		})
}

func (r *PaymentRepo) MarkReversed(_ context.Context, tenantID, id string, rev models.Reversal) error {
	if err := r.faults.take(OpPaymentReverse); err != nil {
		return err
	}
	return r.guarded(tenantID, id,
		func(cur models.Payment) bool { return cur.IsConfirmed && !cur.IsReversed },
		func(cur *models.Payment) {
			cur.ApplyReversal(rev)
			cur.UpdatedAt = rev.ReversedAt
		})
}

func (r *PaymentRepo) ClearReversal(_ context.Context, tenantID, id string) error {
	if err := r.faults.take(OpPaymentClearReversal); err != nil {
		return err
	}
	return r.guarded(tenantID, id,
		func(models.Payment) bool { return true },
		func(cur *models.Payment) {
			cur.IsReversed = false
			cur.ReversedAt = nil
			cur.ReversedBy = ""
			cur.ReversalReason = ""
			cur.ReversalPaymentID = ""
		})
}

func (r *PaymentRepo) Remove(_ context.Context, tenantID, id string) error {
	if err := r.faults.take(OpPaymentRemove); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[tenantID][id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows[tenantID], id)
	return nil
}

// Count returns the number of payments stored for a tenant.
func (r *PaymentRepo) Count(tenantID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows[tenantID])
}
