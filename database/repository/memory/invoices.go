package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"edufees/database/repository"
	invoiceRepo "edufees/database/repository/invoice"
	"edufees/models"
)

type rowInvoice struct{ v models.Invoice }

// InvoiceRepo is an in-memory invoiceRepo.InvoiceRepository.
type InvoiceRepo struct {
	mu     sync.RWMutex
	rows   map[string]map[string]*rowInvoice
	faults *Faults
}

var _ invoiceRepo.InvoiceRepository = (*InvoiceRepo)(nil)

func (r *InvoiceRepo) Create(_ context.Context, inv *models.Invoice) error {
	if err := r.faults.take(OpInvoiceCreate); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.rows[inv.TenantID]
	if t == nil {
		t = map[string]*rowInvoice{}
		r.rows[inv.TenantID] = t
	}
	if _, ok := t[inv.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, row := range t {
		if row.v.InvoiceNumber == inv.InvoiceNumber {
			return repository.ErrDuplicate
		}
	}
	t[inv.ID] = &rowInvoice{v: cloneInvoice(*inv)}
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, tenantID, id string) (*models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[tenantID][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneInvoice(row.v)
	return &out, nil
}

func (r *InvoiceRepo) UpdateGuarded(_ context.Context, inv *models.Invoice, expectedVersion int64) error {
	if err := r.faults.take(OpInvoiceUpdate); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[inv.TenantID][inv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if row.v.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	next := cloneInvoice(*inv)
	next.Version = expectedVersion + 1
	row.v = next
	inv.Version = next.Version
	return nil
}

func (r *InvoiceRepo) Delete(_ context.Context, tenantID, id string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tenantID][id]
	if !ok {
		return repository.ErrNotFound
	}
	if row.v.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	delete(r.rows[tenantID], id)
	return nil
}

func (r *InvoiceRepo) ListByStudentSession(ctx context.Context, tenantID, studentID, session string) ([]models.Invoice, error) {
	return r.List(ctx, tenantID, invoiceRepo.Filter{StudentID: studentID, AcademicSession: session})
}

func (r *InvoiceRepo) List(_ context.Context, tenantID string, f invoiceRepo.Filter) ([]models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Invoice
	for _, row := range r.rows[tenantID] {
		inv := row.v
		if f.StudentID != "" && inv.StudentID != f.StudentID {
			continue
		}
		if f.ClassID != "" && inv.ClassID != f.ClassID {
			continue
		}
		if f.AcademicSession != "" && inv.AcademicSession != f.AcademicSession {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inv.Status) {
			continue
		}
		if !f.DueBefore.IsZero() && !inv.DueDate.Before(f.DueBefore) {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].InvoiceNumber < out[j].InvoiceNumber
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count returns the number of invoices stored for a tenant.
func (r *InvoiceRepo) Count(tenantID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows[tenantID])
}
