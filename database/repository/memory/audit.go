package memory

import (
	"context"
	"sort"
	"sync"

	auditRepo "edufees/database/repository/audit"
	"edufees/models"
)

// AuditRepo is an in-memory auditRepo.AuditRepository.
type AuditRepo struct {
	mu      sync.RWMutex
	entries []models.AuditLog
	faults  *Faults
}

var _ auditRepo.AuditRepository = (*AuditRepo)(nil)

func (r *AuditRepo) Insert(_ context.Context, entry *models.AuditLog) error {
	if err := r.faults.take(OpAuditInsert); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, cloneAudit(*entry))
	return nil
}

func (r *AuditRepo) FindByEntity(_ context.Context, tenantID string, kind models.EntityKind, entityID string, limit int) ([]models.AuditLog, error) {
	return r.find(func(a models.AuditLog) bool {
		return a.TenantID == tenantID && a.EntityType == kind && a.EntityID == entityID
	}, limit), nil
}

func (r *AuditRepo) FindByUser(_ context.Context, tenantID, userID string, q models.AuditQuery) ([]models.AuditLog, error) {
	return r.find(func(a models.AuditLog) bool {
		if a.TenantID != tenantID || a.UserID != userID {
			return false
		}
		if q.Action != "" && a.Action != q.Action {
			return false
		}
		if !q.StartDate.IsZero() && a.Timestamp.Before(q.StartDate) {
			return false
		}
		if !q.EndDate.IsZero() && a.Timestamp.After(q.EndDate) {
			return false
		}
		return true
	}, q.Limit), nil
}

func (r *AuditRepo) find(keep func(models.AuditLog) bool, limit int) []models.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if keep(r.entries[i]) {
			out = append(out, cloneAudit(r.entries[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// All returns every entry in insertion order.
func (r *AuditRepo) All() []models.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AuditLog, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, cloneAudit(e))
	}
	return out
}
