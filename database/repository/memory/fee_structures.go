package memory

import (
	"context"
	"sort"
	"sync"

	"edufees/database/repository"
	feeStructureRepo "edufees/database/repository/feestructure"
	"edufees/models"
)

type rowFS struct{ v models.FeeStructure }

// FeeStructureRepo is an in-memory feeStructureRepo.FeeStructureRepository.
type FeeStructureRepo struct {
	mu     sync.RWMutex
	rows   map[string]map[string]*rowFS
	faults *Faults
}

var _ feeStructureRepo.FeeStructureRepository = (*FeeStructureRepo)(nil)

func (r *FeeStructureRepo) Create(_ context.Context, fs *models.FeeStructure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.rows[fs.TenantID]
	if t == nil {
		t = map[string]*rowFS{}
		r.rows[fs.TenantID] = t
	}
	if _, ok := t[fs.ID]; ok {
		return repository.ErrDuplicate
	}
	t[fs.ID] = &rowFS{v: cloneFS(*fs)}
	return nil
}

func (r *FeeStructureRepo) Update(_ context.Context, fs *models.FeeStructure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[fs.TenantID][fs.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.v = cloneFS(*fs)
	return nil
}

func (r *FeeStructureRepo) GetByID(_ context.Context, tenantID, id string) (*models.FeeStructure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[tenantID][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneFS(row.v)
	return &out, nil
}

func (r *FeeStructureRepo) List(_ context.Context, tenantID string, f feeStructureRepo.Filter) ([]models.FeeStructure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.FeeStructure
	for _, row := range r.rows[tenantID] {
		fs := row.v
		if f.ClassID != "" && fs.ClassID != f.ClassID {
			continue
		}
		if f.SectionID != "" && fs.SectionID != f.SectionID {
			continue
		}
		if f.AcademicSession != "" && fs.AcademicSession != f.AcademicSession {
			continue
		}
		if f.ActiveOnly && !fs.IsActive {
			continue
		}
		out = append(out, cloneFS(fs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
