package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"edufees/database/repository"
	directoryRepo "edufees/database/repository/directory"
	"edufees/models"
)

// Directory is an in-memory directoryRepo.Directory seeded by tests.
type Directory struct {
	mu       sync.RWMutex
	students map[string]models.Student
	classes  map[string]models.Class
	tenants  map[string]models.Tenant
}

var _ directoryRepo.Directory = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		students: map[string]models.Student{},
		classes:  map[string]models.Class{},
		tenants:  map[string]models.Tenant{},
	}
}

func (d *Directory) PutStudent(s models.Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students[s.ID] = s
}

func (d *Directory) PutClass(c models.Class) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classes[c.TenantID+"|"+c.ID] = c
}

func (d *Directory) PutTenant(t models.Tenant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants[t.ID] = t
}

func (d *Directory) GetStudent(_ context.Context, id string) (*models.Student, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (d *Directory) FindStudentsForClass(_ context.Context, tenantID string, class models.Class, sectionID string) ([]models.Student, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	match := models.NewClassMatcher(class, sectionID)
	var out []models.Student
	for _, s := range d.students {
		if s.TenantID != tenantID || s.Role != models.RoleStudent || !s.IsActive {
			continue
		}
		if match.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) ResolveClass(_ context.Context, tenantID, ref string) (*models.Class, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.classes[tenantID+"|"+ref]; ok {
		return &c, nil
	}
	for _, c := range d.classes {
		if c.TenantID == tenantID && strings.EqualFold(c.Name, ref) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *Directory) GetTenant(_ context.Context, tenantID string) (*models.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tenants[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}
