package utils

import (
	"errors"

	"edufees/database/repository"
	"edufees/models"
)

// RequireScope rejects calls without a tenant.
func RequireScope(s models.Scope) error {
	if err := s.Validate(); err != nil {
		return Unscoped("request is not scoped to a tenant")
	}
	return nil
}

// FromRepo classifies a repository error. notFoundCode names the missing
// entity ("invoice_not_found"); what is used in messages.
func FromRepo(err error, notFoundCode, what string) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	switch {
	case errors.As(err, &le):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(notFoundCode, what+" not found")
	case errors.Is(err, repository.ErrVersionConflict):
		return Conflict("concurrent_modification", what+" was modified concurrently, retry the request", err)
	case errors.Is(err, repository.ErrDuplicate):
		return Conflict("duplicate", what+" already exists", err)
	default:
		return Infra("storage unavailable while accessing "+what, err)
	}
}
