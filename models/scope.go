// File: models/scope.go
package models

import "errors"

// ErrMissingTenant is returned for any call without a tenant scope.
var ErrMissingTenant = errors.New("missing tenant scope")

// Actor identifies who performs an operation.
type Actor struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// RequestMeta describes where a call came from.
type RequestMeta struct {
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
}

// Scope is supplied by the identity collaborator for every ledger call.
type Scope struct {
	TenantID string
	Actor    Actor
	Meta     RequestMeta
}

// Validate rejects calls that are not tenant scoped.
func (s Scope) Validate() error {
	if s.TenantID == "" {
		return ErrMissingTenant
	}
	return nil
}
