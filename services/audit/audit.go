package audit

import (
	"context"
	"time"

	auditRepo "edufees/database/repository/audit"
	"edufees/models"
	"edufees/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxEntries caps every audit query.
const MaxEntries = 100

// AuditService records and reads the write-once audit trail.
type AuditService interface {
	// LogAction appends one entry. Failures are logged, never returned, so a
	// committed mutation is never undone because its audit entry was lost.
	LogAction(ctx context.Context, scope models.Scope, action models.AuditAction, ref models.EntityRef, details map[string]any)
	// GetEntityAuditTrail returns the latest entries for an entity, newest first.
	GetEntityAuditTrail(ctx context.Context, scope models.Scope, ref models.EntityRef) ([]models.AuditLog, error)
	// GetUserActivity returns a user's entries, newest first.
	GetUserActivity(ctx context.Context, scope models.Scope, userID string, q models.AuditQuery) ([]models.AuditLog, error)
}

type DefaultAuditService struct {
	Repo   auditRepo.AuditRepository
	Logger *zap.Logger
	Now    func() time.Time
}

func NewDefaultAuditService(repo auditRepo.AuditRepository, logger *zap.Logger) *DefaultAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultAuditService{Repo: repo, Logger: logger, Now: time.Now}
}

func (s *DefaultAuditService) LogAction(ctx context.Context, scope models.Scope, action models.AuditAction, ref models.EntityRef, details map[string]any) {
	entry := &models.AuditLog{
		ID:         uuid.New().String(),
		TenantID:   scope.TenantID,
		Timestamp:  s.Now().UTC(),
		Action:     action,
		EntityType: ref.Kind,
		EntityID:   ref.ID,
		UserID:     scope.Actor.UserID,
		UserName:   scope.Actor.UserName,
		UserRole:   scope.Actor.Role,
		Details:    details,
		IPAddress:  scope.Meta.IPAddress,
		UserAgent:  scope.Meta.UserAgent,
	}
	// The mutation is already committed; a cancelled request must not drop its entry.
	if err := s.Repo.Insert(context.WithoutCancel(ctx), entry); err != nil {
		s.Logger.Error("failed to write audit entry",
			zap.String("tenantId", scope.TenantID),
			zap.String("action", string(action)),
			zap.String("entityType", string(ref.Kind)),
			zap.String("entityId", ref.ID),
			zap.Error(err),
		)
	}
}

func (s *DefaultAuditService) GetEntityAuditTrail(ctx context.Context, scope models.Scope, ref models.EntityRef) ([]models.AuditLog, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if ref.Kind == "" || ref.ID == "" {
		return nil, utils.Validation("invalid_entity", "entityId", "entity type and id are required")
	}
	entries, err := s.Repo.FindByEntity(ctx, scope.TenantID, ref.Kind, ref.ID, MaxEntries)
	if err != nil {
		return nil, utils.Infra("audit log unavailable", err)
	}
	return entries, nil
}

func (s *DefaultAuditService) GetUserActivity(ctx context.Context, scope models.Scope, userID string, q models.AuditQuery) ([]models.AuditLog, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, utils.Validation("invalid_user", "userId", "user id is required")
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate) {
		return nil, utils.Validation("invalid_date_range", "endDate", "endDate is before startDate")
	}
	if q.Limit <= 0 || q.Limit > MaxEntries {
		q.Limit = MaxEntries
	}
	entries, err := s.Repo.FindByUser(ctx, scope.TenantID, userID, q)
	if err != nil {
		return nil, utils.Infra("audit log unavailable", err)
	}
	return entries, nil
}
