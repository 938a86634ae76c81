package feestructure

import (
	"context"
	"strings"
	"time"

	feeStructureRepo "edufees/database/repository/feestructure"
	"edufees/models"
	"edufees/services/audit"
	"edufees/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeeHeadInput is a fee head as supplied by a caller; Frequency is normalized on save.
type FeeHeadInput struct {
	Name         string          `json:"name" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Frequency    string          `json:"frequency" binding:"required,frequency"`
	IsCompulsory *bool           `json:"isCompulsory,omitempty"`
	DueDay       int             `json:"dueDay" binding:"omitempty,min=1,max=31"`
}

type CreateInput struct {
	Name            string         `json:"name" binding:"required"`
	ClassID         string         `json:"classId" binding:"required"`
	SectionID       string         `json:"sectionId,omitempty"`
	AcademicSession string         `json:"academicSession" binding:"required"`
	Description     string         `json:"description,omitempty"`
	FeeHeads        []FeeHeadInput `json:"feeHeads" binding:"required,min=1,dive"`
}

// UpdateInput changes only the fields that are set. FeeHeads replaces the whole list.
type UpdateInput struct {
	Name        *string        `json:"name,omitempty"`
	SectionID   *string        `json:"sectionId,omitempty"`
	Description *string        `json:"description,omitempty"`
	FeeHeads    []FeeHeadInput `json:"feeHeads,omitempty" binding:"omitempty,dive"`
	IsActive    *bool          `json:"isActive,omitempty"`
}

// FeeStructureService is the catalog of fee structures. Structures are never hard-deleted.
type FeeStructureService interface {
	Create(ctx context.Context, scope models.Scope, in CreateInput) (*models.FeeStructure, error)
	Update(ctx context.Context, scope models.Scope, id string, in UpdateInput) (*models.FeeStructure, error)
	Deactivate(ctx context.Context, scope models.Scope, id string) (*models.FeeStructure, error)
	Get(ctx context.Context, scope models.Scope, id string) (*models.FeeStructure, error)
	List(ctx context.Context, scope models.Scope, filter feeStructureRepo.Filter) ([]models.FeeStructure, error)
}

type DefaultFeeStructureService struct {
	Repo   feeStructureRepo.FeeStructureRepository
	Audit  audit.AuditService
	Logger *zap.Logger
	Now    func() time.Time
}

func NewDefaultFeeStructureService(repo feeStructureRepo.FeeStructureRepository, auditSvc audit.AuditService, logger *zap.Logger) *DefaultFeeStructureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultFeeStructureService{Repo: repo, Audit: auditSvc, Logger: logger, Now: time.Now}
}

// buildHeads validates and normalizes the caller's fee heads.
func buildHeads(in []FeeHeadInput) ([]models.FeeHead, error) {
	if len(in) == 0 {
		return nil, utils.Validation("no_fee_heads", "feeHeads", "at least one fee head is required")
	}
	heads := make([]models.FeeHead, 0, len(in))
	for _, h := range in {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			return nil, utils.Validation("invalid_fee_head", "feeHeads.name", "fee head name is required")
		}
		if h.Amount.IsNegative() {
			return nil, utils.Validation("invalid_amount", "feeHeads.amount", "fee head "+name+" has a negative amount")
		}
		freq, err := models.ParseFrequency(h.Frequency)
		if err != nil {
			return nil, utils.Validation("invalid_frequency", "feeHeads.frequency", err.Error())
		}
		if h.DueDay < 0 || h.DueDay > 31 {
			return nil, utils.Validation("invalid_due_day", "feeHeads.dueDay", "due day must be between 1 and 31")
		}
		compulsory := true
		if h.IsCompulsory != nil {
			compulsory = *h.IsCompulsory
		}
		heads = append(heads, models.FeeHead{
			Name:         name,
			Amount:       h.Amount,
			Frequency:    freq,
			IsCompulsory: compulsory,
			DueDay:       h.DueDay,
		})
	}
	return heads, nil
}

func (s *DefaultFeeStructureService) Create(ctx context.Context, scope models.Scope, in CreateInput) (*models.FeeStructure, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, utils.Validation("invalid_name", "name", "structure name is required")
	}
	if in.ClassID == "" {
		return nil, utils.Validation("invalid_class", "classId", "classId is required")
	}
	if in.AcademicSession == "" {
		return nil, utils.Validation("invalid_session", "academicSession", "academicSession is required")
	}
	heads, err := buildHeads(in.FeeHeads)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	fs := &models.FeeStructure{
		ID:              uuid.New().String(),
		TenantID:        scope.TenantID,
		Name:            strings.TrimSpace(in.Name),
		ClassID:         in.ClassID,
		SectionID:       in.SectionID,
		AcademicSession: in.AcademicSession,
		Description:     in.Description,
		FeeHeads:        heads,
		IsActive:        true,
		CreatedBy:       scope.Actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	fs.RecomputeTotal()

	if err := s.Repo.Create(ctx, fs); err != nil {
		return nil, utils.FromRepo(err, "structure_not_found", "fee structure")
	}
	s.Logger.Info("fee structure created", zap.String("tenantId", fs.TenantID), zap.String("structureId", fs.ID))
	s.Audit.LogAction(ctx, scope, models.ActionFeeStructureCreated, models.FeeStructureRef(fs), map[string]any{
		"name":        fs.Name,
		"classId":     fs.ClassID,
		"totalAmount": fs.TotalAmount.String(),
	})
	return fs, nil
}

func (s *DefaultFeeStructureService) Update(ctx context.Context, scope models.Scope, id string, in UpdateInput) (*models.FeeStructure, error) {
	fs, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, utils.Validation("invalid_name", "name", "structure name cannot be empty")
		}
		fs.Name = strings.TrimSpace(*in.Name)
		changed = append(changed, "name")
	}
	if in.SectionID != nil {
		fs.SectionID = *in.SectionID
		changed = append(changed, "sectionId")
	}
	if in.Description != nil {
		fs.Description = *in.Description
		changed = append(changed, "description")
	}
	if in.FeeHeads != nil {
		heads, err := buildHeads(in.FeeHeads)
		if err != nil {
			return nil, err
		}
		fs.FeeHeads = heads
		changed = append(changed, "feeHeads")
	}
	if in.IsActive != nil {
		fs.IsActive = *in.IsActive
		changed = append(changed, "isActive")
	}
	if len(changed) == 0 {
		return nil, utils.Validation("empty_update", "", "nothing to update")
	}

	return s.save(ctx, scope, fs, models.ActionFeeStructureUpdated, map[string]any{"fields": changed})
}

func (s *DefaultFeeStructureService) Deactivate(ctx context.Context, scope models.Scope, id string) (*models.FeeStructure, error) {
	fs, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !fs.IsActive {
		return fs, nil
	}
	fs.IsActive = false
	return s.save(ctx, scope, fs, models.ActionFeeStructureDeactivated, map[string]any{"name": fs.Name})
}

// save recomputes the derived total before every write.
func (s *DefaultFeeStructureService) save(ctx context.Context, scope models.Scope, fs *models.FeeStructure, action models.AuditAction, details map[string]any) (*models.FeeStructure, error) {
	fs.RecomputeTotal()
	fs.UpdatedBy = scope.Actor.UserID
	fs.UpdatedAt = s.Now().UTC()
	if err := s.Repo.Update(ctx, fs); err != nil {
		return nil, utils.FromRepo(err, "structure_not_found", "fee structure")
	}
	details["totalAmount"] = fs.TotalAmount.String()
	s.Audit.LogAction(ctx, scope, action, models.FeeStructureRef(fs), details)
	return fs, nil
}

func (s *DefaultFeeStructureService) Get(ctx context.Context, scope models.Scope, id string) (*models.FeeStructure, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	fs, err := s.Repo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		return nil, utils.FromRepo(err, "structure_not_found", "fee structure")
	}
	return fs, nil
}

func (s *DefaultFeeStructureService) List(ctx context.Context, scope models.Scope, filter feeStructureRepo.Filter) ([]models.FeeStructure, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	out, err := s.Repo.List(ctx, scope.TenantID, filter)
	if err != nil {
		return nil, utils.FromRepo(err, "structure_not_found", "fee structures")
	}
	return out, nil
}
