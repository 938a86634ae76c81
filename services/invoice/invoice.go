package invoice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"edufees/database/repository"
	directoryRepo "edufees/database/repository/directory"
	feeStructureRepo "edufees/database/repository/feestructure"
	invoiceRepo "edufees/database/repository/invoice"
	"edufees/models"
	"edufees/services/audit"
	"edufees/services/balance"
	"edufees/services/numbering"
	"edufees/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService is the invoice ledger.
type InvoiceService interface {
	Generate(ctx context.Context, scope models.Scope, in GenerateInput) (*models.Invoice, error)
	GenerateBulk(ctx context.Context, scope models.Scope, in BulkInput) (*BulkResult, error)
	ApplyLateFee(ctx context.Context, scope models.Scope, id string, amount decimal.Decimal) (*models.Invoice, error)
	Update(ctx context.Context, scope models.Scope, id string, in UpdateInput) (*models.Invoice, error)
	Delete(ctx context.Context, scope models.Scope, id string) error
	Cancel(ctx context.Context, scope models.Scope, id string) (*models.Invoice, error)
	Get(ctx context.Context, scope models.Scope, id string) (*models.Invoice, error)
	List(ctx context.Context, scope models.Scope, filter ListFilter) ([]models.Invoice, error)

	// Load reads an invoice for mutation; the stored status is returned as is.
	Load(ctx context.Context, tenantID, id string) (*models.Invoice, error)
	// RecordPayment applies a signed payment amount to inv inside a unit of
	// work and registers the undo step. Only the payment ledger calls it.
	RecordPayment(ctx context.Context, inv *models.Invoice, amount decimal.Decimal, comp *repository.Compensations) error
}

type DefaultInvoiceService struct {
	Invoices   invoiceRepo.InvoiceRepository
	Structures feeStructureRepo.FeeStructureRepository
	Directory  directoryRepo.Directory
	Numbering  numbering.NumberingService
	Balances   balance.BalanceService
	Audit      audit.AuditService
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewDefaultInvoiceService(
	invoices invoiceRepo.InvoiceRepository,
	structures feeStructureRepo.FeeStructureRepository,
	directory directoryRepo.Directory,
	numberingSvc numbering.NumberingService,
	balanceSvc balance.BalanceService,
	auditSvc audit.AuditService,
	logger *zap.Logger,
) *DefaultInvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultInvoiceService{
		Invoices:   invoices,
		Structures: structures,
		Directory:  directory,
		Numbering:  numberingSvc,
		Balances:   balanceSvc,
		Audit:      auditSvc,
		Logger:     logger,
		Now:        time.Now,
	}
}

// resolveItems turns a fee source into invoice lines.
func (s *DefaultInvoiceService) resolveItems(ctx context.Context, tenantID string, src FeeSource) ([]models.InvoiceItem, string, error) {
	var (
		items []models.InvoiceItem
		fsID  string
	)
	switch {
	case src.FeeStructureID != "":
		fs, err := s.Structures.GetByID(ctx, tenantID, src.FeeStructureID)
		if err != nil {
			return nil, "", utils.FromRepo(err, "structure_not_found", "fee structure")
		}
		if !fs.IsActive {
			return nil, "", utils.Validation("structure_inactive", "feeStructureId", "fee structure "+fs.Name+" is deactivated")
		}
		items, fsID = fs.InvoiceItems(), fs.ID
	default:
		var err error
		if items, err = explicitItems(src.Items); err != nil {
			return nil, "", err
		}
	}
	if len(items) == 0 {
		return nil, "", utils.Validation("no_items", "items", "no invoice items could be resolved")
	}
	return items, fsID, nil
}

// checkStudent enforces that the target is an invoiceable student of the tenant.
func (s *DefaultInvoiceService) checkStudent(tenantID string, st *models.Student) error {
	if st.TenantID != tenantID {
		return utils.NotFound("student_not_found", "student not found")
	}
	if st.Role != models.RoleStudent {
		return utils.Validation("not_a_student", "studentId", "user "+st.ID+" is not a student")
	}
	if st.ClassID == "" {
		return utils.Validation("student_class_unresolved", "classId", "student "+st.ID+" has no resolvable class")
	}
	return nil
}

func (s *DefaultInvoiceService) lookupStudent(ctx context.Context, tenantID, id string) (*models.Student, error) {
	st, err := s.Directory.GetStudent(ctx, id)
	if err != nil {
		return nil, utils.FromRepo(err, "student_not_found", "student")
	}
	if err := s.checkStudent(tenantID, st); err != nil {
		return nil, err
	}
	return st, nil
}

type generatePlan struct {
	items   []models.InvoiceItem
	fsID    string
	due     time.Time
	session string
	remarks string
}

func validateDue(due time.Time, session string) error {
	if due.IsZero() {
		return utils.Validation("missing_due_date", "dueDate", "dueDate is required")
	}
	if session == "" {
		return utils.Validation("missing_session", "academicSession", "academicSession is required")
	}
	return nil
}

func (s *DefaultInvoiceService) Generate(ctx context.Context, scope models.Scope, in GenerateInput) (*models.Invoice, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if err := validateDue(in.DueDate, in.AcademicSession); err != nil {
		return nil, err
	}
	st, err := s.lookupStudent(ctx, scope.TenantID, in.StudentID)
	if err != nil {
		return nil, err
	}
	items, fsID, err := s.resolveItems(ctx, scope.TenantID, in.FeeSource)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, scope, st, generatePlan{
		items: items, fsID: fsID, due: in.DueDate, session: in.AcademicSession, remarks: in.Remarks,
	})
}

// generate numbers, stores and audits one invoice for a checked student.
func (s *DefaultInvoiceService) generate(ctx context.Context, scope models.Scope, st *models.Student, plan generatePlan) (*models.Invoice, error) {
	now := s.Now().UTC()
	number, err := s.Numbering.InvoiceNumber(ctx, scope.TenantID, now)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		ID:              uuid.New().String(),
		TenantID:        scope.TenantID,
		InvoiceNumber:   number,
		StudentID:       st.ID,
		StudentName:     st.Name,
		ClassID:         st.ClassID,
		SectionID:       st.SectionID,
		AcademicSession: plan.session,
		FeeStructureID:  plan.fsID,
		DueDate:         plan.due.UTC(),
		BillingPeriod:   models.NewBillingPeriod(plan.due.UTC(), plan.items[0].Frequency),
		Remarks:         plan.remarks,
		CreatedBy:       scope.Actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	inv.Open(slices.Clone(plan.items))

	if err := s.Invoices.Create(ctx, inv); err != nil {
		return nil, utils.FromRepo(err, "invoice_not_found", "invoice")
	}

	s.Audit.LogAction(ctx, scope, models.ActionInvoiceGenerated, models.InvoiceRef(inv), map[string]any{
		"invoiceNumber": inv.InvoiceNumber,
		"studentId":     inv.StudentID,
		"totalAmount":   inv.TotalAmount.String(),
	})
	s.refreshBalance(ctx, inv)
	return inv, nil
}

func (s *DefaultInvoiceService) GenerateBulk(ctx context.Context, scope models.Scope, in BulkInput) (*BulkResult, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if err := validateDue(in.DueDate, in.AcademicSession); err != nil {
		return nil, err
	}
	class, err := s.Directory.ResolveClass(ctx, scope.TenantID, in.Class)
	if err != nil {
		return nil, utils.FromRepo(err, "class_not_found", "class")
	}
	items, fsID, err := s.resolveItems(ctx, scope.TenantID, in.FeeSource)
	if err != nil {
		return nil, err
	}
	students, err := s.Directory.FindStudentsForClass(ctx, scope.TenantID, *class, in.SectionID)
	if err != nil {
		return nil, utils.Infra("could not resolve students for class", err)
	}

	res := &BulkResult{Total: len(students), InvoiceIDs: []string{}, Errors: []BulkError{}}
	plan := generatePlan{items: items, fsID: fsID, due: in.DueDate, session: in.AcademicSession, remarks: in.Remarks}
	for i := range students {
		st := &students[i]
		inv, err := s.generateChecked(ctx, scope, st, plan)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, BulkError{
				StudentID:   st.ID,
				StudentName: st.Name,
				Code:        utils.CodeOf(err),
				Message:     err.Error(),
			})
			s.Logger.Warn("bulk invoice generation failed for student",
				zap.String("tenantId", scope.TenantID), zap.String("studentId", st.ID), zap.Error(err))
			continue
		}
		res.Succeeded++
		res.InvoiceIDs = append(res.InvoiceIDs, inv.ID)
		res.Invoices = append(res.Invoices, *inv)
	}

	s.Logger.Info("bulk invoice generation finished",
		zap.String("tenantId", scope.TenantID),
		zap.String("classId", class.ID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	s.Audit.LogAction(ctx, scope, models.ActionInvoiceBulkGenerated, models.BulkInvoiceRef(class.ID, in.AcademicSession), map[string]any{
		"classId":        class.ID,
		"sectionId":      in.SectionID,
		"feeStructureId": fsID,
		"total":          res.Total,
		"succeeded":      res.Succeeded,
		"failed":         res.Failed,
		"errors":         res.Errors,
	})
	return res, nil
}

// generateChecked isolates one student of a bulk run, panics included.
func (s *DefaultInvoiceService) generateChecked(ctx context.Context, scope models.Scope, st *models.Student, plan generatePlan) (inv *models.Invoice, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("panic while generating invoice", zap.String("studentId", st.ID), zap.Any("panic", r))
			inv, err = nil, utils.Infra("unexpected failure generating invoice", errors.New("panic"))
		}
	}()
	if err := s.checkStudent(scope.TenantID, st); err != nil {
		return nil, err
	}
	return s.generate(ctx, scope, st, plan)
}

// mutate loads an invoice, applies change and writes it back under the version guard.
func (s *DefaultInvoiceService) mutate(ctx context.Context, scope models.Scope, id string, change func(inv *models.Invoice) error) (*models.Invoice, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	inv, err := s.Load(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	expected := inv.Version
	if err := change(inv); err != nil {
		return nil, classify(err)
	}
	inv.UpdatedAt = s.Now().UTC()
	if err := s.Invoices.UpdateGuarded(ctx, inv, expected); err != nil {
		return nil, utils.FromRepo(err, "invoice_not_found", "invoice")
	}
	return inv, nil
}

func (s *DefaultInvoiceService) ApplyLateFee(ctx context.Context, scope models.Scope, id string, amount decimal.Decimal) (*models.Invoice, error) {
	if !amount.IsPositive() {
		return nil, utils.Validation("invalid_amount", "amount", "late fee must be positive")
	}
	inv, err := s.mutate(ctx, scope, id, func(inv *models.Invoice) error {
		return inv.ApplyLateFee(amount)
	})
	if err != nil {
		return nil, err
	}
	s.Audit.LogAction(ctx, scope, models.ActionLateFeeApplied, models.InvoiceRef(inv), map[string]any{
		"amount":        amount.String(),
		"lateFeeAmount": inv.LateFeeAmount.String(),
		"totalAmount":   inv.TotalAmount.String(),
	})
	s.refreshBalance(ctx, inv)
	return s.present(inv), nil
}

func (s *DefaultInvoiceService) Update(ctx context.Context, scope models.Scope, id string, in UpdateInput) (*models.Invoice, error) {
	if in.Items == nil && in.DueDate == nil && in.Remarks == nil {
		return nil, utils.Validation("empty_update", "", "nothing to update")
	}
	var items []models.InvoiceItem
	if in.Items != nil {
		var err error
		if items, err = explicitItems(in.Items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, utils.Validation("no_items", "items", "an invoice needs at least one item")
		}
	}

	var previousTotal decimal.Decimal
	inv, err := s.mutate(ctx, scope, id, func(inv *models.Invoice) error {
		previousTotal = inv.TotalAmount
		next := inv.Items
		if items != nil {
			next = items
		}
		var due time.Time
		if in.DueDate != nil {
			due = in.DueDate.UTC()
		}
		if err := inv.ReplaceItems(next, due); err != nil {
			return err
		}
		if in.Remarks != nil {
			inv.Remarks = *in.Remarks
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.LogAction(ctx, scope, models.ActionInvoiceUpdated, models.InvoiceRef(inv), map[string]any{
		"previousTotal": previousTotal.String(),
		"totalAmount":   inv.TotalAmount.String(),
		"dueDate":       inv.DueDate,
	})
	s.refreshBalance(ctx, inv)
	return s.present(inv), nil
}

func (s *DefaultInvoiceService) Delete(ctx context.Context, scope models.Scope, id string) error {
	if err := utils.RequireScope(scope); err != nil {
		return err
	}
	inv, err := s.Load(ctx, scope.TenantID, id)
	if err != nil {
		return err
	}
	if !inv.PaidAmount.IsZero() {
		return classify(models.ErrInvoiceHasPayments)
	}
	if err := s.Invoices.Delete(ctx, scope.TenantID, id, inv.Version); err != nil {
		return utils.FromRepo(err, "invoice_not_found", "invoice")
	}
	s.Audit.LogAction(ctx, scope, models.ActionInvoiceCancelled, models.InvoiceRef(inv), map[string]any{
		"invoiceNumber": inv.InvoiceNumber,
		"deleted":       true,
	})
	s.refreshBalance(ctx, inv)
	return nil
}

func (s *DefaultInvoiceService) Cancel(ctx context.Context, scope models.Scope, id string) (*models.Invoice, error) {
	inv, err := s.mutate(ctx, scope, id, func(inv *models.Invoice) error {
		return inv.Cancel(scope.Actor.UserID, s.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.Audit.LogAction(ctx, scope, models.ActionInvoiceCancelled, models.InvoiceRef(inv), map[string]any{
		"invoiceNumber": inv.InvoiceNumber,
		"deleted":       false,
	})
	s.refreshBalance(ctx, inv)
	return inv, nil
}

func (s *DefaultInvoiceService) RecordPayment(ctx context.Context, inv *models.Invoice, amount decimal.Decimal, comp *repository.Compensations) error {
	before := *inv
	before.Items = slices.Clone(inv.Items)
	expected := inv.Version

	if err := inv.ApplyPayment(amount); err != nil {
		*inv = before
		return classify(err)
	}
	inv.UpdatedAt = s.Now().UTC()
	if err := s.Invoices.UpdateGuarded(ctx, inv, expected); err != nil {
		*inv = before
		return utils.FromRepo(err, "invoice_not_found", "invoice")
	}

	comp.Add(func(ctx context.Context) error {
		return s.withdrawPayment(ctx, inv.TenantID, inv.ID, amount)
	})
	return nil
}

// withdrawPayment takes a recorded amount back out of the stored invoice.
// It applies the inverse to whatever is stored now, so writes that landed
// after the original one are kept.
func (s *DefaultInvoiceService) withdrawPayment(ctx context.Context, tenantID, id string, amount decimal.Decimal) error {
	for attempt := 1; ; attempt++ {
		cur, err := s.Invoices.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		expected := cur.Version
		if err := cur.ApplyPayment(amount.Neg()); err != nil {
			return fmt.Errorf("could not withdraw %s from invoice %s: %w", amount, id, err)
		}
		cur.UpdatedAt = s.Now().UTC()
		err = s.Invoices.UpdateGuarded(ctx, cur, expected)
		if err == nil || !errors.Is(err, repository.ErrVersionConflict) || attempt == 3 {
			return err
		}
	}
}

func (s *DefaultInvoiceService) Load(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	inv, err := s.Invoices.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, utils.FromRepo(err, "invoice_not_found", "invoice")
	}
	return inv, nil
}

// present reports the effective status to readers.
func (s *DefaultInvoiceService) present(inv *models.Invoice) *models.Invoice {
	out := *inv
	out.Status = inv.EffectiveStatus(s.Now())
	return &out
}

func (s *DefaultInvoiceService) Get(ctx context.Context, scope models.Scope, id string) (*models.Invoice, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	inv, err := s.Load(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	return s.present(inv), nil
}

func (s *DefaultInvoiceService) List(ctx context.Context, scope models.Scope, filter ListFilter) ([]models.Invoice, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	now := s.Now()
	rows, err := s.Invoices.List(ctx, scope.TenantID, filter.repoFilter(now))
	if err != nil {
		return nil, utils.Infra("could not list invoices", err)
	}
	out := make([]models.Invoice, 0, len(rows))
	for i := range rows {
		p := s.present(&rows[i])
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// refreshBalance recomputes the student's balance after a committed change.
// The mutation stands even if this fails; a later recompute repairs the read model.
func (s *DefaultInvoiceService) refreshBalance(ctx context.Context, inv *models.Invoice) {
	if _, err := s.Balances.UpdateBalance(ctx, inv.TenantID, inv.StudentID, inv.AcademicSession); err != nil {
		s.Logger.Error("balance recompute failed",
			zap.String("tenantId", inv.TenantID),
			zap.String("studentId", inv.StudentID),
			zap.String("academicSession", inv.AcademicSession),
			zap.Error(err),
		)
	}
}
