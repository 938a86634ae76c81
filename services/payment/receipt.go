package payment

import (
	"context"

	"edufees/models"
	"edufees/utils"
)

// Receipt assembles everything needed to render or send a receipt.
// All four records must exist in the caller's tenant.
func (s *DefaultPaymentService) Receipt(ctx context.Context, scope models.Scope, id string) (*models.ReceiptBundle, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.Invoices.Load(ctx, scope.TenantID, p.InvoiceID)
	if err != nil {
		return nil, err
	}
	st, err := s.Directory.GetStudent(ctx, p.StudentID)
	if err != nil {
		return nil, utils.FromRepo(err, "student_not_found", "student")
	}
	if st.TenantID != scope.TenantID {
		return nil, utils.NotFound("student_not_found", "student not found")
	}
	tenant, err := s.Directory.GetTenant(ctx, scope.TenantID)
	if err != nil {
		return nil, utils.FromRepo(err, "tenant_not_found", "tenant")
	}
	return &models.ReceiptBundle{
		Tenant:  *tenant,
		Student: *st,
		Invoice: *inv,
		Payment: *p,
	}, nil
}
