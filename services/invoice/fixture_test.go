package invoice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"edufees/database/repository/memory"
	"edufees/models"
	"edufees/services/audit"
	"edufees/services/balance"
	"edufees/services/feestructure"
	"edufees/services/numbering"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	today = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	scope = models.Scope{
		TenantID: "t1",
		Actor:    models.Actor{UserID: "acc1", UserName: "Accountant", Role: "accountant"},
		Meta:     models.RequestMeta{IPAddress: "127.0.0.1", UserAgent: "go-test"},
	}
)

type fixture struct {
	store      *memory.Store
	invoices   *DefaultInvoiceService
	balances   *balance.DefaultBalanceService
	structures *feestructure.DefaultFeeStructureService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return today }

	auditSvc := audit.NewDefaultAuditService(store.Audit, nil)
	auditSvc.Now = clock
	balanceSvc := balance.NewDefaultBalanceService(store.Balances, store.Invoices, nil, auditSvc, nil)
	balanceSvc.Now = clock
	fsSvc := feestructure.NewDefaultFeeStructureService(store.FeeStructures, auditSvc, nil)
	fsSvc.Now = clock
	invSvc := NewDefaultInvoiceService(store.Invoices, store.FeeStructures, store.Directory,
		numbering.NewDefaultNumberingService(store.Counters, "", ""), balanceSvc, auditSvc, nil)
	invSvc.Now = clock

	store.Directory.PutTenant(models.Tenant{ID: "t1", Name: "Hillview School"})
	store.Directory.PutClass(models.Class{ID: "c5", TenantID: "t1", Name: "Grade 5", Grade: "5"})
	store.Directory.PutStudent(student("s1", "c5"))

	return &fixture{store: store, invoices: invSvc, balances: balanceSvc, structures: fsSvc}
}

func student(id, classID string) models.Student {
	return models.Student{
		ID:        id,
		TenantID:  "t1",
		Name:      "Student " + id,
		Role:      models.RoleStudent,
		ClassID:   classID,
		ClassName: "Grade 5",
		IsActive:  true,
	}
}

func (f *fixture) tuitionStructure(t *testing.T) *models.FeeStructure {
	t.Helper()
	fs, err := f.structures.Create(context.Background(), scope, feestructure.CreateInput{
		Name:            "Grade 5",
		ClassID:         "5",
		AcademicSession: "2026-2027",
		FeeHeads: []feestructure.FeeHeadInput{
			{Name: "Tuition", Amount: decimal.NewFromInt(5000), Frequency: "monthly"},
		},
	})
	require.NoError(t, err)
	return fs
}

func (f *fixture) generate(t *testing.T, studentID string, amount int64) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.Generate(context.Background(), scope, GenerateInput{
		FeeSource:       FeeSource{Items: []ItemInput{{FeeHeadName: "Tuition", Amount: decimal.NewFromInt(amount), Frequency: "Monthly"}}},
		StudentID:       studentID,
		DueDate:         today.AddDate(0, 0, 30),
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) auditActions(entityID string) []models.AuditAction {
	var out []models.AuditAction
	for _, e := range f.store.Audit.All() {
		if entityID == "" || e.EntityID == entityID {
			out = append(out, e.Action)
		}
	}
	return out
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seedClass(f *fixture, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("stu-%02d", i)
		f.store.Directory.PutStudent(student(id, "c5"))
		ids = append(ids, id)
	}
	return ids
}
