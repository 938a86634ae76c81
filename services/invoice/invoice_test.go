package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"edufees/database/repository"
	"edufees/database/repository/memory"
	"edufees/models"
	"edufees/services/numbering"
	"edufees/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFromStructureSnapshotsFeeHeads(t *testing.T) {
	f := newFixture(t)
	fs := f.tuitionStructure(t)

	inv, err := f.invoices.Generate(context.Background(), scope, GenerateInput{
		FeeSource:       FeeSource{FeeStructureID: fs.ID},
		StudentID:       "s1",
		DueDate:         today.AddDate(0, 0, 30),
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)

	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, inv.BalanceAmount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, inv.PaidAmount.IsZero())
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "INV-2026-00001", inv.InvoiceNumber)
	assert.Equal(t, fs.ID, inv.FeeStructureID)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, models.FrequencyMonthly, inv.Items[0].Frequency)
	assert.Equal(t, "November 2026", inv.BillingPeriod.Description)

	// The snapshot does not follow later structure edits.
	_, err = f.structures.Deactivate(context.Background(), scope, fs.ID)
	require.NoError(t, err)
	stored, err := f.invoices.Get(context.Background(), scope, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(5000)))

	assert.Equal(t, []models.AuditAction{models.ActionInvoiceGenerated}, f.auditActions(inv.ID))

	b, err := f.balances.GetBalance(context.Background(), scope, "s1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.Equal(decimal.NewFromInt(5000)))
}

func TestGenerateRejections(t *testing.T) {
	f := newFixture(t)
	fs := f.tuitionStructure(t)

	f.store.Directory.PutStudent(models.Student{ID: "teacher", TenantID: "t1", Role: "teacher", ClassID: "c5"})
	f.store.Directory.PutStudent(models.Student{ID: "foreign", TenantID: "t2", Role: models.RoleStudent, ClassID: "c5"})

	base := GenerateInput{
		FeeSource:       FeeSource{FeeStructureID: fs.ID},
		StudentID:       "s1",
		DueDate:         today,
		AcademicSession: "2026-2027",
	}

	cases := []struct {
		name string
		mut  func(in *GenerateInput)
		kind utils.ErrorKind
		code string
	}{
		{"missing student", func(in *GenerateInput) { in.StudentID = "ghost" }, utils.KindNotFound, "student_not_found"},
		{"other tenant", func(in *GenerateInput) { in.StudentID = "foreign" }, utils.KindNotFound, "student_not_found"},
		{"not a student", func(in *GenerateInput) { in.StudentID = "teacher" }, utils.KindValidation, "not_a_student"},
		{"missing structure", func(in *GenerateInput) { in.FeeStructureID = "nope" }, utils.KindNotFound, "structure_not_found"},
		{"no items", func(in *GenerateInput) { in.FeeSource = FeeSource{} }, utils.KindValidation, "no_items"},
		{"no due date", func(in *GenerateInput) { in.DueDate = time.Time{} }, utils.KindValidation, "missing_due_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mut(&in)
			_, err := f.invoices.Generate(context.Background(), scope, in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, utils.KindOf(err))
			assert.Equal(t, tc.code, utils.CodeOf(err))
		})
	}
	assert.Equal(t, 0, f.store.Invoices.Count("t1"))

	_, err := f.structures.Deactivate(context.Background(), scope, fs.ID)
	require.NoError(t, err)
	_, err = f.invoices.Generate(context.Background(), scope, base)
	assert.Equal(t, "structure_inactive", utils.CodeOf(err))
}

func TestGenerateAbortsWithoutNumber(t *testing.T) {
	f := newFixture(t)
	f.store.Faults().FailNext(memory.OpCounterIncrement, errors.New("counter store down"))

	_, err := f.invoices.Generate(context.Background(), scope, GenerateInput{
		FeeSource:       FeeSource{Items: []ItemInput{{FeeHeadName: "Tuition", Amount: decimal.NewFromInt(10)}}},
		StudentID:       "s1",
		DueDate:         today,
		AcademicSession: "2026-2027",
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindInfra))
	assert.Equal(t, 0, f.store.Invoices.Count("t1"))
}

func TestGenerateBulkIsolatesStudentFailures(t *testing.T) {
	f := newFixture(t)
	fs := f.tuitionStructure(t)
	ids := seedClass(f, 10)

	broken := student(ids[3], "")
	f.store.Directory.PutStudent(broken)

	res, err := f.invoices.GenerateBulk(context.Background(), scope, BulkInput{
		FeeSource:       FeeSource{FeeStructureID: fs.ID},
		Class:           "Grade 5",
		DueDate:         today.AddDate(0, 1, 0),
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)

	// s1 from the fixture is in the class too.
	assert.Equal(t, 11, res.Total)
	assert.Equal(t, 10, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ids[3], res.Errors[0].StudentID)
	assert.Equal(t, "student_class_unresolved", res.Errors[0].Code)
	assert.Len(t, res.InvoiceIDs, 10)
	assert.Equal(t, 10, f.store.Invoices.Count("t1"))

	var bulk []models.AuditLog
	for _, e := range f.store.Audit.All() {
		if e.Action == models.ActionInvoiceBulkGenerated {
			bulk = append(bulk, e)
		}
	}
	require.Len(t, bulk, 1)
	assert.Equal(t, 10, bulk[0].Details["succeeded"])
	assert.Equal(t, 1, bulk[0].Details["failed"])
}

func TestGenerateBulkScenarioNineOfTen(t *testing.T) {
	f := newFixture(t)
	f.store.Directory.PutClass(models.Class{ID: "c7", TenantID: "t1", Name: "Grade 7", Grade: "7"})
	for i := 0; i < 10; i++ {
		s := student(string(rune('a'+i))+"-7", "c7")
		s.ClassName = "Grade 7"
		if i == 9 {
			s.ClassID = ""
		}
		f.store.Directory.PutStudent(s)
	}

	res, err := f.invoices.GenerateBulk(context.Background(), scope, BulkInput{
		FeeSource:       FeeSource{Items: []ItemInput{{FeeHeadName: "Tuition", Amount: decimal.NewFromInt(100), Frequency: "monthly"}}},
		Class:           "c7",
		DueDate:         today.AddDate(0, 1, 0),
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
}

func TestGenerateBulkMatchesByGradeNumber(t *testing.T) {
	f := newFixture(t)
	f.store.Directory.PutClass(models.Class{ID: "c9", TenantID: "t1", Name: "Nine", Grade: "Grade 9"})
	s := student("g9", "c9-legacy")
	s.ClassName = "9-B"
	f.store.Directory.PutStudent(s)
	other := student("g19", "c19")
	other.ClassName = "Grade 19"
	f.store.Directory.PutStudent(other)

	res, err := f.invoices.GenerateBulk(context.Background(), scope, BulkInput{
		FeeSource:       FeeSource{Items: []ItemInput{{FeeHeadName: "Exam", Amount: decimal.NewFromInt(300)}}},
		Class:           "nine",
		DueDate:         today,
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, []string{"g9"}, []string{res.Invoices[0].StudentID})
}

func TestGenerateBulkUnknownClass(t *testing.T) {
	f := newFixture(t)
	_, err := f.invoices.GenerateBulk(context.Background(), scope, BulkInput{
		FeeSource:       FeeSource{Items: []ItemInput{{FeeHeadName: "Exam", Amount: decimal.NewFromInt(300)}}},
		Class:           "Grade 12",
		DueDate:         today,
		AcademicSession: "2026-2027",
	})
	assert.Equal(t, "class_not_found", utils.CodeOf(err))
}

func pay(t *testing.T, f *fixture, id string, amount string) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.Load(context.Background(), "t1", id)
	require.NoError(t, err)
	require.NoError(t, f.invoices.RecordPayment(context.Background(), inv, dec(amount), &repository.Compensations{}))
	return inv
}

func TestRecordPaymentDrivesStatus(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 5000)

	got := pay(t, f, inv.ID, "3000")
	assert.Equal(t, models.InvoiceStatusPartial, got.Status)
	assert.True(t, got.BalanceAmount.Equal(dec("2000")))

	got = pay(t, f, inv.ID, "2000")
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	assert.True(t, got.BalanceAmount.IsZero())

	got = pay(t, f, inv.ID, "-2000")
	assert.Equal(t, models.InvoiceStatusPartial, got.Status)
	assert.True(t, got.BalanceAmount.Equal(dec("2000")))

	loaded, err := f.invoices.Load(context.Background(), "t1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), loaded.Version)
}

func TestRecordPaymentRejectsOverdrawWithoutWriting(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 5000)

	loaded, err := f.invoices.Load(context.Background(), "t1", inv.ID)
	require.NoError(t, err)
	err = f.invoices.RecordPayment(context.Background(), loaded, dec("5000.01"), &repository.Compensations{})
	assert.Equal(t, "payment_exceeds_balance", utils.CodeOf(err))
	assert.True(t, loaded.PaidAmount.IsZero())

	stored, err := f.invoices.Load(context.Background(), "t1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Version)
	assert.True(t, stored.BalanceAmount.Equal(dec("5000")))
}

func TestStaleWriteIsConflict(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 5000)

	first, err := f.invoices.Load(context.Background(), "t1", inv.ID)
	require.NoError(t, err)
	second, err := f.invoices.Load(context.Background(), "t1", inv.ID)
	require.NoError(t, err)

	require.NoError(t, f.invoices.RecordPayment(context.Background(), first, dec("5000"), &repository.Compensations{}))
	err = f.invoices.RecordPayment(context.Background(), second, dec("5000"), &repository.Compensations{})
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Equal(t, "concurrent_modification", utils.CodeOf(err))
}

func TestUndoWithdrawsOnlyItsOwnAmount(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 5000)
	ctx := context.Background()
	tx := repository.NewSequentialTransactor(nil)

	err := tx.WithinTx(ctx, func(ctx context.Context, comp *repository.Compensations) error {
		loaded, err := f.invoices.Load(ctx, "t1", inv.ID)
		require.NoError(t, err)
		require.NoError(t, f.invoices.RecordPayment(ctx, loaded, dec("1000"), comp))

		// Another collection commits before this unit of work fails.
		pay(t, f, inv.ID, "2000")
		return errors.New("payment write failed")
	})
	require.Error(t, err)
	var partial *repository.PartialWriteError
	assert.False(t, errors.As(err, &partial))

	stored, err := f.invoices.Load(ctx, "t1", inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(dec("2000")), "paid %s", stored.PaidAmount)
	assert.True(t, stored.BalanceAmount.Equal(dec("3000")))
	assert.Equal(t, models.InvoiceStatusPartial, stored.Status)
}

func TestApplyLateFee(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 1000)

	out, err := f.invoices.ApplyLateFee(context.Background(), scope, inv.ID, dec("50"))
	require.NoError(t, err)
	assert.True(t, out.LateFeeAmount.Equal(dec("50")))
	assert.True(t, out.TotalAmount.Equal(dec("1050")))
	assert.True(t, out.BalanceAmount.Equal(dec("1050")))

	_, err = f.invoices.ApplyLateFee(context.Background(), scope, inv.ID, decimal.Zero)
	assert.Equal(t, "invalid_amount", utils.CodeOf(err))

	pay(t, f, inv.ID, "1050")
	_, err = f.invoices.ApplyLateFee(context.Background(), scope, inv.ID, dec("10"))
	assert.Equal(t, "invoice_paid", utils.CodeOf(err))

	other := f.generate(t, "s1", 100)
	_, err = f.invoices.Cancel(context.Background(), scope, other.ID)
	require.NoError(t, err)
	_, err = f.invoices.ApplyLateFee(context.Background(), scope, other.ID, dec("10"))
	assert.Equal(t, "invoice_cancelled", utils.CodeOf(err))

	assert.Contains(t, f.auditActions(inv.ID), models.ActionLateFeeApplied)
}

func TestUpdateCannotShrinkBelowPaid(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 5000)
	pay(t, f, inv.ID, "3000")

	_, err := f.invoices.Update(context.Background(), scope, inv.ID, UpdateInput{
		Items: []ItemInput{{FeeHeadName: "Tuition", Amount: dec("2999")}},
	})
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Equal(t, "total_below_paid", utils.CodeOf(err))

	out, err := f.invoices.Update(context.Background(), scope, inv.ID, UpdateInput{
		Items: []ItemInput{{FeeHeadName: "Tuition", Amount: dec("3000")}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, out.Status)
	assert.True(t, out.BalanceAmount.IsZero())
	assert.Contains(t, f.auditActions(inv.ID), models.ActionInvoiceUpdated)

	b, err := f.balances.GetBalance(context.Background(), scope, "s1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.IsZero())
}

func TestUpdateKeepsLateFeeInTotal(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, "s1", 1000)
	_, err := f.invoices.ApplyLateFee(context.Background(), scope, inv.ID, dec("25"))
	require.NoError(t, err)

	due := today.AddDate(0, 2, 0)
	out, err := f.invoices.Update(context.Background(), scope, inv.ID, UpdateInput{
		Items:   []ItemInput{{FeeHeadName: "Tuition", Amount: dec("800")}, {FeeHeadName: "Bus", Amount: dec("100")}},
		DueDate: &due,
	})
	require.NoError(t, err)
	assert.True(t, out.TotalAmount.Equal(dec("925")))
	assert.True(t, out.DueDate.Equal(due))
}

func TestDeleteRequiresNoPayments(t *testing.T) {
	f := newFixture(t)
	paid := f.generate(t, "s1", 5000)
	pay(t, f, paid.ID, "3000")

	err := f.invoices.Delete(context.Background(), scope, paid.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Equal(t, "invoice_has_payments", utils.CodeOf(err))
	_, err = f.invoices.Get(context.Background(), scope, paid.ID)
	require.NoError(t, err)

	unpaid := f.generate(t, "s1", 700)
	require.NoError(t, f.invoices.Delete(context.Background(), scope, unpaid.ID))
	_, err = f.invoices.Get(context.Background(), scope, unpaid.ID)
	assert.Equal(t, "invoice_not_found", utils.CodeOf(err))
	assert.Contains(t, f.auditActions(unpaid.ID), models.ActionInvoiceCancelled)
}

func TestCancelKeepsHistoryAndLeavesBalance(t *testing.T) {
	f := newFixture(t)
	keep := f.generate(t, "s1", 1000)
	drop := f.generate(t, "s1", 400)

	out, err := f.invoices.Cancel(context.Background(), scope, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, out.Status)
	assert.Equal(t, "acc1", out.CancelledBy)

	_, err = f.invoices.Cancel(context.Background(), scope, drop.ID)
	assert.Equal(t, "invoice_cancelled", utils.CodeOf(err))

	b, err := f.balances.GetBalance(context.Background(), scope, "s1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.Equal(keep.TotalAmount))

	pay(t, f, keep.ID, "1")
	_, err = f.invoices.Cancel(context.Background(), scope, keep.ID)
	assert.Equal(t, "invoice_has_payments", utils.CodeOf(err))
}

func TestReadersReportOverdue(t *testing.T) {
	f := newFixture(t)
	late, err := f.invoices.Generate(context.Background(), scope, GenerateInput{
		FeeSource:       FeeSource{Items: []ItemInput{{FeeHeadName: "Tuition", Amount: dec("100")}}},
		StudentID:       "s1",
		DueDate:         today.AddDate(0, 0, -1),
		AcademicSession: "2026-2027",
	})
	require.NoError(t, err)
	f.generate(t, "s1", 200)

	got, err := f.invoices.Get(context.Background(), scope, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, got.Status)

	stored, err := f.invoices.Load(context.Background(), "t1", late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, stored.Status)

	overdue, err := f.invoices.List(context.Background(), scope, ListFilter{Status: models.InvoiceStatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	pending, err := f.invoices.List(context.Background(), scope, ListFilter{Status: models.InvoiceStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotEqual(t, late.ID, pending[0].ID)
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	a := f.generate(t, "s1", 1)
	b := f.generate(t, "s1", 1)
	assert.Equal(t, numbering.Format("INV", 2026, 1), a.InvoiceNumber)
	assert.Equal(t, numbering.Format("INV", 2026, 2), b.InvoiceNumber)
}
