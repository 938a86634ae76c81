package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edufees/config"
	"edufees/database/repository/memory"
	"edufees/handlers"
	"edufees/models"
	"edufees/services/audit"
	"edufees/services/balance"
	"edufees/services/feestructure"
	"edufees/services/invoice"
	"edufees/services/numbering"
	"edufees/services/payment"
	"edufees/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handlers.RegisterValidators()
	config.AppConfig.JWTSecret = "routes-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	store := memory.NewStore()
	store.Directory.PutTenant(models.Tenant{ID: "t1", Name: "Hillview School", Currency: "KES"})
	store.Directory.PutClass(models.Class{ID: "c5", TenantID: "t1", Name: "Grade 5", Grade: "5"})
	store.Directory.PutStudent(models.Student{
		ID: "s1", TenantID: "t1", Name: "Amani", Role: models.RoleStudent,
		ClassID: "c5", ClassName: "Grade 5", IsActive: true,
	})

	auditSvc := audit.NewDefaultAuditService(store.Audit, nil)
	balanceSvc := balance.NewDefaultBalanceService(store.Balances, store.Invoices, nil, auditSvc, nil)
	numberingSvc := numbering.NewDefaultNumberingService(store.Counters, "", "")
	fsSvc := feestructure.NewDefaultFeeStructureService(store.FeeStructures, auditSvc, nil)
	invSvc := invoice.NewDefaultInvoiceService(store.Invoices, store.FeeStructures, store.Directory,
		numberingSvc, balanceSvc, auditSvc, nil)
	paySvc := payment.NewDefaultPaymentService(store.Payments, invSvc, store.Directory, numberingSvc,
		balanceSvc, auditSvc, store.Transactor(nil), payment.Options{AutoConfirm: true}, nil)

	hb := &handlers.HandlerBundle{
		FeeStructures: handlers.NewFeeStructureHandler(fsSvc),
		Invoices:      handlers.NewInvoiceHandler(invSvc),
		Payments:      handlers.NewPaymentHandler(paySvc),
		Balances:      handlers.NewBalanceHandler(balanceSvc),
		Audit:         handlers.NewAuditHandler(auditSvc),
		Health: &handlers.HealthHandler{Status: func() utils.HealthStatus {
			return utils.HealthStatus{Mongo: true, Redis: true, TxMode: "sequential"}
		}},
	}
	r := gin.New()
	RegisterRoutes(r, hb)

	return &server{t: t, router: r, token: token(t, utils.ScopeClaims{UserID: "acc1", TenantID: "t1", Name: "Accountant", Role: "accountant"})}
}

func token(t *testing.T, c utils.ScopeClaims) string {
	t.Helper()
	tok, err := utils.GenerateToken(c, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestFeeLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/fees/structures", s.token, gin.H{
		"name": "Grade 5 fees", "classId": "5", "academicSession": "2026-2027",
		"feeHeads": []gin.H{{"name": "Tuition", "amount": 5000, "frequency": "monthly"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	fs := decode[models.FeeStructure](t, w)

	w = s.do(http.MethodPost, "/api/fees/invoices", s.token, gin.H{
		"feeStructureId": fs.ID, "studentId": "s1",
		"dueDate": time.Now().AddDate(0, 0, 30).Format(time.RFC3339), "academicSession": "2026-2027",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[models.Invoice](t, w)
	assert.Equal(t, "5000", inv.TotalAmount.String())
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)

	w = s.do(http.MethodPost, "/api/fees/payments", s.token, gin.H{
		"invoiceId": inv.ID, "amount": "3000", "paymentMethod": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paid := decode[payment.CollectResult](t, w)
	assert.Equal(t, models.InvoiceStatusPartial, paid.Invoice.Status)

	w = s.do(http.MethodGet, "/api/fees/balances/s1?academicSession=2026-2027", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2000", decode[models.StudentBalance](t, w).TotalBalance.String())

	w = s.do(http.MethodPost, "/api/fees/payments", s.token, gin.H{
		"invoiceId": inv.ID, "amount": "2500", "paymentMethod": "cash",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payment_exceeds_balance", decode[utils.ErrorResponse](t, w).Code)

	w = s.do(http.MethodDelete, "/api/fees/invoices/"+inv.ID, s.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invoice_has_payments", decode[utils.ErrorResponse](t, w).Code)

	w = s.do(http.MethodPost, "/api/fees/payments/"+paid.Payment.ID+"/reverse", s.token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/fees/payments/"+paid.Payment.ID+"/reverse", s.token, gin.H{"reason": "cheque bounced"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rev := decode[payment.ReverseResult](t, w)
	assert.Equal(t, "-3000", rev.Reversal.Amount.String())
	assert.Equal(t, models.InvoiceStatusPending, rev.Invoice.Status)

	w = s.do(http.MethodPatch, "/api/fees/payments/"+paid.Payment.ID, s.token, gin.H{"remarks": "late edit"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "payment_confirmed_immutable", decode[utils.ErrorResponse](t, w).Code)

	w = s.do(http.MethodGet, "/api/fees/payments/"+paid.Payment.ID+"/receipt", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Amani", decode[models.ReceiptBundle](t, w).Student.Name)

	w = s.do(http.MethodGet, "/api/fees/audit/invoice/"+inv.ID, s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[[]models.AuditLog](t, w))

	w = s.do(http.MethodGet, "/api/fees/invoices?status=pending&studentId=s1", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Invoice](t, w), 1)
}

func TestAccessControl(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/api/fees/invoices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	noTenant := token(t, utils.ScopeClaims{UserID: "u9", Role: "accountant"})
	w = s.do(http.MethodGet, "/api/fees/invoices", noTenant, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_tenant", decode[utils.ErrorResponse](t, w).Code)

	student := token(t, utils.ScopeClaims{UserID: "s1", TenantID: "t1", Role: "student"})
	w = s.do(http.MethodPost, "/api/fees/invoices", student, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodGet, "/api/fees/invoices", student, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/fees/structures", s.token, gin.H{
		"name": "Bad", "classId": "5", "academicSession": "2026-2027",
		"feeHeads": []gin.H{{"name": "Tuition", "amount": 10, "frequency": "fortnightly"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_frequency", decode[utils.ErrorResponse](t, w).Code)

	w = s.do(http.MethodGet, "/api/fees/invoices?status=lost", s.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/fees/balances/s1", s.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/fees/audit/widgets/x", s.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkGenerationOverHTTP(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/fees/invoices/bulk", s.token, gin.H{
		"items":   []gin.H{{"feeHeadName": "Exam", "amount": "300"}},
		"classId": "Grade 5", "dueDate": time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
		"academicSession": "2026-2027",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[invoice.BulkResult](t, w)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
}

func TestHealthRoute(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"txMode":"sequential"`)
}
