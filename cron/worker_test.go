package cron

import (
	"context"
	"errors"
	"testing"

	"edufees/models"
	"edufees/services/payment"
	"edufees/services/tasks"
	"edufees/utils"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type receiptSource struct {
	payment.PaymentService
	bundle *models.ReceiptBundle
	err    error
	scope  models.Scope
}

func (r *receiptSource) Receipt(_ context.Context, scope models.Scope, _ string) (*models.ReceiptBundle, error) {
	r.scope = scope
	return r.bundle, r.err
}

type captureNotifier struct {
	sent     []models.ReceiptBundle
	reversal bool
	err      error
}

func (n *captureNotifier) SendReceipt(_ context.Context, b models.ReceiptBundle, reversal bool) error {
	n.sent = append(n.sent, b)
	n.reversal = reversal
	return n.err
}

func receiptTask(t *testing.T, p models.ReceiptPayload) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewReceiptTask(p)
	require.NoError(t, err)
	return task
}

func TestHandleReceiptTaskDelivers(t *testing.T) {
	src := &receiptSource{bundle: &models.ReceiptBundle{Payment: models.Payment{ReceiptNumber: "RCP-2026-00007"}}}
	n := &captureNotifier{}
	h := HandleReceiptTask(src, n, zap.NewNop())

	err := h(context.Background(), receiptTask(t, models.ReceiptPayload{TenantID: "t1", PaymentID: "p1", Reversal: true}))
	require.NoError(t, err)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "RCP-2026-00007", n.sent[0].Payment.ReceiptNumber)
	assert.True(t, n.reversal)
	assert.Equal(t, "t1", src.scope.TenantID)
	assert.Equal(t, "system", src.scope.Actor.UserID)
}

func TestHandleReceiptTaskSkipsMissingRecords(t *testing.T) {
	src := &receiptSource{err: utils.NotFound("payment_not_found", "payment not found")}
	n := &captureNotifier{}
	h := HandleReceiptTask(src, n, zap.NewNop())

	err := h(context.Background(), receiptTask(t, models.ReceiptPayload{TenantID: "t1", PaymentID: "gone"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, n.sent)
}

func TestHandleReceiptTaskRetriesTransientFailures(t *testing.T) {
	h := HandleReceiptTask(&receiptSource{err: utils.Infra("storage unavailable", errors.New("timeout"))}, &captureNotifier{}, zap.NewNop())
	err := h(context.Background(), receiptTask(t, models.ReceiptPayload{TenantID: "t1", PaymentID: "p1"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	n := &captureNotifier{err: errors.New("smtp down")}
	h = HandleReceiptTask(&receiptSource{bundle: &models.ReceiptBundle{}}, n, zap.NewNop())
	err = h(context.Background(), receiptTask(t, models.ReceiptPayload{TenantID: "t1", PaymentID: "p1"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleReceiptTaskRejectsBadPayload(t *testing.T) {
	h := HandleReceiptTask(&receiptSource{}, &captureNotifier{}, zap.NewNop())
	err := h(context.Background(), asynq.NewTask(tasks.TypeReceiptDeliver, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
