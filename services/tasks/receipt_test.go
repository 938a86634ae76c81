package tasks

import (
	"testing"

	"edufees/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptTaskCarriesPayload(t *testing.T) {
	task, opts, err := NewReceiptTask(models.ReceiptPayload{TenantID: "t1", PaymentID: "p1", Reversal: true})
	require.NoError(t, err)
	assert.Equal(t, TypeReceiptDeliver, task.Type())
	assert.NotEmpty(t, opts)

	p, err := ParseReceiptTask(task)
	require.NoError(t, err)
	assert.Equal(t, "t1", p.TenantID)
	assert.Equal(t, "p1", p.PaymentID)
	assert.True(t, p.Reversal)
}

func TestParseReceiptTaskRejectsIncompletePayload(t *testing.T) {
	_, err := ParseReceiptTask(asynq.NewTask(TypeReceiptDeliver, []byte(`{"tenantId":"t1"}`)))
	assert.Error(t, err)

	_, err = ParseReceiptTask(asynq.NewTask(TypeReceiptDeliver, []byte(`not json`)))
	assert.Error(t, err)
}
