package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"edufees/services/feestructure"
	"edufees/services/payment"
	"edufees/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

func bindRecorder(t *testing.T, body string, dst any) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, bindJSON(c, dst)
}

func TestFrequencyTag(t *testing.T) {
	var in feestructure.CreateInput
	_, ok := bindRecorder(t, `{"name":"G5","classId":"c5","academicSession":"2026-2027",
		"feeHeads":[{"name":"Tuition","amount":"5000","frequency":"yearly"}]}`, &in)
	require.True(t, ok)
	assert.Equal(t, "yearly", in.FeeHeads[0].Frequency)

	w, ok := bindRecorder(t, `{"name":"G5","classId":"c5","academicSession":"2026-2027",
		"feeHeads":[{"name":"Tuition","amount":"5000","frequency":"fortnightly"}]}`, &in)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_frequency", resp.Code)
	assert.Equal(t, "frequency", resp.Field)
}

func TestPaymentMethodTag(t *testing.T) {
	var in payment.CollectInput
	_, ok := bindRecorder(t, `{"invoiceId":"i1","amount":"10","paymentMethod":"Bank Transfer"}`, &in)
	assert.True(t, ok)

	w, ok := bindRecorder(t, `{"invoiceId":"i1","amount":"10","paymentMethod":"crypto"}`, &in)
	assert.False(t, ok)

	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_paymentmethod", resp.Code)
	assert.Equal(t, "paymentMethod", resp.Field)
}

func TestMalformedBody(t *testing.T) {
	var in payment.CollectInput
	w, ok := bindRecorder(t, `{"invoiceId":`, &in)
	assert.False(t, ok)
	assert.Contains(t, w.Body.String(), "invalid_body")
}
