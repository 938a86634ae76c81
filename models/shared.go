package models

// ReceiptPayload is the queue payload for receipt delivery.
type ReceiptPayload struct {
	TenantID  string `json:"tenantId"`
	PaymentID string `json:"paymentId"`
	Reversal  bool   `json:"reversal"`
}

// ReceiptBundle is the complete, consistent snapshot handed to
// notification and export collaborators.
type ReceiptBundle struct {
	Tenant  Tenant  `json:"tenant"`
	Student Student `json:"student"`
	Invoice Invoice `json:"invoice"`
	Payment Payment `json:"payment"`
}
