// File: models/payment.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how money was received.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodCheque       PaymentMethod = "Cheque"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodCard         PaymentMethod = "Card"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodOnline       PaymentMethod = "Online"
)

var paymentMethods = map[string]PaymentMethod{
	"cash":          PaymentMethodCash,
	"cheque":        PaymentMethodCheque,
	"check":         PaymentMethodCheque,
	"bank transfer": PaymentMethodBankTransfer,
	"bank_transfer": PaymentMethodBankTransfer,
	"banktransfer":  PaymentMethodBankTransfer,
	"card":          PaymentMethodCard,
	"upi":           PaymentMethodUPI,
	"online":        PaymentMethodOnline,
}

// ParsePaymentMethod normalizes a raw payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m, ok := paymentMethods[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown payment method %q", raw)
	}
	return m, nil
}

var (
	ErrPaymentConfirmed        = errors.New("payment is confirmed and cannot be modified")
	ErrPaymentAlreadyConfirmed = errors.New("payment is already confirmed")
	ErrPaymentNotConfirmed     = errors.New("payment is not confirmed")
	ErrPaymentAlreadyReversed  = errors.New("payment is already reversed")
	ErrPaymentIsReversal       = errors.New("a reversal payment cannot be reversed")
)

// Payment records money received against exactly one invoice.
// Amount is negative for compensating records created by a reversal.
type Payment struct {
	ID                 string            `bson:"id" json:"id"`
	TenantID           string            `bson:"tenantId" json:"tenantId"`
	ReceiptNumber      string            `bson:"receiptNumber" json:"receiptNumber"`
	InvoiceID          string            `bson:"invoiceId" json:"invoiceId"`
	StudentID          string            `bson:"studentId" json:"studentId"`
	AcademicSession    string            `bson:"academicSession" json:"academicSession"`
	Amount             decimal.Decimal   `bson:"amount" json:"amount"`
	PaymentMethod      PaymentMethod     `bson:"paymentMethod" json:"paymentMethod"`
	PaymentDate        time.Time         `bson:"paymentDate" json:"paymentDate"`
	TransactionDetails map[string]string `bson:"transactionDetails,omitempty" json:"transactionDetails,omitempty"`
	Remarks            string            `bson:"remarks,omitempty" json:"remarks,omitempty"`
	CollectedBy        string            `bson:"collectedBy" json:"collectedBy"`

	IsConfirmed bool       `bson:"isConfirmed" json:"isConfirmed"`
	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	ConfirmedBy string     `bson:"confirmedBy,omitempty" json:"confirmedBy,omitempty"`

	IsReversed        bool       `bson:"isReversed" json:"isReversed"`
	ReversedAt        *time.Time `bson:"reversedAt,omitempty" json:"reversedAt,omitempty"`
	ReversedBy        string     `bson:"reversedBy,omitempty" json:"reversedBy,omitempty"`
	ReversalReason    string     `bson:"reversalReason,omitempty" json:"reversalReason,omitempty"`
	ReversalPaymentID string     `bson:"reversalPaymentId,omitempty" json:"reversalPaymentId,omitempty"`
	ReversalOf        string     `bson:"reversalOf,omitempty" json:"reversalOf,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Reversal holds the only fields that may change on a confirmed payment.
type Reversal struct {
	ReversedAt        time.Time
	ReversedBy        string
	Reason            string
	ReversalPaymentID string
}

// PaymentPatch is the allow-list of fields editable on an unconfirmed payment.
type PaymentPatch struct {
	PaymentMethod      *PaymentMethod    `json:"paymentMethod,omitempty"`
	PaymentDate        *time.Time        `json:"paymentDate,omitempty"`
	TransactionDetails map[string]string `json:"transactionDetails,omitempty"`
	Remarks            *string           `json:"remarks,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p PaymentPatch) Empty() bool {
	return p.PaymentMethod == nil && p.PaymentDate == nil && p.TransactionDetails == nil && p.Remarks == nil
}

// Apply writes the patch. Confirmed payments reject every patch.
func (p *Payment) Apply(patch PaymentPatch) error {
	if p.IsConfirmed {
		return ErrPaymentConfirmed
	}
	if patch.PaymentMethod != nil {
		p.PaymentMethod = *patch.PaymentMethod
	}
	if patch.PaymentDate != nil {
		p.PaymentDate = *patch.PaymentDate
	}
	if patch.TransactionDetails != nil {
		p.TransactionDetails = patch.TransactionDetails
	}
	if patch.Remarks != nil {
		p.Remarks = *patch.Remarks
	}
	return nil
}

// Confirm makes the payment immutable.
func (p *Payment) Confirm(by string, at time.Time) error {
	if p.IsConfirmed {
		return ErrPaymentAlreadyConfirmed
	}
	p.IsConfirmed = true
	p.ConfirmedBy = by
	p.ConfirmedAt = &at
	return nil
}

// CanReverse checks the reversal preconditions.
func (p Payment) CanReverse() error {
	switch {
	case p.ReversalOf != "":
		return ErrPaymentIsReversal
	case !p.IsConfirmed:
		return ErrPaymentNotConfirmed
	case p.IsReversed:
		return ErrPaymentAlreadyReversed
	}
	return nil
}

// ApplyReversal sets the reversal fields; nothing else is touched. Callers
// check CanReverse (or hold the stored claim) first.
func (p *Payment) ApplyReversal(r Reversal) {
	at := r.ReversedAt
	p.IsReversed = true
	p.ReversedAt = &at
	p.ReversedBy = r.ReversedBy
	p.ReversalReason = r.Reason
	p.ReversalPaymentID = r.ReversalPaymentID
}
