// File: models/invoice.go
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is derived from the balance and due date; it is never set directly
// except by cancellation.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "Pending"
	InvoiceStatusPartial   InvoiceStatus = "Partial"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusOverdue   InvoiceStatus = "Overdue"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

var (
	ErrInvoicePaid         = errors.New("invoice is already paid")
	ErrInvoiceCancelled    = errors.New("invoice is cancelled")
	ErrInvoiceHasPayments  = errors.New("invoice has collected payments")
	ErrTotalBelowPaid      = errors.New("invoice total cannot be lower than the amount already paid")
	ErrPaymentExceedsDue   = errors.New("payment exceeds invoice balance")
	ErrReversalExceedsPaid = errors.New("reversal exceeds amount paid on invoice")
)

// InvoiceItem is a snapshot of a fee head at generation time.
type InvoiceItem struct {
	FeeHeadName string          `bson:"feeHeadName" json:"feeHeadName"`
	Amount      decimal.Decimal `bson:"amount" json:"amount"`
	Frequency   Frequency       `bson:"frequency" json:"frequency"`
}

// BillingPeriod is a display-oriented descriptor of what an invoice covers.
type BillingPeriod struct {
	Month       int    `bson:"month,omitempty" json:"month,omitempty"`
	Quarter     int    `bson:"quarter,omitempty" json:"quarter,omitempty"`
	Year        int    `bson:"year" json:"year"`
	Description string `bson:"description" json:"description"`
}

// NewBillingPeriod describes the period ending on due for the given frequency.
func NewBillingPeriod(due time.Time, freq Frequency) BillingPeriod {
	month := int(due.Month())
	quarter := (month-1)/3 + 1
	bp := BillingPeriod{Month: month, Quarter: quarter, Year: due.Year()}
	switch freq {
	case FrequencyQuarterly:
		bp.Month = 0
		bp.Description = fmt.Sprintf("Q%d %d", quarter, due.Year())
	case FrequencyAnnual:
		bp.Month, bp.Quarter = 0, 0
		bp.Description = fmt.Sprintf("%d", due.Year())
	default:
		bp.Description = fmt.Sprintf("%s %d", due.Month(), due.Year())
	}
	return bp
}

// Invoice tracks what one student owes for one billing cycle.
type Invoice struct {
	ID              string          `bson:"id" json:"id"`
	TenantID        string          `bson:"tenantId" json:"tenantId"`
	InvoiceNumber   string          `bson:"invoiceNumber" json:"invoiceNumber"`
	StudentID       string          `bson:"studentId" json:"studentId"`
	StudentName     string          `bson:"studentName,omitempty" json:"studentName,omitempty"`
	ClassID         string          `bson:"classId,omitempty" json:"classId,omitempty"`
	SectionID       string          `bson:"sectionId,omitempty" json:"sectionId,omitempty"`
	AcademicSession string          `bson:"academicSession" json:"academicSession"`
	FeeStructureID  string          `bson:"feeStructureId,omitempty" json:"feeStructureId,omitempty"`
	Items           []InvoiceItem   `bson:"items" json:"items"`
	TotalAmount     decimal.Decimal `bson:"totalAmount" json:"totalAmount"`
	PaidAmount      decimal.Decimal `bson:"paidAmount" json:"paidAmount"`
	BalanceAmount   decimal.Decimal `bson:"balanceAmount" json:"balanceAmount"`
	LateFeeAmount   decimal.Decimal `bson:"lateFeeAmount" json:"lateFeeAmount"`
	Status          InvoiceStatus   `bson:"status" json:"status"`
	DueDate         time.Time       `bson:"dueDate" json:"dueDate"`
	BillingPeriod   BillingPeriod   `bson:"billingPeriod" json:"billingPeriod"`
	Remarks         string          `bson:"remarks,omitempty" json:"remarks,omitempty"`
	Version         int64           `bson:"version" json:"version"`
	CreatedBy       string          `bson:"createdBy" json:"createdBy"`
	CancelledBy     string          `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CancelledAt     *time.Time      `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// SumItems returns the sum of item amounts.
func SumItems(items []InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// settle re-derives balance and status from total and paid.
// balance = max(0, total - paid) always holds after it runs.
func (inv *Invoice) settle() {
	inv.BalanceAmount = decimal.Max(decimal.Zero, inv.TotalAmount.Sub(inv.PaidAmount))
	if inv.Status == InvoiceStatusCancelled {
		return
	}
	switch {
	case inv.PaidAmount.IsPositive() && inv.BalanceAmount.IsZero():
		inv.Status = InvoiceStatusPaid
	case inv.PaidAmount.IsPositive():
		inv.Status = InvoiceStatusPartial
	default:
		inv.Status = InvoiceStatusPending
	}
}

// Open initializes a freshly generated invoice from its items.
func (inv *Invoice) Open(items []InvoiceItem) {
	inv.Items = items
	inv.TotalAmount = SumItems(items)
	inv.PaidAmount = decimal.Zero
	inv.LateFeeAmount = decimal.Zero
	inv.BalanceAmount = inv.TotalAmount
	inv.Status = InvoiceStatusPending
}

// ApplyPayment records money received (positive) or returned by a reversal (negative).
func (inv *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if inv.Status == InvoiceStatusCancelled {
		return ErrInvoiceCancelled
	}
	if amount.IsPositive() && amount.GreaterThan(inv.BalanceAmount) {
		return ErrPaymentExceedsDue
	}
	if amount.IsNegative() && amount.Neg().GreaterThan(inv.PaidAmount) {
		return ErrReversalExceedsPaid
	}
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	inv.settle()
	return nil
}

// ApplyLateFee adds a late fee to the invoice total.
func (inv *Invoice) ApplyLateFee(amount decimal.Decimal) error {
	switch inv.Status {
	case InvoiceStatusPaid:
		return ErrInvoicePaid
	case InvoiceStatusCancelled:
		return ErrInvoiceCancelled
	}
	inv.LateFeeAmount = inv.LateFeeAmount.Add(amount)
	inv.TotalAmount = inv.TotalAmount.Add(amount)
	inv.settle()
	return nil
}

// ReplaceItems swaps the line items. Late fees already applied stay part of the total.
func (inv *Invoice) ReplaceItems(items []InvoiceItem, due time.Time) error {
	if inv.Status == InvoiceStatusCancelled {
		return ErrInvoiceCancelled
	}
	total := SumItems(items).Add(inv.LateFeeAmount)
	if total.LessThan(inv.PaidAmount) {
		return ErrTotalBelowPaid
	}
	inv.Items = items
	inv.TotalAmount = total
	if !due.IsZero() {
		inv.DueDate = due
	}
	inv.settle()
	return nil
}

// Cancel moves an unpaid invoice to Cancelled.
func (inv *Invoice) Cancel(by string, at time.Time) error {
	if inv.Status == InvoiceStatusCancelled {
		return ErrInvoiceCancelled
	}
	if !inv.PaidAmount.IsZero() {
		return ErrInvoiceHasPayments
	}
	inv.Status = InvoiceStatusCancelled
	inv.CancelledBy = by
	inv.CancelledAt = &at
	return nil
}

// EffectiveStatus reports Overdue for open invoices past their due date.
func (inv Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if (inv.Status == InvoiceStatusPending || inv.Status == InvoiceStatusPartial) &&
		inv.BalanceAmount.IsPositive() && !inv.DueDate.IsZero() && now.After(inv.DueDate) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}
