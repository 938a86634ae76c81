// File: models/balance.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StudentBalance is the derived outstanding balance of one student for one session.
// It is always rebuilt from the invoices, never patched.
type StudentBalance struct {
	TenantID               string          `bson:"tenantId" json:"tenantId"`
	StudentID              string          `bson:"studentId" json:"studentId"`
	AcademicSession        string          `bson:"academicSession" json:"academicSession"`
	TotalBalance           decimal.Decimal `bson:"totalBalance" json:"totalBalance"`
	TotalInvoiced          decimal.Decimal `bson:"totalInvoiced" json:"totalInvoiced"`
	TotalPaid              decimal.Decimal `bson:"totalPaid" json:"totalPaid"`
	InvoiceCount           int             `bson:"invoiceCount" json:"invoiceCount"`
	PreviousSessionBalance decimal.Decimal `bson:"previousSessionBalance" json:"previousSessionBalance"`
	LastUpdated            time.Time       `bson:"lastUpdated" json:"lastUpdated"`
}

// SummarizeInvoices folds the non-cancelled invoices into balance totals.
func SummarizeInvoices(invoices []Invoice) (balance, invoiced, paid decimal.Decimal, count int) {
	balance, invoiced, paid = decimal.Zero, decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		if inv.Status == InvoiceStatusCancelled {
			continue
		}
		balance = balance.Add(inv.BalanceAmount)
		invoiced = invoiced.Add(inv.TotalAmount)
		paid = paid.Add(inv.PaidAmount)
		count++
	}
	return balance, invoiced, paid, count
}
