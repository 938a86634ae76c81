package memory

import (
	"maps"
	"slices"

	"edufees/models"
)

// Rows are stored as private copies so callers can never mutate stored state.

func cloneFS(fs models.FeeStructure) models.FeeStructure {
	fs.FeeHeads = slices.Clone(fs.FeeHeads)
	return fs
}

func cloneInvoice(inv models.Invoice) models.Invoice {
	inv.Items = slices.Clone(inv.Items)
	if inv.CancelledAt != nil {
		t := *inv.CancelledAt
		inv.CancelledAt = &t
	}
	return inv
}

func clonePayment(p models.Payment) models.Payment {
	p.TransactionDetails = maps.Clone(p.TransactionDetails)
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		p.ConfirmedAt = &t
	}
	if p.ReversedAt != nil {
		t := *p.ReversedAt
		p.ReversedAt = &t
	}
	return p
}

func cloneAudit(a models.AuditLog) models.AuditLog {
	a.Details = maps.Clone(a.Details)
	return a
}
