package invoice

import (
	"strings"
	"time"

	invoiceRepo "edufees/database/repository/invoice"
	"edufees/models"
	"edufees/utils"

	"github.com/shopspring/decimal"
)

// ItemInput is an explicit invoice line.
type ItemInput struct {
	FeeHeadName string          `json:"feeHeadName" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   string          `json:"frequency" binding:"omitempty,frequency"`
}

// FeeSource is either a fee structure id or an explicit item list.
type FeeSource struct {
	FeeStructureID string      `json:"feeStructureId,omitempty"`
	Items          []ItemInput `json:"items,omitempty" binding:"omitempty,dive"`
}

type GenerateInput struct {
	FeeSource
	StudentID       string    `json:"studentId" binding:"required"`
	DueDate         time.Time `json:"dueDate" binding:"required"`
	AcademicSession string    `json:"academicSession" binding:"required"`
	Remarks         string    `json:"remarks,omitempty"`
}

// BulkInput targets every student of a class (and optionally one section).
// Class may be a class id or display name.
type BulkInput struct {
	FeeSource
	Class           string    `json:"classId" binding:"required"`
	SectionID       string    `json:"sectionId,omitempty"`
	DueDate         time.Time `json:"dueDate" binding:"required"`
	AcademicSession string    `json:"academicSession" binding:"required"`
	Remarks         string    `json:"remarks,omitempty"`
}

// BulkError is one student's failure inside a bulk run.
type BulkError struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// BulkResult summarizes a bulk run. A run with failures is still a success.
type BulkResult struct {
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	InvoiceIDs []string         `json:"invoiceIds"`
	Errors     []BulkError      `json:"errors"`
	Invoices   []models.Invoice `json:"-"`
}

// UpdateInput replaces the items and/or the due date.
type UpdateInput struct {
	Items   []ItemInput `json:"items,omitempty" binding:"omitempty,dive"`
	DueDate *time.Time  `json:"dueDate,omitempty"`
	Remarks *string     `json:"remarks,omitempty"`
}

// ListFilter is the reader-facing filter. Status is matched against the
// effective status, so "Overdue" works even though it is never stored.
type ListFilter struct {
	StudentID       string
	ClassID         string
	AcademicSession string
	Status          models.InvoiceStatus
	Limit           int
}

func (f ListFilter) repoFilter(now time.Time) invoiceRepo.Filter {
	out := invoiceRepo.Filter{
		StudentID:       f.StudentID,
		ClassID:         f.ClassID,
		AcademicSession: f.AcademicSession,
	}
	switch f.Status {
	case "":
	case models.InvoiceStatusOverdue:
		out.Statuses = []models.InvoiceStatus{models.InvoiceStatusPending, models.InvoiceStatusPartial}
		out.DueBefore = now
	default:
		out.Statuses = []models.InvoiceStatus{f.Status}
	}
	return out
}

// explicitItems validates caller-supplied lines.
func explicitItems(in []ItemInput) ([]models.InvoiceItem, error) {
	items := make([]models.InvoiceItem, 0, len(in))
	for _, it := range in {
		name := strings.TrimSpace(it.FeeHeadName)
		if name == "" {
			return nil, utils.Validation("invalid_item", "items.feeHeadName", "item name is required")
		}
		if it.Amount.IsNegative() {
			return nil, utils.Validation("invalid_amount", "items.amount", "item "+name+" has a negative amount")
		}
		freq := models.FrequencyOneTime
		if it.Frequency != "" {
			f, err := models.ParseFrequency(it.Frequency)
			if err != nil {
				return nil, utils.Validation("invalid_frequency", "items.frequency", err.Error())
			}
			freq = f
		}
		items = append(items, models.InvoiceItem{FeeHeadName: name, Amount: it.Amount, Frequency: freq})
	}
	return items, nil
}
