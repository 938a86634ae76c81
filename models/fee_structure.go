// File: models/fee_structure.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the canonical billing frequency shared by fee heads and invoice items.
type Frequency string

const (
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
	FrequencyAnnual    Frequency = "Annual"
	FrequencyOneTime   Frequency = "One-time"
)

// frequencyAliases maps every spelling accepted at the boundary to its canonical value.
var frequencyAliases = map[string]Frequency{
	"monthly":   FrequencyMonthly,
	"month":     FrequencyMonthly,
	"quarterly": FrequencyQuarterly,
	"quarter":   FrequencyQuarterly,
	"annual":    FrequencyAnnual,
	"annually":  FrequencyAnnual,
	"yearly":    FrequencyAnnual,
	"one-time":  FrequencyOneTime,
	"one_time":  FrequencyOneTime,
	"onetime":   FrequencyOneTime,
	"one time":  FrequencyOneTime,
	"once":      FrequencyOneTime,
}

// ParseFrequency normalizes a raw frequency string. It is the only place
// where frequency spellings are mapped.
func ParseFrequency(raw string) (Frequency, error) {
	f, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown frequency %q", raw)
	}
	return f, nil
}

// Valid reports whether f is one of the canonical frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual, FrequencyOneTime:
		return true
	}
	return false
}

// FeeHead is a named fee category inside a structure.
type FeeHead struct {
	Name         string          `bson:"name" json:"name"`
	Amount       decimal.Decimal `bson:"amount" json:"amount"`
	Frequency    Frequency       `bson:"frequency" json:"frequency"`
	IsCompulsory bool            `bson:"isCompulsory" json:"isCompulsory"`
	DueDay       int             `bson:"dueDay" json:"dueDay"`
}

// FeeStructure defines the fee heads billed to a class (and optionally a section) for a session.
type FeeStructure struct {
	ID              string          `bson:"id" json:"id"`
	TenantID        string          `bson:"tenantId" json:"tenantId"`
	Name            string          `bson:"name" json:"name"`
	ClassID         string          `bson:"classId" json:"classId"`
	SectionID       string          `bson:"sectionId,omitempty" json:"sectionId,omitempty"`
	AcademicSession string          `bson:"academicSession" json:"academicSession"`
	Description     string          `bson:"description,omitempty" json:"description,omitempty"`
	FeeHeads        []FeeHead       `bson:"feeHeads" json:"feeHeads"`
	TotalAmount     decimal.Decimal `bson:"totalAmount" json:"totalAmount"`
	IsActive        bool            `bson:"isActive" json:"isActive"`
	CreatedBy       string          `bson:"createdBy" json:"createdBy"`
	UpdatedBy       string          `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// RecomputeTotal derives TotalAmount from the fee heads. Called on every save.
func (fs *FeeStructure) RecomputeTotal() {
	total := decimal.Zero
	for _, h := range fs.FeeHeads {
		total = total.Add(h.Amount)
	}
	fs.TotalAmount = total
}

// InvoiceItems snapshots the fee heads into invoice items.
func (fs FeeStructure) InvoiceItems() []InvoiceItem {
	items := make([]InvoiceItem, 0, len(fs.FeeHeads))
	for _, h := range fs.FeeHeads {
		items = append(items, InvoiceItem{
			FeeHeadName: h.Name,
			Amount:      h.Amount,
			Frequency:   h.Frequency,
		})
	}
	return items
}
