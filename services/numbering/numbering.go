package numbering

import (
	"context"
	"fmt"
	"time"

	counterRepo "edufees/database/repository/counter"
	"edufees/utils"
)

// Scope kinds used in counter keys.
const (
	KindInvoice = "invoice"
	KindReceipt = "receipt"
)

// NumberingService hands out tenant+year scoped document numbers.
type NumberingService interface {
	// NextSequence returns the next value for scopeKey. Values are never reused.
	NextSequence(ctx context.Context, scopeKey string) (int64, error)
	// InvoiceNumber returns the next "INV-<year>-NNNNN" for the tenant.
	InvoiceNumber(ctx context.Context, tenantID string, at time.Time) (string, error)
	// ReceiptNumber returns the next "RCP-<year>-NNNNN" for the tenant.
	ReceiptNumber(ctx context.Context, tenantID string, at time.Time) (string, error)
}

// DefaultNumberingService is backed by a durable counter store.
type DefaultNumberingService struct {
	Counters      counterRepo.CounterRepository
	InvoicePrefix string
	ReceiptPrefix string
}

func NewDefaultNumberingService(counters counterRepo.CounterRepository, invoicePrefix, receiptPrefix string) *DefaultNumberingService {
	if invoicePrefix == "" {
		invoicePrefix = "INV"
	}
	if receiptPrefix == "" {
		receiptPrefix = "RCP"
	}
	return &DefaultNumberingService{Counters: counters, InvoicePrefix: invoicePrefix, ReceiptPrefix: receiptPrefix}
}

// ScopeKey builds the counter key for a kind, tenant and year.
func ScopeKey(kind, tenantID string, year int) string {
	return fmt.Sprintf("%s_%s_%d", kind, tenantID, year)
}

// Format renders a document number.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

func (s *DefaultNumberingService) NextSequence(ctx context.Context, scopeKey string) (int64, error) {
	seq, err := s.Counters.Increment(ctx, scopeKey)
	if err != nil {
		return 0, utils.Infra("numbering unavailable", err)
	}
	return seq, nil
}

func (s *DefaultNumberingService) InvoiceNumber(ctx context.Context, tenantID string, at time.Time) (string, error) {
	return s.next(ctx, KindInvoice, s.InvoicePrefix, tenantID, at)
}

func (s *DefaultNumberingService) ReceiptNumber(ctx context.Context, tenantID string, at time.Time) (string, error) {
	return s.next(ctx, KindReceipt, s.ReceiptPrefix, tenantID, at)
}

func (s *DefaultNumberingService) next(ctx context.Context, kind, prefix, tenantID string, at time.Time) (string, error) {
	year := at.Year()
	seq, err := s.NextSequence(ctx, ScopeKey(kind, tenantID, year))
	if err != nil {
		return "", err
	}
	return Format(prefix, year, seq), nil
}
