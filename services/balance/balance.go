package balance

import (
	"context"
	"errors"
	"time"

	"edufees/database/repository"
	balanceRepo "edufees/database/repository/balance"
	invoiceRepo "edufees/database/repository/invoice"
	"edufees/models"
	"edufees/services/audit"
	"edufees/utils"

	"go.uber.org/zap"
)

// BalanceService maintains the StudentBalance read model. Balances are always
// rebuilt from the invoices; nothing patches them incrementally.
type BalanceService interface {
	// UpdateBalance recomputes and stores the balance. Called after every
	// invoice or payment mutation.
	UpdateBalance(ctx context.Context, tenantID, studentID, session string) (*models.StudentBalance, error)
	// GetBalance reads through the cache.
	GetBalance(ctx context.Context, scope models.Scope, studentID, session string) (*models.StudentBalance, error)
	// Recompute is the audited, caller-initiated UpdateBalance.
	Recompute(ctx context.Context, scope models.Scope, studentID, session string) (*models.StudentBalance, error)
	// CarryForward records the outstanding amount of fromSession as the
	// previous-session balance of toSession.
	CarryForward(ctx context.Context, scope models.Scope, studentID, fromSession, toSession string) (*models.StudentBalance, error)
}

type DefaultBalanceService struct {
	Balances balanceRepo.BalanceRepository
	Invoices invoiceRepo.InvoiceRepository
	Cache    Cache
	Audit    audit.AuditService
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewDefaultBalanceService(
	balances balanceRepo.BalanceRepository,
	invoices invoiceRepo.InvoiceRepository,
	cache Cache,
	auditSvc audit.AuditService,
	logger *zap.Logger,
) *DefaultBalanceService {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultBalanceService{
		Balances: balances,
		Invoices: invoices,
		Cache:    cache,
		Audit:    auditSvc,
		Logger:   logger,
		Now:      time.Now,
	}
}

// maxRecomputeRounds bounds how often UpdateBalance re-reads invoices that
// kept changing underneath it.
const maxRecomputeRounds = 5

// UpdateBalance rebuilds until the invoices read after the write still add up
// to what was written. It only evicts the cache; GetBalance fills it.
func (s *DefaultBalanceService) UpdateBalance(ctx context.Context, tenantID, studentID, session string) (*models.StudentBalance, error) {
	defer s.evict(ctx, tenantID, studentID, session)

	current, err := s.summarize(ctx, tenantID, studentID, session)
	if err != nil {
		return nil, err
	}
	for round := 1; ; round++ {
		stored, err := s.Balances.Upsert(ctx, &models.StudentBalance{
			TenantID:        tenantID,
			StudentID:       studentID,
			AcademicSession: session,
			TotalBalance:    current.TotalBalance,
			TotalInvoiced:   current.TotalInvoiced,
			TotalPaid:       current.TotalPaid,
			InvoiceCount:    current.InvoiceCount,
			LastUpdated:     s.Now().UTC(),
		})
		if err != nil {
			return nil, utils.Infra("could not store balance", err)
		}

		latest, err := s.summarize(ctx, tenantID, studentID, session)
		if err != nil {
			return nil, err
		}
		if sameTotals(latest, current) {
			return stored, nil
		}
		if round == maxRecomputeRounds {
			s.Logger.Warn("balance kept changing during recompute",
				zap.String("tenantId", tenantID), zap.String("studentId", studentID),
				zap.String("academicSession", session), zap.Int("rounds", round))
			return stored, nil
		}
		current = latest
	}
}

func (s *DefaultBalanceService) summarize(ctx context.Context, tenantID, studentID, session string) (*models.StudentBalance, error) {
	invoices, err := s.Invoices.ListByStudentSession(ctx, tenantID, studentID, session)
	if err != nil {
		return nil, utils.Infra("could not load invoices for balance", err)
	}
	b := &models.StudentBalance{}
	b.TotalBalance, b.TotalInvoiced, b.TotalPaid, b.InvoiceCount = models.SummarizeInvoices(invoices)
	return b, nil
}

func sameTotals(a, b *models.StudentBalance) bool {
	return a.TotalBalance.Equal(b.TotalBalance) &&
		a.TotalInvoiced.Equal(b.TotalInvoiced) &&
		a.TotalPaid.Equal(b.TotalPaid) &&
		a.InvoiceCount == b.InvoiceCount
}

func (s *DefaultBalanceService) evict(ctx context.Context, tenantID, studentID, session string) {
	key := CacheKey(tenantID, studentID, session)
	if err := s.Cache.Delete(ctx, key); err != nil {
		s.Logger.Warn("balance cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DefaultBalanceService) GetBalance(ctx context.Context, scope models.Scope, studentID, session string) (*models.StudentBalance, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if studentID == "" || session == "" {
		return nil, utils.Validation("invalid_balance_key", "academicSession", "student and academic session are required")
	}

	key := CacheKey(scope.TenantID, studentID, session)
	if cached, err := s.Cache.Get(ctx, key); err != nil {
		s.Logger.Warn("balance cache read failed", zap.String("key", key), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	b, err := s.Balances.Get(ctx, scope.TenantID, studentID, session)
	if errors.Is(err, repository.ErrNotFound) {
		b, err = s.UpdateBalance(ctx, scope.TenantID, studentID, session)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, utils.Infra("could not load balance", err)
	}
	if err := s.Cache.Set(ctx, key, b); err != nil {
		s.Logger.Warn("balance cache write failed", zap.String("key", key), zap.Error(err))
	}
	return b, nil
}

func (s *DefaultBalanceService) Recompute(ctx context.Context, scope models.Scope, studentID, session string) (*models.StudentBalance, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if studentID == "" || session == "" {
		return nil, utils.Validation("invalid_balance_key", "academicSession", "student and academic session are required")
	}
	b, err := s.UpdateBalance(ctx, scope.TenantID, studentID, session)
	if err != nil {
		return nil, err
	}
	s.Audit.LogAction(ctx, scope, models.ActionBalanceUpdated, models.StudentBalanceRef(studentID, session), map[string]any{
		"totalBalance": b.TotalBalance.String(),
		"invoiceCount": b.InvoiceCount,
	})
	return b, nil
}

func (s *DefaultBalanceService) CarryForward(ctx context.Context, scope models.Scope, studentID, fromSession, toSession string) (*models.StudentBalance, error) {
	if err := utils.RequireScope(scope); err != nil {
		return nil, err
	}
	if studentID == "" || fromSession == "" || toSession == "" {
		return nil, utils.Validation("invalid_balance_key", "toSession", "student, fromSession and toSession are required")
	}
	if fromSession == toSession {
		return nil, utils.Validation("same_session", "toSession", "cannot carry a balance into the same session")
	}

	from, err := s.UpdateBalance(ctx, scope.TenantID, studentID, fromSession)
	if err != nil {
		return nil, err
	}
	// The source session's own carried amount travels with it.
	amount := from.TotalBalance.Add(from.PreviousSessionBalance)

	to, err := s.Balances.SetPreviousSessionBalance(ctx, scope.TenantID, studentID, toSession, amount, s.Now().UTC())
	if err != nil {
		return nil, utils.Infra("could not store carried balance", err)
	}
	s.evict(ctx, scope.TenantID, studentID, toSession)

	s.Audit.LogAction(ctx, scope, models.ActionBalanceCarriedForward, models.StudentBalanceRef(studentID, toSession), map[string]any{
		"fromSession": fromSession,
		"toSession":   toSession,
		"amount":      amount.String(),
	})
	return to, nil
}
