package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"edufees/database/repository/memory"
	"edufees/models"
	"edufees/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() models.Scope {
	return models.Scope{
		TenantID: "t1",
		Actor:    models.Actor{UserID: "u1", UserName: "Bursar", Role: "accountant"},
		Meta:     models.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"},
	}
}

func newService(store *memory.Store, start time.Time) *DefaultAuditService {
	svc := NewDefaultAuditService(store.Audit, nil)
	clock := start
	svc.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func TestLogActionRecordsActorAndRequestMeta(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	svc.LogAction(context.Background(), testScope(), models.ActionPaymentCollected,
		models.EntityRef{Kind: models.EntityPayment, ID: "p1"}, map[string]any{"amount": "100"})

	all := store.Audit.All()
	require.Len(t, all, 1)
	e := all[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "t1", e.TenantID)
	assert.Equal(t, models.EntityPayment, e.EntityType)
	assert.Equal(t, "p1", e.EntityID)
	assert.Equal(t, "Bursar", e.UserName)
	assert.Equal(t, "accountant", e.UserRole)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "100", e.Details["amount"])
}

func TestLogActionSwallowsStoreFailures(t *testing.T) {
	store := memory.NewStore()
	store.Faults().FailNext(memory.OpAuditInsert, errors.New("disk full"))
	svc := newService(store, time.Now())

	assert.NotPanics(t, func() {
		svc.LogAction(context.Background(), testScope(), models.ActionInvoiceGenerated,
			models.EntityRef{Kind: models.EntityInvoice, ID: "i1"}, nil)
	})
	assert.Empty(t, store.Audit.All())
}

func TestEntityTrailIsNewestFirstAndCapped(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ref := models.EntityRef{Kind: models.EntityInvoice, ID: "i1"}

	for i := 0; i < MaxEntries+20; i++ {
		svc.LogAction(context.Background(), testScope(), models.ActionLateFeeApplied, ref, map[string]any{"n": i})
	}
	svc.LogAction(context.Background(), testScope(), models.ActionLateFeeApplied,
		models.EntityRef{Kind: models.EntityInvoice, ID: "other"}, nil)

	trail, err := svc.GetEntityAuditTrail(context.Background(), testScope(), ref)
	require.NoError(t, err)
	require.Len(t, trail, MaxEntries)
	assert.Equal(t, MaxEntries+19, trail[0].Details["n"])
	for i := 1; i < len(trail); i++ {
		assert.True(t, trail[i-1].Timestamp.After(trail[i].Timestamp))
	}
}

func TestEntityTrailIsTenantScoped(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, time.Now())
	ref := models.EntityRef{Kind: models.EntityInvoice, ID: "i1"}
	svc.LogAction(context.Background(), testScope(), models.ActionInvoiceGenerated, ref, nil)

	other := testScope()
	other.TenantID = "t2"
	trail, err := svc.GetEntityAuditTrail(context.Background(), other, ref)
	require.NoError(t, err)
	assert.Empty(t, trail)

	_, err = svc.GetEntityAuditTrail(context.Background(), models.Scope{}, ref)
	assert.True(t, utils.IsKind(err, utils.KindUnscoped))
}

func TestUserActivityFilters(t *testing.T) {
	store := memory.NewStore()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(store, start)
	ref := models.EntityRef{Kind: models.EntityPayment, ID: "p1"}

	svc.LogAction(context.Background(), testScope(), models.ActionPaymentCollected, ref, nil) // +1s
	svc.LogAction(context.Background(), testScope(), models.ActionPaymentConfirmed, ref, nil) // +2s
	svc.LogAction(context.Background(), testScope(), models.ActionPaymentReversed, ref, nil)  // +3s

	byAction, err := svc.GetUserActivity(context.Background(), testScope(), "u1",
		models.AuditQuery{Action: models.ActionPaymentConfirmed})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, models.ActionPaymentConfirmed, byAction[0].Action)

	windowed, err := svc.GetUserActivity(context.Background(), testScope(), "u1", models.AuditQuery{
		StartDate: start.Add(2 * time.Second),
		EndDate:   start.Add(3 * time.Second),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 2)
	assert.Equal(t, models.ActionPaymentReversed, windowed[0].Action)

	limited, err := svc.GetUserActivity(context.Background(), testScope(), "u1", models.AuditQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = svc.GetUserActivity(context.Background(), testScope(), "u1", models.AuditQuery{
		StartDate: start.Add(time.Hour),
		EndDate:   start,
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}
