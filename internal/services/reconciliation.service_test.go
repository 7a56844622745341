package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
)

// seedDrawer posts $10.00 and leaves $8.00 pending for the cashier on the
// frozen test date. Only the posted amount counts toward the expected total.
func seedDrawer(t *testing.T, f *fixture) {
	t.Helper()

	posted := cashRequest("10.00")
	posted.Status = model.PaymentStatusPosted
	f.createPayment(t, posted, cashierID)

	pending := cashRequest("8.00")
	f.createPayment(t, pending, cashierID)
}

func TestReconcile_Balanced(t *testing.T) {
	f := setupFixture(t)
	seedDrawer(t, f)

	rec, err := f.recon.Reconcile(context.Background(), model.ReconciliationCreateRequest{
		ActualAmount: decimal.RequireFromString("10.00"),
	}, cashierID)
	require.NoError(t, err)

	assert.True(t, rec.ExpectedTotal.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, rec.Variance.IsZero())
	assert.Equal(t, model.ReconciliationBalanced, rec.Status)
	assert.Equal(t, cashierID.UserID, rec.CashierID)
	assert.Equal(t, "John Doe", rec.CashierName)
	assert.Equal(t, model.DateOnly(testClock), rec.Date)
}

func TestReconcile_ShortAndOver(t *testing.T) {
	f := setupFixture(t)
	seedDrawer(t, f)
	ctx := context.Background()

	short, err := f.recon.Reconcile(ctx, model.ReconciliationCreateRequest{
		ActualAmount: decimal.RequireFromString("9.50"),
		Notes:        "till count after close",
	}, cashierID)
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationShort, short.Status)
	assert.True(t, short.Variance.Equal(decimal.RequireFromString("-0.50")))

	over, err := f.recon.Reconcile(ctx, model.ReconciliationCreateRequest{
		ActualAmount: decimal.RequireFromString("12.00"),
	}, cashierID)
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationOver, over.Status)
	assert.True(t, over.Variance.Equal(decimal.RequireFromString("2.00")))
}

func TestReconcile_VoidedNeverCounts(t *testing.T) {
	f := setupFixture(t)
	seedDrawer(t, f)
	ctx := context.Background()

	extra := cashRequest("5.00")
	extra.Status = model.PaymentStatusPosted
	p := f.createPayment(t, extra, cashierID)
	_, err := f.ledger.Void(ctx, p.ID, "test entry", adminID)
	require.NoError(t, err)

	rec, err := f.recon.Reconcile(ctx, model.ReconciliationCreateRequest{
		ActualAmount: decimal.RequireFromString("10.00"),
	}, cashierID)
	require.NoError(t, err)
	assert.True(t, rec.ExpectedTotal.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, model.ReconciliationBalanced, rec.Status)
}

func TestReconcile_SubmitRoleGate(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	req := model.ReconciliationCreateRequest{ActualAmount: decimal.Zero}

	_, err := f.recon.Reconcile(ctx, req, accountantID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.recon.Reconcile(ctx, req, auditorID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.recon.Reconcile(ctx, req, adminID)
	require.NoError(t, err)
}

func TestReconcile_OtherCashierIsAdminOnly(t *testing.T) {
	f := setupFixture(t)
	seedDrawer(t, f)
	ctx := context.Background()

	target := cashierID.UserID
	req := model.ReconciliationCreateRequest{
		CashierID:    &target,
		ActualAmount: decimal.RequireFromString("10.00"),
	}

	_, err := f.recon.Reconcile(ctx, req, otherCashierID)
	require.ErrorIs(t, err, ErrForbidden)

	rec, err := f.recon.Reconcile(ctx, req, adminID)
	require.NoError(t, err)
	assert.Equal(t, cashierID.UserID, rec.CashierID)
	assert.Equal(t, "John Doe", rec.CashierName)
	assert.Equal(t, model.ReconciliationBalanced, rec.Status)

	unknown := int64(404)
	req.CashierID = &unknown
	_, err = f.recon.Reconcile(ctx, req, adminID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestReconcile_ListScopedToTenant(t *testing.T) {
	f := setupFixture(t)
	seedDrawer(t, f)
	ctx := context.Background()

	_, err := f.recon.Reconcile(ctx, model.ReconciliationCreateRequest{
		ActualAmount: decimal.RequireFromString("10.00"),
	}, cashierID)
	require.NoError(t, err)

	recs, total, err := f.recon.List(ctx, model.ReconciliationFilter{}, auditorID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, recs, 1)

	foreign := auditorID
	foreign.TenantID = 2
	recs, total, err = f.recon.List(ctx, model.ReconciliationFilter{TenantID: testTenant}, foreign)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, recs)
}
