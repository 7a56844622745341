package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
)

func testPayment(receipt string) *model.Payment {
	return &model.Payment{
		TenantID:      1,
		StudentID:     10,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: "Cash",
		FeeType:       "Tuition",
		ReceiptNumber: receipt,
		Term:          "1",
		AcademicYear:  2026,
		Status:        model.PaymentStatusPending,
		CashierName:   "John Doe",
		Date:          model.DateOnly(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)),
	}
}

func TestPaymentCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, testPayment("REC-2026-00001"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "REC-2026-00001", got.ReceiptNumber)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("100.00")))

	// a different tenant cannot see the row
	_, err = repo.GetByID(ctx, 2, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentCreate_DuplicateReceiptScope(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, testPayment("REC-2026-00001"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, testPayment("REC-2026-00001"))
	require.ErrorIs(t, err, ErrDuplicateReceipt)

	// same receipt in another term is a different scope
	other := testPayment("REC-2026-00001")
	other.Term = "2"
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	// and so is another tenant
	foreign := testPayment("REC-2026-00001")
	foreign.TenantID = 2
	_, err = repo.Create(ctx, foreign)
	require.NoError(t, err)
}

func TestPaymentCreate_ConcurrentSameReceipt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	const attempts = 40
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, testPayment("REC-2026-42000"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, ErrDuplicateReceipt)
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, dup)
}

func TestPaymentUpdateFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, testPayment("REC-2026-00001"))
	require.NoError(t, err)

	err = repo.UpdateFields(ctx, 1, created.ID, map[string]interface{}{
		"amount": decimal.RequireFromString("225.50"),
		"status": string(model.PaymentStatusPosted),
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("225.50")))
	assert.Equal(t, model.PaymentStatusPosted, got.Status)

	err = repo.UpdateFields(ctx, 1, 9999, map[string]interface{}{"fee_type": "Library"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentUpdateFields_ReceiptCollision(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, testPayment("REC-2026-00001"))
	require.NoError(t, err)
	second, err := repo.Create(ctx, testPayment("REC-2026-00002"))
	require.NoError(t, err)

	err = repo.UpdateFields(ctx, 1, second.ID, map[string]interface{}{
		"receipt_number": "REC-2026-00001",
	})
	require.ErrorIs(t, err, ErrDuplicateReceipt)
}

func TestPaymentMarkVoided(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, testPayment("REC-2026-00001"))
	require.NoError(t, err)

	at := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkVoided(ctx, 1, created.ID, "entered twice", "Admin User", at))

	got, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusVoided, got.Status)
	assert.Equal(t, "entered twice", got.VoidReason)
	assert.Equal(t, "Admin User", got.VoidedBy)
	require.NotNil(t, got.VoidedAt)

	// the guarded update refuses a second void
	err = repo.MarkVoided(ctx, 1, created.ID, "again", "Admin User", at)
	require.ErrorIs(t, err, ErrAlreadyVoided)

	err = repo.MarkVoided(ctx, 1, 9999, "nope", "Admin User", at)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, testPayment("REC-2026-00001"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, 1, created.ID))
	require.ErrorIs(t, repo.Delete(ctx, 1, created.ID), ErrNotFound)
}

func TestPaymentList_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	a := testPayment("REC-2026-00001")
	b := testPayment("REC-2026-00002")
	b.Status = model.PaymentStatusPosted
	c := testPayment("REC-2026-00003")
	c.CashierName = "Jane Smith"
	for _, p := range []*model.Payment{a, b, c} {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	posted := model.PaymentStatusPosted
	payments, total, err := repo.List(ctx, model.PaymentFilter{TenantID: 1, Status: &posted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, payments, 1)
	assert.Equal(t, "REC-2026-00002", payments[0].ReceiptNumber)

	jane := "Jane Smith"
	payments, total, err = repo.List(ctx, model.PaymentFilter{TenantID: 1, CashierName: &jane})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	payments, total, err = repo.List(ctx, model.PaymentFilter{TenantID: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, payments, 2)
}

func TestLatestReceiptAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	latest, err := repo.LatestReceipt(ctx, 1, "REC-2026-")
	require.NoError(t, err)
	assert.Empty(t, latest)

	_, err = repo.Create(ctx, testPayment("REC-2026-00007"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testPayment("REC-2026-00008"))
	require.NoError(t, err)

	latest, err = repo.LatestReceipt(ctx, 1, "REC-2026-")
	require.NoError(t, err)
	assert.Equal(t, "REC-2026-00008", latest)

	count, err := repo.CountForYear(ctx, 1, 2026)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSumPostedByCashierDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()
	date := model.DateOnly(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))

	posted := testPayment("REC-2026-00001")
	posted.Status = model.PaymentStatusPosted
	posted.Amount = decimal.RequireFromString("10.00")
	_, err := repo.Create(ctx, posted)
	require.NoError(t, err)

	pending := testPayment("REC-2026-00002")
	pending.Amount = decimal.RequireFromString("8.00")
	_, err = repo.Create(ctx, pending)
	require.NoError(t, err)

	voided := testPayment("REC-2026-00003")
	voided.Status = model.PaymentStatusVoided
	voided.Amount = decimal.RequireFromString("4.00")
	_, err = repo.Create(ctx, voided)
	require.NoError(t, err)

	sum, err := repo.SumPostedByCashierDate(ctx, 1, "John Doe", date)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("10.00")))

	// no rows at all still sums to zero
	sum, err = repo.SumPostedByCashierDate(ctx, 1, "Nobody", date)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestDailyAndTermBreakdowns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()
	date := model.DateOnly(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))

	cash := testPayment("REC-2026-00001")
	cash.Status = model.PaymentStatusPosted
	cash.Amount = decimal.RequireFromString("20.00")
	_, err := repo.Create(ctx, cash)
	require.NoError(t, err)

	transfer := testPayment("REC-2026-00002")
	transfer.PaymentMethod = model.MethodBankTransfer
	transfer.Amount = decimal.RequireFromString("15.00")
	_, err = repo.Create(ctx, transfer)
	require.NoError(t, err)

	byMethod, total, count, err := repo.DailyBreakdown(ctx, 1, "John Doe", date)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.True(t, total.Equal(decimal.RequireFromString("35.00")))
	require.Len(t, byMethod, 2)
	assert.Equal(t, model.MethodBankTransfer, byMethod[0].PaymentMethod)
	assert.Equal(t, "Cash", byMethod[1].PaymentMethod)

	// term totals count posted only, so the pending transfer drops out
	byMethod, total, count, err = repo.TermBreakdown(ctx, 1, "1", 2026)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.True(t, total.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, byMethod, 1)
}

func TestWithinTransaction_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepository(db.DB)
	ctx := context.Background()

	boom := assert.AnError
	err := repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, testPayment("REC-2026-00001")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, total, err := repo.List(ctx, model.PaymentFilter{TenantID: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
}
