package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus is derived from the sign of the variance.
type ReconciliationStatus string

const (
	ReconciliationBalanced ReconciliationStatus = "balanced"
	ReconciliationShort    ReconciliationStatus = "short"
	ReconciliationOver     ReconciliationStatus = "over"
)

// StatusForVariance derives the reconciliation status: zero is balanced,
// negative is short (drawer has less than expected), positive is over.
func StatusForVariance(variance decimal.Decimal) ReconciliationStatus {
	switch variance.Sign() {
	case 0:
		return ReconciliationBalanced
	case -1:
		return ReconciliationShort
	default:
		return ReconciliationOver
	}
}

// Reconciliation is a derived audit record comparing a cashier's actual
// drawer total against the system-expected total for one day. Immutable
// after creation.
type Reconciliation struct {
	ID            int64                `json:"id"`
	TenantID      int64                `json:"tenant_id"`
	CashierID     int64                `json:"cashier"`
	CashierName   string               `json:"cashier_name"`
	Date          time.Time            `json:"date"`
	ExpectedTotal decimal.Decimal      `json:"expected_total"`
	ActualAmount  decimal.Decimal      `json:"actual_amount"`
	Variance      decimal.Decimal      `json:"variance"`
	Status        ReconciliationStatus `json:"status"`
	Notes         string               `json:"notes,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ReconciliationCreateRequest is the input for a reconciliation submission.
// ExpectedTotal is never part of the request: it is recomputed server-side.
type ReconciliationCreateRequest struct {
	// CashierID selects another cashier to reconcile; admin only. Default
	// is the acting identity.
	CashierID    *int64          `json:"cashier_id"`
	Date         *time.Time      `json:"date"`
	ActualAmount decimal.Decimal `json:"actual_amount"`
	Notes        string          `json:"notes"`
}

// ReconciliationFilter controls List queries.
type ReconciliationFilter struct {
	TenantID  int64
	CashierID *int64
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}
