package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MethodBreakdown is one payment-method bucket within a report.
type MethodBreakdown struct {
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Count         int64           `json:"count"`
}

// CashierDailyReport covers one cashier on one date. It includes pending
// and posted payments and excludes voided ones: the cash drawer holds money
// for receipts that are written but not yet posted.
type CashierDailyReport struct {
	Date        time.Time         `json:"date"`
	CashierID   int64             `json:"cashier_id"`
	CashierName string            `json:"cashier_name"`
	Total       decimal.Decimal   `json:"total"`
	Count       int64             `json:"count"`
	ByMethod    []MethodBreakdown `json:"by_method"`
}

// TermSummaryReport covers one term of one academic year. Posted payments
// only: term totals are recognized revenue, so pending is excluded here
// even though CashierDaily counts it.
type TermSummaryReport struct {
	Term         string            `json:"term"`
	AcademicYear int               `json:"year"`
	Total        decimal.Decimal   `json:"total"`
	Count        int64             `json:"count"`
	ByMethod     []MethodBreakdown `json:"by_method"`
}

// StudentBalanceReport lists a student's payments with a running total.
// TotalFees is a placeholder (fee schedules are not modeled here), so the
// balance is illustrative rather than a billing figure.
type StudentBalanceReport struct {
	StudentID     int64           `json:"student_id"`
	StudentNumber string          `json:"student_number"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Payments      []*Payment      `json:"payments"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalFees     decimal.Decimal `json:"total_fees"`
	Balance       decimal.Decimal `json:"balance"`
}
