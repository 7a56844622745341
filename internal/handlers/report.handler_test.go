package handlers

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
)

func TestReportHandlerCashierDaily(t *testing.T) {
	h := setupHandlers(t)

	ctx := setupTestContext("POST", "/api/v1/payments", createBody(t, "18.00"), &testCashier)
	h.payments.Create(ctx)
	require.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/api/v1/reports/cashier-daily", nil, &testCashier)
	h.reports.CashierDaily(ctx)
	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	var report model.CashierDailyReport
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &report))
	assert.Equal(t, "John Doe", report.CashierName)
	assert.True(t, report.Total.Equal(decimal.RequireFromString("18.00")))
	assert.EqualValues(t, 1, report.Count)

	ctx = setupTestContext("GET", "/api/v1/reports/cashier-daily?date=bogus", nil, &testCashier)
	h.reports.CashierDaily(ctx)
	assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestReportHandlerTermSummary(t *testing.T) {
	h := setupHandlers(t)
	now := time.Now()
	term := model.TermForMonth(now.Month())
	year := now.Year()

	posted, _ := json.Marshal(map[string]interface{}{
		"student": 10, "amount": "20.00", "payment_method": "Cash", "status": "posted",
	})
	ctx := setupTestContext("POST", "/api/v1/payments", posted, &testCashier)
	h.payments.Create(ctx)
	require.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

	ctx = setupTestContext("POST", "/api/v1/payments", createBody(t, "15.00"), &testCashier)
	h.payments.Create(ctx)
	require.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

	uri := fmt.Sprintf("/api/v1/reports/term-summary?term=%s&year=%d", term, year)
	ctx = setupTestContext("GET", uri, nil, &testAuditor)
	h.reports.TermSummary(ctx)
	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	var report model.TermSummaryReport
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &report))
	assert.True(t, report.Total.Equal(decimal.RequireFromString("20.00")))
	assert.EqualValues(t, 1, report.Count)

	// missing parameters name the offending fields
	ctx = setupTestContext("GET", "/api/v1/reports/term-summary", nil, &testAuditor)
	h.reports.TermSummary(ctx)
	assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Contains(t, resp.Fields, "term")
	assert.Contains(t, resp.Fields, "academic_year")
}

func TestReportHandlerStudentBalance(t *testing.T) {
	h := setupHandlers(t)

	ctx := setupTestContext("POST", "/api/v1/payments", createBody(t, "30.00"), &testCashier)
	h.payments.Create(ctx)
	require.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/api/v1/reports/student-balance/10", nil, &testAuditor)
	ctx.SetUserValue("id", "10")
	h.reports.StudentBalance(ctx)
	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	var report model.StudentBalanceReport
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &report))
	assert.Equal(t, "SS-2026-010", report.StudentNumber)
	require.Len(t, report.Payments, 1)
	assert.True(t, report.TotalPaid.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, report.Balance.Equal(decimal.RequireFromString("-30.00")))

	ctx = setupTestContext("GET", "/api/v1/reports/student-balance/999", nil, &testAuditor)
	ctx.SetUserValue("id", "999")
	h.reports.StudentBalance(ctx)
	assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
}
