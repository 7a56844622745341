package handlers

import (
	"github.com/shiningsmiles/tuition-ledger/internal/services"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// CashierDaily defaults to the acting user and today when cashier_id and
// date are absent.
func (h *ReportHandler) CashierDaily(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}

	date, ok := queryDate(ctx, "date")
	if !ok {
		return
	}

	report, err := h.reports.CashierDaily(ctx, queryInt64(ctx, "cashier_id"), date, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, report)
}

func (h *ReportHandler) TermSummary(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}

	report, err := h.reports.TermSummary(ctx, queryString(ctx, "term"), queryInt(ctx, "year"), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, report)
}

func (h *ReportHandler) StudentBalance(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}
	studentID, ok := pathID(ctx)
	if !ok {
		return
	}

	report, err := h.reports.StudentBalance(ctx, studentID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, report)
}
