package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/internal/services"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
)

type ReconciliationHandler struct {
	recon *services.ReconciliationService
}

func NewReconciliationHandler(recon *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon}
}

// reconciliationRequest is the wire shape; the date comes in as yyyy-mm-dd.
type reconciliationRequest struct {
	CashierID    *int64          `json:"cashier_id"`
	Date         string          `json:"date"`
	ActualAmount decimal.Decimal `json:"actual_amount"`
	Notes        string          `json:"notes"`
}

func (h *ReconciliationHandler) Create(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}

	var req reconciliationRequest
	if !decodeBody(ctx, &req) {
		return
	}

	create := model.ReconciliationCreateRequest{
		CashierID:    req.CashierID,
		ActualAmount: req.ActualAmount,
		Notes:        req.Notes,
	}
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			xhttp.WriteError(ctx, xhttp.StatusBadRequest, "date must be yyyy-mm-dd")
			return
		}
		create.Date = &d
	}

	rec, err := h.recon.Reconcile(ctx, create, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, rec)
}

func (h *ReconciliationHandler) List(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}

	f := model.ReconciliationFilter{
		Limit:  queryInt(ctx, "limit"),
		Offset: queryInt(ctx, "offset"),
		Desc:   queryString(ctx, "order") == "desc",
	}
	if v := queryInt64(ctx, "cashier"); v > 0 {
		f.CashierID = &v
	}
	from, ok := queryDate(ctx, "from")
	if !ok {
		return
	}
	f.From = from
	to, ok := queryDate(ctx, "to")
	if !ok {
		return
	}
	f.To = to

	recs, total, err := h.recon.List(ctx, f, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listEnvelope{Results: recs, Total: total})
}
