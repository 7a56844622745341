package handlers

import (
	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/internal/services"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
)

type PaymentHandler struct {
	ledger *services.PaymentService
}

func NewPaymentHandler(ledger *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

func (h *PaymentHandler) Create(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}

	var req model.PaymentCreateRequest
	if !decodeBody(ctx, &req) {
		return
	}

	p, err := h.ledger.Create(ctx, req, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, p)
}

func (h *PaymentHandler) Get(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}
	paymentID, ok := pathID(ctx)
	if !ok {
		return
	}

	p, err := h.ledger.Get(ctx, paymentID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, p)
}

func (h *PaymentHandler) List(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}

	f := model.PaymentFilter{
		Limit:  queryInt(ctx, "limit"),
		Offset: queryInt(ctx, "offset"),
		Desc:   queryString(ctx, "order") == "desc",
	}
	if v := queryInt64(ctx, "student"); v > 0 {
		f.StudentID = &v
	}
	if v := queryString(ctx, "status"); v != "" {
		status := model.PaymentStatus(v)
		f.Status = &status
	}
	if v := queryString(ctx, "cashier_name"); v != "" {
		f.CashierName = &v
	}
	if v := queryString(ctx, "term"); v != "" {
		f.Term = &v
	}
	if v := queryInt(ctx, "year"); v > 0 {
		f.AcademicYear = &v
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

	payments, total, err := h.ledger.List(ctx, f, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listEnvelope{Results: payments, Total: total})
}

func (h *PaymentHandler) Update(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}
	paymentID, ok := pathID(ctx)
	if !ok {
		return
	}

	var patch model.PaymentPatch
	if !decodeBody(ctx, &patch) {
		return
	}

	p, err := h.ledger.Update(ctx, paymentID, patch, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, p)
}

func (h *PaymentHandler) Delete(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}
	paymentID, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := h.ledger.Delete(ctx, paymentID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func (h *PaymentHandler) Void(ctx *xhttp.RequestCtx) {
	id, ok := identityFrom(ctx)
	if !ok {
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
		return
	}
	paymentID, ok := pathID(ctx)
	if !ok {
		return
	}

	var req voidRequest
	if !decodeBody(ctx, &req) {
		return
	}

	p, err := h.ledger.Void(ctx, paymentID, req.Reason, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, p)
}
