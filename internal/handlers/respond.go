package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	"github.com/shiningsmiles/tuition-ledger/internal/services"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
	"github.com/shiningsmiles/tuition-ledger/pkg/logger"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a 500 and gets logged; the response body
// never leaks internals.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		xhttp.WriteJSON(ctx, xhttp.StatusBadRequest, map[string]interface{}{
			"detail": "validation failed",
			"fields": ve.Fields,
		})
	case errors.Is(err, identity.ErrAuthenticationRequired):
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, "authentication required")
	case errors.Is(err, services.ErrForbidden):
		xhttp.WriteError(ctx, xhttp.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "not found")
	case errors.Is(err, services.ErrConflict):
		xhttp.WriteError(ctx, xhttp.StatusConflict, err.Error())
	default:
		logger.Error("unhandled service error", "error", err, "path", string(ctx.Path()))
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(ctx *xhttp.RequestCtx, v interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// pathID parses the {id} route segment.
func pathID(ctx *xhttp.RequestCtx) (int64, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(ctx *xhttp.RequestCtx, name string) int {
	v, _ := strconv.Atoi(string(ctx.QueryArgs().Peek(name)))
	return v
}

func queryInt64(ctx *xhttp.RequestCtx, name string) int64 {
	v, _ := strconv.ParseInt(string(ctx.QueryArgs().Peek(name)), 10, 64)
	return v
}

func queryString(ctx *xhttp.RequestCtx, name string) string {
	return string(ctx.QueryArgs().Peek(name))
}

// queryDate parses a yyyy-mm-dd query argument. ok is false only when the
// value is present but malformed.
func queryDate(ctx *xhttp.RequestCtx, name string) (*time.Time, bool) {
	raw := queryString(ctx, name)
	if raw == "" {
		return nil, true
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, name+" must be yyyy-mm-dd")
		return nil, false
	}
	return &d, true
}

type listEnvelope struct {
	Results interface{} `json:"results"`
	Total   int64       `json:"total"`
}
