package handlers

import (
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
	"github.com/shiningsmiles/tuition-ledger/pkg/pg"
	"github.com/shiningsmiles/tuition-ledger/pkg/redis"
)

type HealthHandler struct {
	db    *pg.DB
	redis redis.RedisAdapter
}

func NewHealthHandler(db *pg.DB, redisAdapter redis.RedisAdapter) *HealthHandler {
	return &HealthHandler{db: db, redis: redisAdapter}
}

// Check reports per-dependency liveness. A degraded dependency turns the
// overall status to "degraded" but still answers 200; load balancers key on
// connection failures, not this body.
func (h *HealthHandler) Check(ctx *xhttp.RequestCtx) {
	status := "ok"
	deps := map[string]string{}

	if h.db != nil {
		deps["database"] = "ok"
		if err := h.db.Read(ctx).Exec("SELECT 1").Error; err != nil {
			deps["database"] = "unreachable"
			status = "degraded"
		}
	}

	if h.redis != nil {
		deps["redis"] = "ok"
		if err := h.redis.Client().Ping(ctx).Err(); err != nil {
			deps["redis"] = "unreachable"
			status = "degraded"
		}
	}

	xhttp.WriteJSON(ctx, xhttp.StatusOK, map[string]interface{}{
		"status":       status,
		"dependencies": deps,
	})
}
