package handlers

import (
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
	"github.com/shiningsmiles/tuition-ledger/pkg/prom"
)

// RegisterRoutes mounts the API surface. Everything under /api/v1 expects a
// bearer token; /health and /metrics are open.
func RegisterRoutes(r *xhttp.Router, payments *PaymentHandler, recons *ReconciliationHandler, reports *ReportHandler, health *HealthHandler) {
	r.GET("/health", health.Check)
	r.GET("/metrics", prom.Handler())

	api := r.Group("/api/v1")

	api.POST("/payments", payments.Create)
	api.GET("/payments", payments.List)
	api.GET("/payments/{id}", payments.Get)
	api.PATCH("/payments/{id}", payments.Update)
	api.DELETE("/payments/{id}", payments.Delete)
	api.POST("/payments/{id}/void", payments.Void)

	api.POST("/reconciliations", recons.Create)
	api.GET("/reconciliations", recons.List)

	api.GET("/reports/cashier-daily", reports.CashierDaily)
	api.GET("/reports/term-summary", reports.TermSummary)
	api.GET("/reports/student-balance/{id}", reports.StudentBalance)
}
