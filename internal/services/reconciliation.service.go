package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/internal/repository"
	"github.com/shiningsmiles/tuition-ledger/pkg/prom"
)

// ReconciliationRepository is insert-and-list only: reconciliation records
// are immutable audit artifacts.
type ReconciliationRepository interface {
	Create(ctx context.Context, rec *model.Reconciliation) (*model.Reconciliation, error)
	List(ctx context.Context, f model.ReconciliationFilter) ([]*model.Reconciliation, int64, error)
}

// ExpectedTotalStore computes the server-side expected drawer total.
type ExpectedTotalStore interface {
	SumPostedByCashierDate(ctx context.Context, tenantID int64, cashierName string, date time.Time) (decimal.Decimal, error)
}

// ReconciliationService compares a cashier's actual drawer count against
// the system-expected total for a day and records the variance.
type ReconciliationService struct {
	reconRepo ReconciliationRepository
	payments  ExpectedTotalStore
	users     UserDirectory
	now       func() time.Time
}

func NewReconciliationService(reconRepo ReconciliationRepository, payments ExpectedTotalStore, users UserDirectory) *ReconciliationService {
	return &ReconciliationService{
		reconRepo: reconRepo,
		payments:  payments,
		users:     users,
		now:       time.Now,
	}
}

// Reconcile submits one reconciliation. expected_total is always recomputed
// from posted payments; the caller's value, if any, is ignored by design.
func (s *ReconciliationService) Reconcile(ctx context.Context, req model.ReconciliationCreateRequest, id identity.Identity) (*model.Reconciliation, error) {
	if !id.Role.Can(identity.CapReconcile) {
		return nil, newForbiddenError("role %q cannot submit reconciliations", id.Role)
	}

	cashierID := id.UserID
	cashierName := id.DisplayName
	if req.CashierID != nil && *req.CashierID != id.UserID {
		if !id.IsAdmin() {
			return nil, newForbiddenError("only admin can reconcile another cashier's drawer")
		}
		name, err := s.users.UserDisplayName(ctx, id.TenantID, *req.CashierID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, newValidationError("cashier_id", "unknown cashier")
			}
			return nil, err
		}
		cashierID = *req.CashierID
		cashierName = name
	}

	date := model.DateOnly(s.now())
	if req.Date != nil {
		date = model.DateOnly(*req.Date)
	}

	expected, err := s.payments.SumPostedByCashierDate(ctx, id.TenantID, cashierName, date)
	if err != nil {
		return nil, err
	}

	variance := req.ActualAmount.Sub(expected)

	rec := &model.Reconciliation{
		TenantID:      id.TenantID,
		CashierID:     cashierID,
		CashierName:   cashierName,
		Date:          date,
		ExpectedTotal: expected,
		ActualAmount:  req.ActualAmount,
		Variance:      variance,
		Status:        model.StatusForVariance(variance),
		Notes:         req.Notes,
	}

	created, err := s.reconRepo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}

	prom.IncCounter(prom.SystemReconciliation, prom.MetricReconciliationRecons)
	variancef, _ := variance.Float64()
	prom.ObserveHistogram(prom.SystemReconciliation, prom.MetricVariance, variancef)
	return created, nil
}

func (s *ReconciliationService) List(ctx context.Context, f model.ReconciliationFilter, id identity.Identity) ([]*model.Reconciliation, int64, error) {
	f.TenantID = id.TenantID
	return s.reconRepo.List(ctx, f)
}

func (s *ReconciliationService) withClock(now func() time.Time) *ReconciliationService {
	s.now = now
	return s
}
