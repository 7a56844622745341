package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
)

// ReconciliationEntity is insert-only; there is no update or delete path.
type ReconciliationEntity struct {
	ID            int64           `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	TenantID      int64           `db:"tenant_id"      gorm:"column:tenant_id;not null;index"`
	CashierID     int64           `db:"cashier_id"     gorm:"column:cashier_id;not null;index"`
	CashierName   string          `db:"cashier_name"   gorm:"column:cashier_name;not null"`
	Date          time.Time       `db:"date"           gorm:"column:date;not null;index"`
	ExpectedTotal decimal.Decimal `db:"expected_total" gorm:"column:expected_total;type:numeric(10,2);not null"`
	ActualAmount  decimal.Decimal `db:"actual_amount"  gorm:"column:actual_amount;type:numeric(10,2);not null"`
	Variance      decimal.Decimal `db:"variance"       gorm:"column:variance;type:numeric(10,2);not null"`
	Status        string          `db:"status"         gorm:"column:status;not null"`
	Notes         string          `db:"notes"          gorm:"column:notes"`
	CreatedAt     time.Time       `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (ReconciliationEntity) TableName() string {
	return "reconciliation"
}

func toReconciliationEntity(m *model.Reconciliation) *ReconciliationEntity {
	if m == nil {
		return nil
	}
	return &ReconciliationEntity{
		ID:            m.ID,
		TenantID:      m.TenantID,
		CashierID:     m.CashierID,
		CashierName:   m.CashierName,
		Date:          m.Date,
		ExpectedTotal: m.ExpectedTotal,
		ActualAmount:  m.ActualAmount,
		Variance:      m.Variance,
		Status:        string(m.Status),
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
}

func toReconciliationModel(e *ReconciliationEntity) *model.Reconciliation {
	if e == nil {
		return nil
	}
	return &model.Reconciliation{
		ID:            e.ID,
		TenantID:      e.TenantID,
		CashierID:     e.CashierID,
		CashierName:   e.CashierName,
		Date:          e.Date,
		ExpectedTotal: e.ExpectedTotal,
		ActualAmount:  e.ActualAmount,
		Variance:      e.Variance,
		Status:        model.ReconciliationStatus(e.Status),
		Notes:         e.Notes,
		CreatedAt:     e.CreatedAt,
	}
}

func toReconciliationModels(entities []*ReconciliationEntity) []*model.Reconciliation {
	if entities == nil {
		return nil
	}
	models := make([]*model.Reconciliation, len(entities))
	for i, e := range entities {
		models[i] = toReconciliationModel(e)
	}
	return models
}
