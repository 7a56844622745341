package repository

import (
	"context"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/pkg/pg"
)

type ReconciliationRepository struct {
	*pg.DB
}

func NewReconciliationRepository(db *pg.DB) *ReconciliationRepository {
	return &ReconciliationRepository{
		db,
	}
}

func (r *ReconciliationRepository) Create(ctx context.Context, rec *model.Reconciliation) (*model.Reconciliation, error) {
	entity := toReconciliationEntity(rec)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toReconciliationModel(entity), nil
}

func (r *ReconciliationRepository) List(ctx context.Context, f model.ReconciliationFilter) ([]*model.Reconciliation, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&ReconciliationEntity{}).
		Where("tenant_id = ?", f.TenantID)

	if f.CashierID != nil {
		q = q.Where("cashier_id = ?", *f.CashierID)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*ReconciliationEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toReconciliationModels(entities), total, nil
}
