package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/pkg/pg"
)

var (
	// ErrNotFound is returned when a payment does not exist in the tenant's
	// scope.
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicateReceipt is the translated storage-level uniqueness
	// violation on (tenant, term, academic_year, receipt_number).
	ErrDuplicateReceipt = errors.New("duplicate receipt number")
	// ErrAlreadyVoided is returned when the guarded void update matched no
	// row because the payment is already voided.
	ErrAlreadyVoided = errors.New("payment already voided")
)

const pqUniqueViolation = "23505"

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

// isDuplicate recognizes a unique-constraint violation from either the gorm
// error translator or the raw pq driver.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return true
	}
	return false
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	entity := toPaymentEntity(p)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateReceipt
		}
		return nil, err
	}

	return toPaymentModel(entity), nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, tenantID, id int64) (*model.Payment, error) {
	var entity PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPaymentModel(&entity), nil
}

// GetByIDForUpdate locks the payment row for the remainder of the enclosing
// transaction so that state checks and the following mutation act on the
// same committed version.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tenantID, id int64) (*model.Payment, error) {
	q := r.Write(ctx).WithContext(ctx)
	// sqlite has no row locks; its single writer gives the same guarantee
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entity PaymentEntity
	err := q.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPaymentModel(&entity), nil
}

// UpdateFields applies a column map to one payment. Receipt-number changes
// can still collide, so uniqueness violations are translated here too.
func (r *PaymentRepository) UpdateFields(ctx context.Context, tenantID, id int64, fields map[string]interface{}) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(fields)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicateReceipt
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkVoided performs the terminal transition as one guarded update: the
// WHERE clause excludes already-voided rows, so a lost race surfaces as
// ErrAlreadyVoided instead of a double void.
func (r *PaymentRepository) MarkVoided(ctx context.Context, tenantID, id int64, reason, voidedBy string, at time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("tenant_id = ? AND id = ? AND status <> ?", tenantID, id, string(model.PaymentStatusVoided)).
		Updates(map[string]interface{}{
			"status":      string(model.PaymentStatusVoided),
			"void_reason": reason,
			"voided_at":   at,
			"voided_by":   voidedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.Write(ctx).WithContext(ctx).
			Model(&PaymentEntity{}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrAlreadyVoided
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, tenantID, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&PaymentEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&PaymentEntity{}).
		Where("tenant_id = ?", f.TenantID)

	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.CashierName != nil && *f.CashierName != "" {
		q = q.Where("cashier_name = ?", *f.CashierName)
	}
	if f.Term != nil && *f.Term != "" {
		q = q.Where("term = ?", *f.Term)
	}
	if f.AcademicYear != nil {
		q = q.Where("academic_year = ?", *f.AcademicYear)
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

	var entities []*PaymentEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toPaymentModels(entities), total, nil
}

func (r *PaymentRepository) ListByStudent(ctx context.Context, tenantID, studentID int64) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID, studentID).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toPaymentModels(entities), nil
}

// LatestReceipt returns the most recently created receipt number matching
// the prefix, or "" when none exists.
func (r *PaymentRepository) LatestReceipt(ctx context.Context, tenantID int64, prefix string) (string, error) {
	var entity PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("receipt_number").
		Where("tenant_id = ? AND receipt_number LIKE ?", tenantID, prefix+"%").
		Order("id DESC").
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return entity.ReceiptNumber, nil
}

func (r *PaymentRepository) CountForYear(ctx context.Context, tenantID int64, year int) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("tenant_id = ? AND academic_year = ?", tenantID, year).
		Count(&count).
		Error
	return count, err
}

type sumRow struct {
	Total decimal.Decimal
}

// SumPostedByCashierDate computes the expected drawer total for one cashier
// on one date: posted payments only, voided never counted.
func (r *PaymentRepository) SumPostedByCashierDate(ctx context.Context, tenantID int64, cashierName string, date time.Time) (decimal.Decimal, error) {
	var row sumRow
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("tenant_id = ? AND cashier_name = ? AND date = ? AND status = ?",
			tenantID, cashierName, date, string(model.PaymentStatusPosted)).
		Scan(&row).
		Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

type breakdownRow struct {
	PaymentMethod string
	Total         decimal.Decimal
	Count         int64
}

func toBreakdown(rows []breakdownRow) ([]model.MethodBreakdown, decimal.Decimal, int64) {
	out := make([]model.MethodBreakdown, 0, len(rows))
	total := decimal.Zero
	var count int64
	for _, row := range rows {
		out = append(out, model.MethodBreakdown{
			PaymentMethod: row.PaymentMethod,
			Total:         row.Total,
			Count:         row.Count,
		})
		total = total.Add(row.Total)
		count += row.Count
	}
	return out, total, count
}

// DailyBreakdown aggregates one cashier's day by payment method over
// pending and posted payments (voided excluded).
func (r *PaymentRepository) DailyBreakdown(ctx context.Context, tenantID int64, cashierName string, date time.Time) ([]model.MethodBreakdown, decimal.Decimal, int64, error) {
	var rows []breakdownRow
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Select("payment_method, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("tenant_id = ? AND cashier_name = ? AND date = ? AND status IN ?",
			tenantID, cashierName, date,
			[]string{string(model.PaymentStatusPending), string(model.PaymentStatusPosted)}).
		Group("payment_method").
		Order("payment_method ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, decimal.Zero, 0, err
	}
	byMethod, total, count := toBreakdown(rows)
	return byMethod, total, count, nil
}

// TermBreakdown aggregates a term by payment method over posted payments
// only.
func (r *PaymentRepository) TermBreakdown(ctx context.Context, tenantID int64, term string, year int) ([]model.MethodBreakdown, decimal.Decimal, int64, error) {
	var rows []breakdownRow
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Select("payment_method, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("tenant_id = ? AND term = ? AND academic_year = ? AND status = ?",
			tenantID, term, year, string(model.PaymentStatusPosted)).
		Group("payment_method").
		Order("payment_method ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, decimal.Zero, 0, err
	}
	byMethod, total, count := toBreakdown(rows)
	return byMethod, total, count, nil
}
