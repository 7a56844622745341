package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
)

// PaymentEntity is the storage shape of a payment. The composite unique
// index on (tenant_id, term, academic_year, receipt_number) is the sole
// correctness mechanism for receipt uniqueness under concurrent creates.
type PaymentEntity struct {
	ID            int64           `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	TenantID      int64           `db:"tenant_id"      gorm:"column:tenant_id;not null;index;uniqueIndex:uq_receipt_scope"`
	StudentID     int64           `db:"student_id"     gorm:"column:student_id;not null;index"`
	Amount        decimal.Decimal `db:"amount"         gorm:"column:amount;type:numeric(10,2);not null"`
	PaymentMethod string          `db:"payment_method" gorm:"column:payment_method;not null"`
	FeeType       string          `db:"fee_type"       gorm:"column:fee_type"`
	ReceiptNumber string          `db:"receipt_number" gorm:"column:receipt_number;not null;uniqueIndex:uq_receipt_scope"`
	Term          string          `db:"term"           gorm:"column:term;not null;uniqueIndex:uq_receipt_scope"`
	AcademicYear  int             `db:"academic_year"  gorm:"column:academic_year;not null;uniqueIndex:uq_receipt_scope"`
	Status        string          `db:"status"         gorm:"column:status;not null;default:pending;index"`

	BankName        string `db:"bank_name"        gorm:"column:bank_name"`
	TransferDate    string `db:"transfer_date"    gorm:"column:transfer_date"`
	ReferenceNumber string `db:"reference_number" gorm:"column:reference_number"`

	CashierName string `db:"cashier_name" gorm:"column:cashier_name;not null;index"`

	VoidReason string     `db:"void_reason" gorm:"column:void_reason"`
	VoidedAt   *time.Time `db:"voided_at"   gorm:"column:voided_at"`
	VoidedBy   string     `db:"voided_by"   gorm:"column:voided_by"`

	Date      time.Time `db:"date"       gorm:"column:date;not null;index"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentEntity) TableName() string {
	return "payment"
}

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		ID:              m.ID,
		TenantID:        m.TenantID,
		StudentID:       m.StudentID,
		Amount:          m.Amount,
		PaymentMethod:   m.PaymentMethod,
		FeeType:         m.FeeType,
		ReceiptNumber:   m.ReceiptNumber,
		Term:            m.Term,
		AcademicYear:    m.AcademicYear,
		Status:          string(m.Status),
		BankName:        m.BankName,
		TransferDate:    m.TransferDate,
		ReferenceNumber: m.ReferenceNumber,
		CashierName:     m.CashierName,
		VoidReason:      m.VoidReason,
		VoidedAt:        m.VoidedAt,
		VoidedBy:        m.VoidedBy,
		Date:            m.Date,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:              e.ID,
		TenantID:        e.TenantID,
		StudentID:       e.StudentID,
		Amount:          e.Amount,
		PaymentMethod:   e.PaymentMethod,
		FeeType:         e.FeeType,
		ReceiptNumber:   e.ReceiptNumber,
		Term:            e.Term,
		AcademicYear:    e.AcademicYear,
		Status:          model.PaymentStatus(e.Status),
		BankName:        e.BankName,
		TransferDate:    e.TransferDate,
		ReferenceNumber: e.ReferenceNumber,
		CashierName:     e.CashierName,
		VoidReason:      e.VoidReason,
		VoidedAt:        e.VoidedAt,
		VoidedBy:        e.VoidedBy,
		Date:            e.Date,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
