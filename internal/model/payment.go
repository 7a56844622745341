package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPosted  PaymentStatus = "posted"
	PaymentStatusVoided  PaymentStatus = "voided"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPosted, PaymentStatusVoided:
		return true
	}
	return false
}

const MethodBankTransfer = "Bank Transfer"

// Payment is a tuition payment owned by one tenant. Once posted, every
// field except the void-tracking set is frozen; voided is terminal.
type Payment struct {
	ID            int64           `json:"id"`
	TenantID      int64           `json:"tenant_id"`
	StudentID     int64           `json:"student"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	FeeType       string          `json:"fee_type,omitempty"`
	ReceiptNumber string          `json:"receipt_number"`
	Term          string          `json:"term"`
	AcademicYear  int             `json:"academic_year"`
	Status        PaymentStatus   `json:"status"`

	// bank-transfer reference details, required as a set when
	// payment_method is "Bank Transfer"
	BankName        string `json:"bank_name,omitempty"`
	TransferDate    string `json:"transfer_date,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`

	CashierName string `json:"cashier_name"`

	VoidReason string     `json:"void_reason,omitempty"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
	VoidedBy   string     `json:"voided_by,omitempty"`

	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateOnly truncates a timestamp to its UTC calendar date. Payment and
// reconciliation dates are always stored and queried in this form so date
// equality is exact across drivers.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TermForMonth maps a calendar month to the academic term used for receipt
// scoping: months 1-4 are term 1, 5-8 term 2, 9-12 term 3. Deliberately
// coarse.
func TermForMonth(month time.Month) string {
	switch {
	case month >= 1 && month <= 4:
		return "1"
	case month >= 5 && month <= 8:
		return "2"
	default:
		return "3"
	}
}

// PaymentCreateRequest is the input for creating a payment.
type PaymentCreateRequest struct {
	StudentID     int64           `json:"student"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	FeeType       string          `json:"fee_type"`
	ReceiptNumber string          `json:"receipt_number"`
	Term          string          `json:"term"`
	AcademicYear  int             `json:"academic_year"`
	Status        PaymentStatus   `json:"status"`

	BankName        string `json:"bank_name"`
	TransferDate    string `json:"transfer_date"`
	ReferenceNumber string `json:"reference_number"`

	// CashierID attributes the payment to another user; admin only. When
	// absent the acting identity's display name is used.
	CashierID *int64 `json:"cashier_id"`
}

// Payment field names as used in patches and whitelists.
const (
	FieldStudent         = "student"
	FieldAmount          = "amount"
	FieldPaymentMethod   = "payment_method"
	FieldFeeType         = "fee_type"
	FieldReceiptNumber   = "receipt_number"
	FieldTerm            = "term"
	FieldAcademicYear    = "academic_year"
	FieldStatus          = "status"
	FieldBankName        = "bank_name"
	FieldTransferDate    = "transfer_date"
	FieldReferenceNumber = "reference_number"
	FieldCashier         = "cashier_id"
	FieldVoidReason      = "void_reason"
)

// PaymentPatch is a partial update; nil means "leave unchanged".
type PaymentPatch struct {
	StudentID     *int64           `json:"student"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod *string          `json:"payment_method"`
	FeeType       *string          `json:"fee_type"`
	ReceiptNumber *string          `json:"receipt_number"`
	Term          *string          `json:"term"`
	AcademicYear  *int             `json:"academic_year"`
	Status        *PaymentStatus   `json:"status"`

	BankName        *string `json:"bank_name"`
	TransferDate    *string `json:"transfer_date"`
	ReferenceNumber *string `json:"reference_number"`

	CashierID *int64 `json:"cashier_id"`

	// consumed only when Status patches to voided
	VoidReason *string `json:"void_reason"`
}

// Fields returns the names of the fields present in the patch.
func (p PaymentPatch) Fields() []string {
	var fs []string
	add := func(name string, present bool) {
		if present {
			fs = append(fs, name)
		}
	}
	add(FieldStudent, p.StudentID != nil)
	add(FieldAmount, p.Amount != nil)
	add(FieldPaymentMethod, p.PaymentMethod != nil)
	add(FieldFeeType, p.FeeType != nil)
	add(FieldReceiptNumber, p.ReceiptNumber != nil)
	add(FieldTerm, p.Term != nil)
	add(FieldAcademicYear, p.AcademicYear != nil)
	add(FieldStatus, p.Status != nil)
	add(FieldBankName, p.BankName != nil)
	add(FieldTransferDate, p.TransferDate != nil)
	add(FieldReferenceNumber, p.ReferenceNumber != nil)
	add(FieldCashier, p.CashierID != nil)
	return fs
}

// AllowedFieldsFor is the per-state mutation whitelist. The terminal-state
// lock is this table, not scattered conditionals: pending payments accept
// any field, posted payments accept only a status change (the posted→voided
// transition, which runs through Void), voided payments accept nothing.
func AllowedFieldsFor(status PaymentStatus) map[string]bool {
	switch status {
	case PaymentStatusPending:
		return map[string]bool{
			FieldStudent:         true,
			FieldAmount:          true,
			FieldPaymentMethod:   true,
			FieldFeeType:         true,
			FieldReceiptNumber:   true,
			FieldTerm:            true,
			FieldAcademicYear:    true,
			FieldStatus:          true,
			FieldBankName:        true,
			FieldTransferDate:    true,
			FieldReferenceNumber: true,
			FieldCashier:         true,
		}
	case PaymentStatusPosted:
		return map[string]bool{
			FieldStatus: true,
		}
	default: // voided and anything unknown
		return map[string]bool{}
	}
}

// PaymentFilter controls List queries. TenantID is always set by the
// service from the acting identity, never by the caller.
type PaymentFilter struct {
	TenantID     int64
	StudentID    *int64
	Status       *PaymentStatus
	CashierName  *string
	Term         *string
	AcademicYear *int
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
	Desc         bool
}
