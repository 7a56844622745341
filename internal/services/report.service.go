package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/internal/repository"
)

// ReportStore is the aggregation slice of the payment repository.
type ReportStore interface {
	DailyBreakdown(ctx context.Context, tenantID int64, cashierName string, date time.Time) ([]model.MethodBreakdown, decimal.Decimal, int64, error)
	TermBreakdown(ctx context.Context, tenantID int64, term string, year int) ([]model.MethodBreakdown, decimal.Decimal, int64, error)
	ListByStudent(ctx context.Context, tenantID, studentID int64) ([]*model.Payment, error)
}

// StudentLookup resolves a student record for the balance report header.
type StudentLookup interface {
	GetStudent(ctx context.Context, tenantID, studentID int64) (*repository.StudentEntity, error)
}

// ReportService produces the three read-side reports. All of them are
// computed on demand from the ledger; nothing is precomputed or cached.
type ReportService struct {
	payments ReportStore
	students StudentLookup
	users    UserDirectory
	now      func() time.Time
}

func NewReportService(payments ReportStore, students StudentLookup, users UserDirectory) *ReportService {
	return &ReportService{
		payments: payments,
		students: students,
		users:    users,
		now:      time.Now,
	}
}

// CashierDaily reports one cashier's drawer for one date. Pending and
// posted both count: the drawer physically holds cash for receipts that
// have not been posted yet. Voided never counts.
func (s *ReportService) CashierDaily(ctx context.Context, cashierID int64, date *time.Time, id identity.Identity) (*model.CashierDailyReport, error) {
	if !id.Role.Can(identity.CapRead) {
		return nil, newForbiddenError("role %q cannot read reports", id.Role)
	}

	if cashierID == 0 {
		cashierID = id.UserID
	}

	cashierName := id.DisplayName
	if cashierID != id.UserID {
		name, err := s.users.UserDisplayName(ctx, id.TenantID, cashierID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		cashierName = name
	}

	day := model.DateOnly(s.now())
	if date != nil {
		day = model.DateOnly(*date)
	}

	byMethod, total, count, err := s.payments.DailyBreakdown(ctx, id.TenantID, cashierName, day)
	if err != nil {
		return nil, err
	}

	return &model.CashierDailyReport{
		Date:        day,
		CashierID:   cashierID,
		CashierName: cashierName,
		Total:       total,
		Count:       count,
		ByMethod:    byMethod,
	}, nil
}

// TermSummary reports posted revenue for one term of one academic year.
func (s *ReportService) TermSummary(ctx context.Context, term string, year int, id identity.Identity) (*model.TermSummaryReport, error) {
	if !id.Role.Can(identity.CapRead) {
		return nil, newForbiddenError("role %q cannot read reports", id.Role)
	}

	ve := &ValidationError{Fields: map[string]string{}}
	switch term {
	case "1", "2", "3":
	case "":
		ve.Fields[model.FieldTerm] = "this field is required"
	default:
		ve.Fields[model.FieldTerm] = "term must be 1, 2 or 3"
	}
	if year == 0 {
		ve.Fields[model.FieldAcademicYear] = "this field is required"
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	byMethod, total, count, err := s.payments.TermBreakdown(ctx, id.TenantID, term, year)
	if err != nil {
		return nil, err
	}

	return &model.TermSummaryReport{
		Term:         term,
		AcademicYear: year,
		Total:        total,
		Count:        count,
		ByMethod:     byMethod,
	}, nil
}

// StudentBalance lists a student's payment history with a paid total.
// Voided payments appear in the list but never in the total. TotalFees
// stays zero until fee schedules are modeled, so Balance is negative paid.
func (s *ReportService) StudentBalance(ctx context.Context, studentID int64, id identity.Identity) (*model.StudentBalanceReport, error) {
	if !id.Role.Can(identity.CapRead) {
		return nil, newForbiddenError("role %q cannot read reports", id.Role)
	}

	student, err := s.students.GetStudent(ctx, id.TenantID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	payments, err := s.payments.ListByStudent(ctx, id.TenantID, studentID)
	if err != nil {
		return nil, err
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		if p.Status == model.PaymentStatusVoided {
			continue
		}
		totalPaid = totalPaid.Add(p.Amount)
	}

	totalFees := decimal.Zero
	return &model.StudentBalanceReport{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		FirstName:     student.FirstName,
		LastName:      student.LastName,
		Payments:      payments,
		TotalPaid:     totalPaid,
		TotalFees:     totalFees,
		Balance:       totalFees.Sub(totalPaid),
	}, nil
}

func (s *ReportService) withClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}
