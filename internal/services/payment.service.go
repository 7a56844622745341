package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/internal/queue"
	"github.com/shiningsmiles/tuition-ledger/internal/repository"
	"github.com/shiningsmiles/tuition-ledger/pkg/logger"
	"github.com/shiningsmiles/tuition-ledger/pkg/prom"
)

// PaymentRepository is the persistence surface the ledger mutates. All
// mutations happen inside WithinTransaction so the storage layer's
// constraints, not application pre-checks, decide races.
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	GetByID(ctx context.Context, tenantID, id int64) (*model.Payment, error)
	GetByIDForUpdate(ctx context.Context, tenantID, id int64) (*model.Payment, error)
	UpdateFields(ctx context.Context, tenantID, id int64, fields map[string]interface{}) error
	MarkVoided(ctx context.Context, tenantID, id int64, reason, voidedBy string, at time.Time) error
	Delete(ctx context.Context, tenantID, id int64) error
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StudentDirectory is the read-only view of the enrollment service.
type StudentDirectory interface {
	StudentExists(ctx context.Context, tenantID, studentID int64) (bool, error)
}

// UserDirectory resolves user ids to display names for explicit cashier
// attribution.
type UserDirectory interface {
	UserDisplayName(ctx context.Context, tenantID, userID int64) (string, error)
}

// EventPublisher pushes lifecycle events for the notification layer;
// nil-safe so the ledger works without redis (tests, offline tooling).
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payment *model.Payment) (string, error)
}

// PaymentService is the payment ledger: it owns the lifecycle state
// machine, role gating and the receipt uniqueness contract.
type PaymentService struct {
	paymentRepo PaymentRepository
	students    StudentDirectory
	users       UserDirectory
	sequencer   *ReceiptSequencer
	events      EventPublisher
	now         func() time.Time
}

func NewPaymentService(paymentRepo PaymentRepository, students StudentDirectory, users UserDirectory, sequencer *ReceiptSequencer, events EventPublisher) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		students:    students,
		users:       users,
		sequencer:   sequencer,
		events:      events,
		now:         time.Now,
	}
}

func (s *PaymentService) Create(ctx context.Context, req model.PaymentCreateRequest, id identity.Identity) (*model.Payment, error) {
	if !id.Role.Can(identity.CapCreatePayment) {
		return nil, newForbiddenError("role %q cannot create payments", id.Role)
	}

	fields := map[string]string{}
	if req.StudentID == 0 {
		fields[model.FieldStudent] = "required"
	}
	if req.Amount.IsNegative() {
		fields[model.FieldAmount] = "must not be negative"
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		fields[model.FieldPaymentMethod] = "required"
	}
	if req.PaymentMethod == model.MethodBankTransfer {
		for field, v := range map[string]string{
			model.FieldReferenceNumber: req.ReferenceNumber,
			model.FieldTransferDate:    req.TransferDate,
			model.FieldBankName:        req.BankName,
		} {
			if strings.TrimSpace(v) == "" {
				fields[field] = "required for bank transfers"
			}
		}
	}

	status := req.Status
	if status == "" {
		status = model.PaymentStatusPending
	}
	switch status {
	case model.PaymentStatusPending:
	case model.PaymentStatusPosted:
		if !id.Role.Can(identity.CapPostPayment) {
			return nil, newForbiddenError("role %q cannot post payments", id.Role)
		}
	default:
		fields[model.FieldStatus] = "must be pending or posted"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	exists, err := s.students.StudentExists(ctx, id.TenantID, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, newValidationError(model.FieldStudent, "unknown student")
	}

	now := s.now()
	term := req.Term
	year := req.AcademicYear
	if term == "" {
		term = model.TermForMonth(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}

	cashierName := id.DisplayName
	if req.CashierID != nil {
		if !id.Role.Can(identity.CapReassignCashier) {
			return nil, newForbiddenError("only admin can attribute payments to another cashier")
		}
		name, err := s.users.UserDisplayName(ctx, id.TenantID, *req.CashierID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, newValidationError(model.FieldCashier, "unknown cashier")
			}
			return nil, err
		}
		cashierName = name
	}

	receipt := strings.TrimSpace(req.ReceiptNumber)
	if receipt == "" {
		receipt, err = s.sequencer.Next(ctx, id.TenantID, year)
		if err != nil {
			return nil, err
		}
	}

	p := &model.Payment{
		TenantID:        id.TenantID,
		StudentID:       req.StudentID,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		FeeType:         req.FeeType,
		ReceiptNumber:   receipt,
		Term:            term,
		AcademicYear:    year,
		Status:          status,
		BankName:        req.BankName,
		TransferDate:    req.TransferDate,
		ReferenceNumber: req.ReferenceNumber,
		CashierName:     cashierName,
		Date:            model.DateOnly(now),
	}

	var created *model.Payment
	err = s.paymentRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err = s.paymentRepo.Create(ctx, p)
		if err != nil {
			return err
		}
		if created.Status == model.PaymentStatusPosted {
			s.publish(ctx, queue.EventPaymentPosted, created)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReceipt) {
			prom.IncCounter(prom.SystemPayments, prom.MetricReceiptConflicts)
			return nil, newConflictError("duplicate receipt number")
		}
		return nil, err
	}

	prom.IncCounter(prom.SystemPayments, prom.MetricPaymentsCreated)
	if created.Status == model.PaymentStatusPosted {
		prom.IncCounter(prom.SystemPayments, prom.MetricPaymentsPosted)
	}
	return created, nil
}

// Update applies a partial edit under the per-state whitelist. Posted and
// voided payments reject every change except the posted→voided transition,
// which is routed through Void.
func (s *PaymentService) Update(ctx context.Context, paymentID int64, patch model.PaymentPatch, id identity.Identity) (*model.Payment, error) {
	if !id.Role.Can(identity.CapEditOwnPending) && !(patch.Status != nil && *patch.Status == model.PaymentStatusVoided) {
		return nil, newForbiddenError("role %q cannot edit payments", id.Role)
	}

	if patch.Status != nil && *patch.Status == model.PaymentStatusVoided {
		if len(patch.Fields()) != 1 {
			return nil, newValidationError(model.FieldStatus, "voiding cannot be combined with other changes")
		}
		reason := ""
		if patch.VoidReason != nil {
			reason = *patch.VoidReason
		}
		return s.Void(ctx, paymentID, reason, id)
	}

	var updated *model.Payment
	err := s.paymentRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.paymentRepo.GetByIDForUpdate(ctx, id.TenantID, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		switch p.Status {
		case model.PaymentStatusVoided:
			return newConflictError("voided payments cannot be edited")
		case model.PaymentStatusPosted:
			return newConflictError("posted payments cannot be edited")
		}

		if !id.Role.Can(identity.CapEditAnyPending) && p.CashierName != id.DisplayName {
			return newForbiddenError("cannot edit another cashier's payment")
		}

		allowed := model.AllowedFieldsFor(p.Status)
		for _, f := range patch.Fields() {
			if !allowed[f] {
				return newConflictError("field %q cannot change while %s", f, p.Status)
			}
		}

		fields, err := s.buildUpdateFields(ctx, p, patch, id)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			updated = p
			return nil
		}

		if err := s.paymentRepo.UpdateFields(ctx, id.TenantID, paymentID, fields); err != nil {
			return err
		}

		updated, err = s.paymentRepo.GetByID(ctx, id.TenantID, paymentID)
		if err != nil {
			return err
		}
		if p.Status != model.PaymentStatusPosted && updated.Status == model.PaymentStatusPosted {
			s.publish(ctx, queue.EventPaymentPosted, updated)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReceipt) {
			prom.IncCounter(prom.SystemPayments, prom.MetricReceiptConflicts)
			return nil, newConflictError("duplicate receipt number")
		}
		return nil, err
	}

	if updated != nil && updated.Status == model.PaymentStatusPosted {
		prom.IncCounter(prom.SystemPayments, prom.MetricPaymentsPosted)
	}
	return updated, nil
}

// buildUpdateFields turns a validated patch into a column map. Called with
// the row already locked.
func (s *PaymentService) buildUpdateFields(ctx context.Context, p *model.Payment, patch model.PaymentPatch, id identity.Identity) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	if patch.StudentID != nil {
		exists, err := s.students.StudentExists(ctx, id.TenantID, *patch.StudentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, newValidationError(model.FieldStudent, "unknown student")
		}
		fields["student_id"] = *patch.StudentID
	}
	if patch.Amount != nil {
		if patch.Amount.IsNegative() {
			return nil, newValidationError(model.FieldAmount, "must not be negative")
		}
		fields["amount"] = *patch.Amount
	}
	if patch.PaymentMethod != nil {
		fields["payment_method"] = *patch.PaymentMethod
	}
	if patch.FeeType != nil {
		fields["fee_type"] = *patch.FeeType
	}
	if patch.ReceiptNumber != nil {
		if strings.TrimSpace(*patch.ReceiptNumber) == "" {
			return nil, newValidationError(model.FieldReceiptNumber, "must not be blank")
		}
		fields["receipt_number"] = *patch.ReceiptNumber
	}
	if patch.Term != nil {
		fields["term"] = *patch.Term
	}
	if patch.AcademicYear != nil {
		fields["academic_year"] = *patch.AcademicYear
	}
	if patch.BankName != nil {
		fields["bank_name"] = *patch.BankName
	}
	if patch.TransferDate != nil {
		fields["transfer_date"] = *patch.TransferDate
	}
	if patch.ReferenceNumber != nil {
		fields["reference_number"] = *patch.ReferenceNumber
	}

	if patch.CashierID != nil {
		if !id.Role.Can(identity.CapReassignCashier) {
			return nil, newForbiddenError("only admin can reassign a payment's cashier")
		}
		name, err := s.users.UserDisplayName(ctx, id.TenantID, *patch.CashierID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, newValidationError(model.FieldCashier, "unknown cashier")
			}
			return nil, err
		}
		fields["cashier_name"] = name
	}

	if patch.Status != nil {
		switch *patch.Status {
		case model.PaymentStatusPending:
			// no-op transition from pending
		case model.PaymentStatusPosted:
			if !id.Role.Can(identity.CapPostPayment) {
				return nil, newForbiddenError("role %q cannot post payments", id.Role)
			}
			fields["status"] = string(model.PaymentStatusPosted)
		default:
			return nil, newValidationError(model.FieldStatus, "invalid status")
		}
	}

	// bank-transfer reference details must hold as a set after the patch
	method := p.PaymentMethod
	if patch.PaymentMethod != nil {
		method = *patch.PaymentMethod
	}
	if method == model.MethodBankTransfer {
		effective := func(patched *string, current string) string {
			if patched != nil {
				return *patched
			}
			return current
		}
		missing := map[string]string{}
		for field, v := range map[string]string{
			model.FieldReferenceNumber: effective(patch.ReferenceNumber, p.ReferenceNumber),
			model.FieldTransferDate:    effective(patch.TransferDate, p.TransferDate),
			model.FieldBankName:        effective(patch.BankName, p.BankName),
		} {
			if strings.TrimSpace(v) == "" {
				missing[field] = "required for bank transfers"
			}
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Fields: missing}
		}
	}

	return fields, nil
}

// Delete removes a pending payment. Posted and voided payments are never
// deleted; voiding is the correction path once money has been recognized.
func (s *PaymentService) Delete(ctx context.Context, paymentID int64, id identity.Identity) error {
	if !id.Role.Can(identity.CapEditOwnPending) {
		return newForbiddenError("role %q cannot delete payments", id.Role)
	}

	return s.paymentRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.paymentRepo.GetByIDForUpdate(ctx, id.TenantID, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		if p.Status != model.PaymentStatusPending {
			return newConflictError("%s payments cannot be deleted", p.Status)
		}
		if !id.Role.Can(identity.CapEditAnyPending) && p.CashierName != id.DisplayName {
			return newForbiddenError("cannot delete another cashier's payment")
		}

		return s.paymentRepo.Delete(ctx, id.TenantID, paymentID)
	})
}

// Void is the admin-gated terminal transition: it freezes the payment with
// a mandatory reason and audit attribution, preserving every other field.
func (s *PaymentService) Void(ctx context.Context, paymentID int64, reason string, id identity.Identity) (*model.Payment, error) {
	if !id.Role.Can(identity.CapVoidPayment) {
		return nil, newForbiddenError("only admin can void payments")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, newValidationError(model.FieldVoidReason, "required")
	}

	var voided *model.Payment
	err := s.paymentRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.paymentRepo.GetByIDForUpdate(ctx, id.TenantID, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.Status == model.PaymentStatusVoided {
			return newConflictError("payment is already voided")
		}

		if err := s.paymentRepo.MarkVoided(ctx, id.TenantID, paymentID, reason, id.DisplayName, s.now()); err != nil {
			if errors.Is(err, repository.ErrAlreadyVoided) {
				return newConflictError("payment is already voided")
			}
			return err
		}

		voided, err = s.paymentRepo.GetByID(ctx, id.TenantID, paymentID)
		if err != nil {
			return err
		}
		s.publish(ctx, queue.EventPaymentVoided, voided)
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncCounter(prom.SystemPayments, prom.MetricPaymentsVoided)
	return voided, nil
}

func (s *PaymentService) Get(ctx context.Context, paymentID int64, id identity.Identity) (*model.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id.TenantID, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) List(ctx context.Context, f model.PaymentFilter, id identity.Identity) ([]*model.Payment, int64, error) {
	f.TenantID = id.TenantID
	return s.paymentRepo.List(ctx, f)
}

func (s *PaymentService) publish(ctx context.Context, eventType string, p *model.Payment) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Publish(ctx, eventType, p); err != nil {
		// events are a side channel; never fail the transaction over them
		logger.Warn("failed to publish payment event", "type", eventType, "payment_id", p.ID, "error", err)
	}
}

func (s *PaymentService) withClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}
