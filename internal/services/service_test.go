package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/internal/repository"
	"github.com/shiningsmiles/tuition-ledger/pkg/pg"
)

const testTenant int64 = 1

// testClock freezes time mid-March so term autofill resolves to "1" and the
// academic year to 2026.
var testClock = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

var (
	adminID = identity.Identity{
		UserID: 1, TenantID: testTenant, Role: identity.RoleAdmin, DisplayName: "Admin User",
	}
	cashierID = identity.Identity{
		UserID: 2, TenantID: testTenant, Role: identity.RoleCashier, DisplayName: "John Doe",
	}
	otherCashierID = identity.Identity{
		UserID: 3, TenantID: testTenant, Role: identity.RoleCashier, DisplayName: "Jane Smith",
	}
	accountantID = identity.Identity{
		UserID: 4, TenantID: testTenant, Role: identity.RoleAccountant, DisplayName: "Alice Books",
	}
	auditorID = identity.Identity{
		UserID: 5, TenantID: testTenant, Role: identity.RoleAuditor, DisplayName: "Bob Audit",
	}
)

type capturedEvent struct {
	Type    string
	Payment *model.Payment
}

type capturePublisher struct {
	events []capturedEvent
}

func (c *capturePublisher) Publish(_ context.Context, eventType string, p *model.Payment) (string, error) {
	c.events = append(c.events, capturedEvent{Type: eventType, Payment: p})
	return "1-0", nil
}

type fixture struct {
	payments *repository.PaymentRepository
	recons   *repository.ReconciliationRepository
	dir      *repository.DirectoryRepository
	events   *capturePublisher

	ledger  *PaymentService
	recon   *ReconciliationService
	reports *ReportService
}

// setupFixture wires the services against an in-memory sqlite database,
// seeded with one student and the five test users.
func setupFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// a single connection keeps every session on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&repository.PaymentEntity{},
		&repository.ReconciliationEntity{},
		&repository.StudentEntity{},
		&repository.AppUserEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()
	for _, name := range []string{"read", "write"} {
		field := pgDBValue.FieldByName(name)
		field = reflect.NewAt(field.Type(), field.Addr().UnsafePointer()).Elem()
		field.Set(reflect.ValueOf(db))
	}

	require.NoError(t, db.Create(&repository.StudentEntity{
		ID: 10, TenantID: testTenant, StudentNumber: "SS-2026-010", FirstName: "Amina", LastName: "Nansubuga",
	}).Error)
	require.NoError(t, db.Create(&repository.StudentEntity{
		ID: 11, TenantID: testTenant, StudentNumber: "SS-2026-011", FirstName: "Peter", LastName: "Okello",
	}).Error)

	for _, u := range []identity.Identity{adminID, cashierID, otherCashierID, accountantID, auditorID} {
		require.NoError(t, db.Create(&repository.AppUserEntity{
			ID: u.UserID, TenantID: testTenant, Username: u.DisplayName, DisplayName: u.DisplayName, Role: string(u.Role),
		}).Error)
	}

	payments := repository.NewPaymentRepository(pgDB)
	recons := repository.NewReconciliationRepository(pgDB)
	dir := repository.NewDirectoryRepository(pgDB)
	events := &capturePublisher{}
	sequencer := NewReceiptSequencer(payments, "REC")

	clock := func() time.Time { return testClock }

	return &fixture{
		payments: payments,
		recons:   recons,
		dir:      dir,
		events:   events,
		ledger:   NewPaymentService(payments, dir, dir, sequencer, events).withClock(clock),
		recon:    NewReconciliationService(recons, payments, dir).withClock(clock),
		reports:  NewReportService(payments, dir, dir).withClock(clock),
	}
}

func cashRequest(amount string) model.PaymentCreateRequest {
	return model.PaymentCreateRequest{
		StudentID:     10,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: "Cash",
		FeeType:       "Tuition",
	}
}

// createPayment seeds a payment through the service and fails the test on
// any error.
func (f *fixture) createPayment(t *testing.T, req model.PaymentCreateRequest, id identity.Identity) *model.Payment {
	t.Helper()
	p, err := f.ledger.Create(context.Background(), req, id)
	require.NoError(t, err)
	return p
}
