package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/internal/domain"
)

func TestDriverService_AddAdvanceAppendsUnsettled(t *testing.T) {
	db, m := newMockDB(t)

	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM drivers WHERE id=?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO driver_advances")).
		WithArgs(int64(9), 2000.0, fixedNow, false, "").
		WillReturnResult(sqlmock.NewResult(41, 1))
	m.ExpectQuery(regexp.QuoteMeta("SELECT id, name, phone FROM drivers")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone"}).AddRow(int64(9), "Budi", "0813"))
	m.ExpectQuery(regexp.QuoteMeta("FROM driver_advances WHERE driver_id=?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "driver_id", "amount", "date", "settled", "description"}).
			AddRow(int64(40), int64(9), 500.0, fixedNow.Add(-time.Hour), true, "old").
			AddRow(int64(41), int64(9), 2000.0, fixedNow, false, ""))

	d, err := DriverService{DB: db, Now: nowFixed}.AddAdvance(context.Background(), 9, 2000, "  ")
	require.NoError(t, err)
	require.Len(t, d.Advances, 2)
	assert.False(t, d.Advances[1].Settled)
	assert.Equal(t, "", d.Advances[1].Description)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDriverService_AddAdvanceMissingDriver(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM drivers")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := DriverService{DB: db}.AddAdvance(context.Background(), 9, 100, "")
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDriverService_SettleAdvanceNoMatchIsSilent(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectExec(regexp.QuoteMeta("UPDATE driver_advances SET settled=1 WHERE id=? AND driver_id=?")).
		WithArgs(int64(99), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := DriverService{DB: db}.SettleAdvance(context.Background(), 9, 99)
	assert.NoError(t, err)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCompanyService_RecordPaymentUsesDelta(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectExec(regexp.QuoteMeta("UPDATE companies SET outstanding_amount = outstanding_amount - ? WHERE id=?")).
		WithArgs(500.0, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery(regexp.QuoteMeta("SELECT id, name, outstanding_amount FROM companies")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "outstanding_amount"}).AddRow(int64(3), "Acme", 1500.0))

	c, err := CompanyService{DB: db}.RecordPayment(context.Background(), 3, 500, "cheque 221")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, c.OutstandingAmount)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCompanyService_RecordPaymentMissingCompany(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectExec(regexp.QuoteMeta("UPDATE companies")).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := CompanyService{DB: db}.RecordPayment(context.Background(), 3, 500, "")
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestReportService_FinanceSummaryNetsExpensesAndPayouts(t *testing.T) {
	db, m := newMockDB(t)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	end := to.AddDate(0, 0, 1)

	m.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WithArgs(from, end, "canceled").
		WillReturnRows(sqlmock.NewRows([]string{"n", "rev", "adv", "bal"}).AddRow(4, 10000.0, 2500.0, 7500.0))
	m.ExpectQuery(regexp.QuoteMeta("FROM booking_expenses e")).
		WithArgs(from, end).
		WillReturnRows(sqlmock.NewRows([]string{"type", "n", "amount"}).
			AddRow("fuel", 2, 1200.5).
			AddRow("toll", 3, 300.25))
	m.ExpectQuery(regexp.QuoteMeta("FROM booking_payments")).
		WithArgs(from, end).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(800.0))
	m.ExpectQuery(regexp.QuoteMeta("FROM payments")).
		WithArgs("driver", "paid", from, end).
		WillReturnRows(sqlmock.NewRows([]string{"total", "settled"}).AddRow(2000.0, 1500.0))
	m.ExpectQuery(regexp.QuoteMeta("FROM payments")).
		WithArgs("customer", "received", from, end).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(3000.0))

	sum, err := ReportService{DB: db}.FinanceSummary(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01", sum.From)
	assert.Equal(t, "2024-05-31", sum.To)
	assert.Equal(t, 4, sum.BookingCount)
	assert.Equal(t, 1500.75, sum.ExpenseTotal)
	assert.Equal(t, 6499.25, sum.NetIncome)
	assert.Equal(t, 1500.0, sum.DriverPaymentsSettled)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestReportService_RejectsInvertedRange(t *testing.T) {
	db, m := newMockDB(t)
	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	_, err := ReportService{DB: db}.BookingStatusSummary(context.Background(), from, from.AddDate(0, 0, -1))
	assert.True(t, domain.IsValidation(err))
	assert.NoError(t, m.ExpectationsWereMet())
}
