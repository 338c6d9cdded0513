package repositories

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/internal/domain/models"
)

var bookingCols = []string{
	"id", "customer_name", "customer_phone",
	"customer_id", "company_id", "vehicle_id", "driver_id",
	"source", "pickup_location", "drop_location", "journey_type",
	"start_date", "end_date",
	"tariff_rate", "total_amount", "advance_received", "balance",
	"status", "billed", "created_at", "updated_at",
	"cu_name", "cu_phone", "co_name", "v_name", "v_reg", "d_name", "d_phone",
}

func bookingRow(rows *sqlmock.Rows, id int64, driverID any, start time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "Rina", "0812", nil, int64(3), nil, driverID,
		"walk-in", "Airport", "Hotel", "airport",
		start, start.Add(4*time.Hour),
		500.0, 1000.0, 200.0, 800.0,
		"booked", false, start, start,
		"", "", "Acme", "", "", "Budi", "0813",
	)
}

func TestBuildBookingUpdate_BalanceFollowsOperands(t *testing.T) {
	total := 1500.0
	status := models.StatusOngoing
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sets, args := buildBookingUpdate(models.BookingPatch{TotalAmount: &total, Status: &status}, now)

	joined := strings.Join(sets, ", ")
	assert.Equal(t, "total_amount=?, balance=total_amount - advance_received, status=?, updated_at=?", joined)
	assert.Equal(t, []any{1500.0, "ongoing", now}, args)
}

func TestBuildBookingUpdate_NoBalanceWhenOperandsUntouched(t *testing.T) {
	name := "  Sari "
	sets, args := buildBookingUpdate(models.BookingPatch{CustomerName: &name}, time.Unix(0, 0).UTC())

	assert.NotContains(t, strings.Join(sets, ","), "balance")
	assert.Equal(t, "Sari", args[0])
}

func TestBookingRepository_FindByIDLoadsChildrenInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings b")).
		WithArgs(int64(7)).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), 7, int64(9), start))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_status_history WHERE booking_id IN (?)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "status", "changed_by", "changed_at"}).
			AddRow(int64(7), "booked", "System", start).
			AddRow(int64(7), "ongoing", "dispatch", start.Add(time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_expenses")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "type", "amount", "description", "receipt", "created_at"}).
			AddRow(int64(7), "toll", 25.0, "toll gate", "", start))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_duty_slips")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "path", "uploaded_by", "uploaded_at", "description"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_payments")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "amount", "comments", "collected_by", "paid_on"}))

	b, err := BookingRepository{DB: db}.FindByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 800.0, b.Balance)
	require.NotNil(t, b.Driver)
	assert.Equal(t, "Budi", b.Driver.Name)
	require.NotNil(t, b.Company)
	assert.Nil(t, b.Customer)
	require.Len(t, b.StatusHistory, 2)
	assert.Equal(t, models.StatusBooked, b.StatusHistory[0].Status)
	assert.Equal(t, models.StatusOngoing, b.StatusHistory[1].Status)
	assert.Len(t, b.Expenses, 1)
	assert.NotNil(t, b.DutySlips)
	assert.Empty(t, b.DutySlips)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_AppendExpenseMissingBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_expenses")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := BookingRepository{DB: db}.AppendExpense(context.Background(), 99, models.Expense{
		Type: models.ExpenseToll, Amount: 10, Description: "toll",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListAppliesFiltersAndPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	driverID := int64(9)
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	f := models.BookingFilter{Status: models.StatusBooked, DriverID: &driverID}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings b WHERE 1=1 AND b.status = ? AND b.driver_id = ?")).
		WithArgs("booked", driverID).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.start_date DESC, b.id DESC LIMIT ? OFFSET ?")).
		WithArgs("booked", driverID, 5, 10).
		WillReturnRows(bookingRow(bookingRow(sqlmock.NewRows(bookingCols), 11, driverID, start.Add(time.Hour)), 10, driverID, start))
	for _, table := range []string{"booking_status_history", "booking_expenses", "booking_duty_slips", "booking_payments"} {
		mock.ExpectQuery(regexp.QuoteMeta("FROM "+table+" WHERE booking_id IN (?,?)")).
			WithArgs(int64(11), int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}))
	}

	list, total, err := BookingRepository{DB: db}.List(context.Background(), f, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, list, 2)
	assert.Equal(t, int64(11), list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_AppendDutySlipsSingleInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_duty_slips (booking_id, path, uploaded_by, uploaded_at, description) VALUES (?,?,?,?,?),(?,?,?,?,?)")).
		WithArgs(int64(4), "/uploads/a.jpg", "ops", at, "d", int64(4), "/uploads/b.jpg", "ops", at, "d").
		WillReturnResult(sqlmock.NewResult(2, 2))

	err = BookingRepository{DB: db}.AppendDutySlips(context.Background(), 4, []models.DutySlip{
		{Path: "/uploads/a.jpg", UploadedBy: "ops", UploadedAt: at, Description: "d"},
		{Path: "/uploads/b.jpg", UploadedBy: "ops", UploadedAt: at, Description: "d"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
