package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/events"
)

func validBookingInput() models.BookingInput {
	start := time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)
	return models.BookingInput{
		CustomerName:    "Rina",
		CustomerPhone:   "0812",
		Source:          "walk-in",
		PickupLocation:  "Airport",
		DropLocation:    "Hotel",
		JourneyType:     models.JourneyAirport,
		StartDate:       start,
		EndDate:         start.Add(3 * time.Hour),
		TariffRate:      400,
		TotalAmount:     1000,
		AdvanceReceived: 200,
	}
}

func TestBookingService_CreateSeedsHistoryAndBalance(t *testing.T) {
	db, m := newMockDB(t)
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, events.BookingCreated, mock.Anything).Return(nil).Once()

	m.ExpectBegin()
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(
			"Rina", "0812", nil, nil, nil, nil,
			"walk-in", "Airport", "Hotel", "airport", sqlmock.AnyArg(), sqlmock.AnyArg(),
			400.0, 1000.0, 200.0, 800.0,
			"booked", false, fixedNow, fixedNow,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_status_history")).
		WithArgs(int64(1), "booked", "System", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	m.ExpectCommit()
	expectBookingFetch(m, bookingFixture{id: 1, total: 1000, advance: 200, balance: 800, history: []string{"booked"}})

	svc := BookingService{DB: db, Events: pub, Now: nowFixed}
	b, err := svc.Create(context.Background(), validBookingInput())
	require.NoError(t, err)

	assert.Equal(t, b.TotalAmount-b.AdvanceReceived, b.Balance)
	assert.Equal(t, models.StatusBooked, b.Status)
	require.Len(t, b.StatusHistory, 1)
	assert.Equal(t, domain.SystemActor, b.StatusHistory[0].ChangedBy)
	assert.Empty(t, b.Expenses)
	assert.Empty(t, b.DutySlips)
	assert.Empty(t, b.Payments)
	assert.False(t, b.Billed)
	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertExpectations(t)
}

func TestBookingService_CreateRejectsBadInput(t *testing.T) {
	db, m := newMockDB(t)
	svc := BookingService{DB: db, Now: nowFixed}

	cases := map[string]func(*models.BookingInput){
		"missing name":     func(in *models.BookingInput) { in.CustomerName = " " },
		"negative advance": func(in *models.BookingInput) { in.AdvanceReceived = -1 },
		"bad journey":      func(in *models.BookingInput) { in.JourneyType = "teleport" },
		"no start date":    func(in *models.BookingInput) { in.StartDate = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validBookingInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_CreateRollsBackWhenHistoryFails(t *testing.T) {
	db, m := newMockDB(t)

	m.ExpectBegin()
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(1, 1))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_status_history")).WillReturnError(errors.New("disk full"))
	m.ExpectRollback()

	_, err := BookingService{DB: db, Now: nowFixed}.Create(context.Background(), validBookingInput())
	assert.True(t, domain.IsInternal(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UpdateRecomputesBalanceServerSide(t *testing.T) {
	db, m := newMockDB(t)
	advance := 300.0

	m.ExpectBegin()
	m.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET advance_received=?, balance=total_amount - advance_received, updated_at=? WHERE id=?")).
		WithArgs(300.0, fixedNow, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()
	expectBookingFetch(m, bookingFixture{id: 4, total: 1000, advance: 300, balance: 700, history: []string{"booked"}})

	b, err := BookingService{DB: db, Now: nowFixed}.Update(context.Background(), 4, models.BookingPatch{AdvanceReceived: &advance})
	require.NoError(t, err)
	assert.Equal(t, b.TotalAmount-b.AdvanceReceived, b.Balance)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UpdateWithStatusAppendsHistory(t *testing.T) {
	db, m := newMockDB(t)
	status := models.StatusOngoing
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, events.BookingStatusChanged, mock.Anything).Return(nil).Once()

	m.ExpectBegin()
	m.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status=?, updated_at=? WHERE id=?")).
		WithArgs("ongoing", fixedNow, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_status_history")).
		WithArgs(int64(4), "ongoing", "dispatch", fixedNow).
		WillReturnResult(sqlmock.NewResult(2, 1))
	m.ExpectCommit()
	expectBookingFetch(m, bookingFixture{id: 4, status: "ongoing", history: []string{"booked", "ongoing"}})

	svc := BookingService{DB: db, Events: pub, Now: nowFixed}
	_, err := svc.Update(context.Background(), 4, models.BookingPatch{Status: &status, StatusChangedBy: "dispatch"})
	require.NoError(t, err)
	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertExpectations(t)
}

func TestBookingService_UpdateMissingBooking(t *testing.T) {
	db, m := newMockDB(t)
	total := 10.0

	m.ExpectBegin()
	m.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	m.ExpectRollback()

	_, err := BookingService{DB: db, Now: nowFixed}.Update(context.Background(), 404, models.BookingPatch{TotalAmount: &total})
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_StatusHistoryGrowsInCallOrder(t *testing.T) {
	db, m := newMockDB(t)
	sequence := []models.BookingStatus{models.StatusOngoing, models.StatusCanceled, models.StatusBooked}

	history := []string{"booked"}
	for _, st := range sequence {
		history = append(history, string(st))
		m.ExpectBegin()
		m.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status=?")).
			WithArgs(string(st), fixedNow, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_status_history")).
			WithArgs(int64(2), string(st), "System", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectCommit()
		expectBookingFetch(m, bookingFixture{id: 2, status: string(st), history: append([]string{}, history...)})
	}

	svc := BookingService{DB: db, Now: nowFixed}
	var last models.Booking
	for _, st := range sequence {
		var err error
		last, err = svc.UpdateStatus(context.Background(), 2, st, "")
		require.NoError(t, err)
	}

	require.Len(t, last.StatusHistory, 1+len(sequence))
	for i, st := range sequence {
		assert.Equal(t, st, last.StatusHistory[i+1].Status)
	}
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UpdateStatusRejectsUnknownStatus(t *testing.T) {
	db, m := newMockDB(t)
	_, err := BookingService{DB: db}.UpdateStatus(context.Background(), 2, "paused", "ops")
	assert.True(t, domain.IsValidation(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_RemoveDutySlipWithoutMatchIsNoop(t *testing.T) {
	db, m := newMockDB(t)

	m.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_duty_slips WHERE booking_id=? AND path=?")).
		WithArgs(int64(6), "/uploads/none.jpg").
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectBookingFetch(m, bookingFixture{id: 6, history: []string{"booked"}, slips: []string{"/uploads/a.jpg"}})

	b, err := BookingService{DB: db}.RemoveDutySlip(context.Background(), 6, "/uploads/none.jpg")
	require.NoError(t, err)
	require.Len(t, b.DutySlips, 1)
	assert.Equal(t, "/uploads/a.jpg", b.DutySlips[0].Path)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_ListSecondPage(t *testing.T) {
	db, m := newMockDB(t)

	m.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings b WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(25))
	rows := sqlmock.NewRows(bookingCols)
	base := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	for rank := 11; rank <= 20; rank++ {
		bookingFixtureRow(rows, bookingFixture{id: int64(rank), start: base.AddDate(0, 0, -rank)})
	}
	m.ExpectQuery(regexp.QuoteMeta("ORDER BY b.start_date DESC, b.id DESC LIMIT ? OFFSET ?")).
		WithArgs(10, 10).
		WillReturnRows(rows)
	for _, table := range []string{"booking_status_history", "booking_expenses", "booking_duty_slips", "booking_payments"} {
		m.ExpectQuery(regexp.QuoteMeta("FROM " + table)).WillReturnRows(sqlmock.NewRows([]string{"booking_id"}))
	}

	page, err := BookingService{DB: db}.List(context.Background(), models.BookingFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Data, 10)
	assert.Equal(t, int64(11), page.Data[0].ID)
	assert.Equal(t, int64(20), page.Data[9].ID)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_AddExpenseMissingBooking(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_expenses")).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := BookingService{DB: db, Now: nowFixed}.AddExpense(context.Background(), 8, models.Expense{
		Type: models.ExpenseFuel, Amount: 50, Description: "diesel",
	})
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_AddPaymentLeavesBalanceAlone(t *testing.T) {
	db, m := newMockDB(t)

	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_payments")).
		WithArgs(150.0, "cash", "driver", fixedNow, int64(3)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectBookingFetch(m, bookingFixture{id: 3, total: 1000, advance: 200, balance: 800, history: []string{"booked"}})

	b, err := BookingService{DB: db, Now: nowFixed}.AddPayment(context.Background(), 3, models.BookingPayment{
		Amount: 150, Comments: "cash", CollectedBy: "driver",
	})
	require.NoError(t, err)
	assert.Equal(t, 800.0, b.Balance)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_DeleteMissing(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id=?")).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := BookingService{DB: db}.Delete(context.Background(), 9)
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UpdateRejectsNonPositiveReferences(t *testing.T) {
	db, m := newMockDB(t)
	svc := BookingService{DB: db, Now: nowFixed}

	for _, id := range []int64{0, -3} {
		ref := id
		_, err := svc.Update(context.Background(), 1, models.BookingPatch{DriverID: &ref})
		assert.Equal(t, domain.Invalid("driverId", "id tidak valid"), err)

		_, err = svc.Update(context.Background(), 1, models.BookingPatch{CompanyID: &ref})
		assert.True(t, domain.IsValidation(err))
	}
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UploadDutySlipsAppendsAllInOneWrite(t *testing.T) {
	db, m := newMockDB(t)
	store := &memStore{}
	desc := "Duty slip uploaded on 2024-05-01T09:30:00Z"

	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings WHERE id=?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_duty_slips (booking_id, path, uploaded_by, uploaded_at, description) VALUES (?,?,?,?,?),(?,?,?,?,?)")).
		WithArgs(
			int64(3), "/uploads/duty-slips/3/a.jpg", "Sari", fixedNow, desc,
			int64(3), "/uploads/duty-slips/3/b.pdf", "Sari", fixedNow, desc,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	expectBookingFetch(m, bookingFixture{id: 3, slips: []string{"/uploads/duty-slips/3/a.jpg", "/uploads/duty-slips/3/b.pdf"}})

	b, err := BookingService{DB: db, Files: store, Now: nowFixed}.UploadDutySlips(context.Background(), 3, headers("a.jpg", "b.pdf"), "Sari")
	require.NoError(t, err)
	assert.Len(t, b.DutySlips, 2)
	assert.Len(t, store.saved, 2)
	assert.Empty(t, store.removed)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UploadDutySlipsDefaultsUploaderToSystem(t *testing.T) {
	db, m := newMockDB(t)
	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_duty_slips")).
		WithArgs(int64(3), "/uploads/duty-slips/3/a.jpg", domain.SystemActor, fixedNow, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectBookingFetch(m, bookingFixture{id: 3})

	_, err := BookingService{DB: db, Files: &memStore{}, Now: nowFixed}.UploadDutySlips(context.Background(), 3, headers("a.jpg"), "")
	require.NoError(t, err)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UploadDutySlipsRejectsEmptyAndMissing(t *testing.T) {
	db, m := newMockDB(t)
	store := &memStore{}
	svc := BookingService{DB: db, Files: store, Now: nowFixed}

	_, err := svc.UploadDutySlips(context.Background(), 3, nil, "Sari")
	assert.True(t, domain.IsValidation(err))

	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = svc.UploadDutySlips(context.Background(), 3, headers("a.jpg"), "Sari")
	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, store.saved)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UploadDutySlipsDiscardsFilesWhenInsertFails(t *testing.T) {
	db, m := newMockDB(t)
	store := &memStore{}
	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_duty_slips")).
		WillReturnError(errors.New("foreign key constraint fails"))

	_, err := BookingService{DB: db, Files: store, Now: nowFixed}.UploadDutySlips(context.Background(), 3, headers("a.jpg", "b.pdf"), "Sari")
	assert.True(t, domain.IsInternal(err))
	assert.Equal(t, store.saved, store.removed)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestBookingService_UploadDutySlipsDiscardsEarlierFilesWhenSaveFails(t *testing.T) {
	db, m := newMockDB(t)
	store := &memStore{failOn: 2}
	m.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	_, err := BookingService{DB: db, Files: store, Now: nowFixed}.UploadDutySlips(context.Background(), 3, headers("a.jpg", "b.pdf"), "Sari")
	assert.True(t, domain.IsInternal(err))
	assert.Equal(t, []string{"/uploads/duty-slips/3/a.jpg"}, store.removed)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestPublish_FailureIsSwallowed(t *testing.T) {
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, events.PaymentPosted,
		events.Envelope{Type: events.PaymentPosted, RequestID: "req-9", Data: 42}).
		Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		publish(context.Background(), pub, "req-9", events.PaymentPosted, 42)
		publish(context.Background(), nil, "req-9", events.PaymentPosted, 42)
	})
	pub.AssertExpectations(t)
}

func TestBookingService_UpdateStatusSucceedsWhenPublishFails(t *testing.T) {
	db, m := newMockDB(t)
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, events.BookingStatusChanged, mock.Anything).
		Return(errors.New("broker down")).Once()

	m.ExpectBegin()
	m.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status=?, updated_at=? WHERE id=?")).
		WithArgs("completed", fixedNow, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_status_history")).
		WithArgs(int64(4), "completed", "Sari", fixedNow).
		WillReturnResult(sqlmock.NewResult(3, 1))
	m.ExpectCommit()
	expectBookingFetch(m, bookingFixture{id: 4, status: "completed", history: []string{"booked", "completed"}})

	b, err := BookingService{DB: db, Events: pub, Now: nowFixed}.UpdateStatus(context.Background(), 4, models.StatusCompleted, "Sari")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, b.Status)
	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertExpectations(t)
}
