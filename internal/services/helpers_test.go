package services

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func nowFixed() time.Time { return fixedNow }

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, m
}

var bookingCols = []string{
	"id", "customer_name", "customer_phone",
	"customer_id", "company_id", "vehicle_id", "driver_id",
	"source", "pickup_location", "drop_location", "journey_type",
	"start_date", "end_date",
	"tariff_rate", "total_amount", "advance_received", "balance",
	"status", "billed", "created_at", "updated_at",
	"cu_name", "cu_phone", "co_name", "v_name", "v_reg", "d_name", "d_phone",
}

type bookingFixture struct {
	id       int64
	start    time.Time
	total    float64
	advance  float64
	balance  float64
	status   string
	history  []string
	slips    []string
	driverID any
}

func bookingFixtureRow(rows *sqlmock.Rows, f bookingFixture) *sqlmock.Rows {
	if f.start.IsZero() {
		f.start = fixedNow
	}
	if f.status == "" {
		f.status = "booked"
	}
	return rows.AddRow(
		f.id, "Rina", "0812", nil, nil, nil, f.driverID,
		"walk-in", "Airport", "Hotel", "airport",
		f.start, f.start.Add(3*time.Hour),
		400.0, f.total, f.advance, f.balance,
		f.status, false, fixedNow, fixedNow,
		"", "", "", "", "", "", "",
	)
}

// expectBookingFetch queues the header query and the four child queries of FindByID.
func expectBookingFetch(m sqlmock.Sqlmock, f bookingFixture) {
	m.ExpectQuery(regexp.QuoteMeta("FROM bookings b")).
		WithArgs(f.id).
		WillReturnRows(bookingFixtureRow(sqlmock.NewRows(bookingCols), f))

	history := sqlmock.NewRows([]string{"booking_id", "status", "changed_by", "changed_at"})
	for i, st := range f.history {
		history.AddRow(f.id, st, "System", fixedNow.Add(time.Duration(i)*time.Minute))
	}
	m.ExpectQuery(regexp.QuoteMeta("FROM booking_status_history")).WithArgs(f.id).WillReturnRows(history)
	m.ExpectQuery(regexp.QuoteMeta("FROM booking_expenses")).WithArgs(f.id).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "type", "amount", "description", "receipt", "created_at"}))

	slips := sqlmock.NewRows([]string{"booking_id", "path", "uploaded_by", "uploaded_at", "description"})
	for _, p := range f.slips {
		slips.AddRow(f.id, p, "ops", fixedNow, "")
	}
	m.ExpectQuery(regexp.QuoteMeta("FROM booking_duty_slips")).WithArgs(f.id).WillReturnRows(slips)
	m.ExpectQuery(regexp.QuoteMeta("FROM booking_payments")).WithArgs(f.id).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "amount", "comments", "collected_by", "paid_on"}))
}

type publisherMock struct {
	mock.Mock
}

func (p *publisherMock) Publish(ctx context.Context, routingKey string, payload any) error {
	args := p.Called(ctx, routingKey, payload)
	return args.Error(0)
}

// memStore records saves and removals in memory.
type memStore struct {
	saved   []string
	removed []string
	failOn  int
}

func (s *memStore) Save(_ context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	if s.failOn > 0 && len(s.saved)+1 == s.failOn {
		return "", errors.New("disk full")
	}
	p := "/uploads/" + folder + "/" + fh.Filename
	s.saved = append(s.saved, p)
	return p, nil
}

func (s *memStore) Remove(_ context.Context, p string) error {
	s.removed = append(s.removed, p)
	return nil
}

func headers(names ...string) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, 0, len(names))
	for _, n := range names {
		out = append(out, &multipart.FileHeader{Filename: n})
	}
	return out
}
