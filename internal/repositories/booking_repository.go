package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain/models"
)

const bookingSelect = `
	SELECT
		b.id, b.customer_name, b.customer_phone,
		b.customer_id, b.company_id, b.vehicle_id, b.driver_id,
		b.source, b.pickup_location, b.drop_location, b.journey_type,
		b.start_date, b.end_date,
		b.tariff_rate, b.total_amount, b.advance_received, b.balance,
		b.status, b.billed, b.created_at, b.updated_at,
		COALESCE(cu.name,''), COALESCE(cu.phone,''),
		COALESCE(co.name,''),
		COALESCE(v.name,''), COALESCE(v.registration_number,''),
		COALESCE(d.name,''), COALESCE(d.phone,'')
	FROM bookings b
	LEFT JOIN customers cu ON cu.id = b.customer_id
	LEFT JOIN companies co ON co.id = b.company_id
	LEFT JOIN vehicles v ON v.id = b.vehicle_id
	LEFT JOIN drivers d ON d.id = b.driver_id`

type BookingRepository struct {
	DB intdb.DBTX
}

func (r BookingRepository) db() (intdb.DBTX, error) {
	return pick(r.DB)
}

// Insert stores the booking header. Sub-collections are appended separately.
func (r BookingRepository) Insert(ctx context.Context, b models.Booking) (int64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO bookings (
			customer_name, customer_phone, customer_id, company_id, vehicle_id, driver_id,
			source, pickup_location, drop_location, journey_type, start_date, end_date,
			tariff_rate, total_amount, advance_received, balance,
			status, billed, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.CustomerName, b.CustomerPhone,
		intdb.NullInt64(b.CustomerID), intdb.NullInt64(b.CompanyID), intdb.NullInt64(b.VehicleID), intdb.NullInt64(b.DriverID),
		b.Source, b.PickupLocation, b.DropLocation, string(b.JourneyType), b.StartDate, b.EndDate,
		b.TariffRate, b.TotalAmount, b.AdvanceReceived, b.Balance,
		string(b.Status), b.Billed, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return res.LastInsertId()
}

// AppendStatus adds one entry to the status history. Entries are never
// updated or removed.
func (r BookingRepository) AppendStatus(ctx context.Context, bookingID int64, ch models.StatusChange) error {
	q, err := r.db()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO booking_status_history (booking_id, status, changed_by, changed_at) VALUES (?,?,?,?)`,
		bookingID, string(ch.Status), ch.ChangedBy, ch.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func (r BookingRepository) Exists(ctx context.Context, id int64) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	var got int64
	err = q.QueryRowContext(ctx, `SELECT id FROM bookings WHERE id=? LIMIT 1`, id).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DriverID returns the assigned driver (nil when unassigned) or sql.ErrNoRows.
func (r BookingRepository) DriverID(ctx context.Context, id int64) (*int64, error) {
	q, err := r.db()
	if err != nil {
		return nil, err
	}
	var driverID sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT driver_id FROM bookings WHERE id=? LIMIT 1`, id).Scan(&driverID); err != nil {
		return nil, err
	}
	return intdb.Int64Ptr(driverID), nil
}

// FindByID returns the joined booking with all sub-collections, or sql.ErrNoRows.
func (r BookingRepository) FindByID(ctx context.Context, id int64) (models.Booking, error) {
	q, err := r.db()
	if err != nil {
		return models.Booking{}, err
	}
	b, err := scanBooking(q.QueryRowContext(ctx, bookingSelect+` WHERE b.id=? LIMIT 1`, id))
	if err != nil {
		return models.Booking{}, err
	}
	list := []*models.Booking{&b}
	if err := loadChildren(ctx, q, list); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

// List returns one page ordered by start date descending plus the total match count.
func (r BookingRepository) List(ctx context.Context, f models.BookingFilter, limit, offset int) ([]models.Booking, int, error) {
	q, err := r.db()
	if err != nil {
		return nil, 0, err
	}

	where, args := bookingWhere(f)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings b WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := q.QueryContext(ctx, bookingSelect+` WHERE `+where+` ORDER BY b.start_date DESC, b.id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ptrs := make([]*models.Booking, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := loadChildren(ctx, q, ptrs); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func bookingWhere(f models.BookingFilter) (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.Source); s != "" {
		where = append(where, "b.source = ?")
		args = append(args, s)
	}
	if f.StartFrom != nil {
		where = append(where, "b.start_date >= ?")
		args = append(args, *f.StartFrom)
	}
	if f.EndUntil != nil {
		where = append(where, "b.end_date <= ?")
		args = append(args, *f.EndUntil)
	}
	if f.DriverID != nil {
		where = append(where, "b.driver_id = ?")
		args = append(args, *f.DriverID)
	}
	return strings.Join(where, " AND "), args
}

// Update applies the patch in a single statement. When either balance operand
// is patched the balance is recomputed by MySQL from the stored values, which
// are evaluated left to right after the operand assignments.
// Returns false when the booking does not exist.
func (r BookingRepository) Update(ctx context.Context, id int64, p models.BookingPatch, now time.Time) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	sets, args := buildBookingUpdate(p, now)
	args = append(args, id)
	res, err := q.ExecContext(ctx, `UPDATE bookings SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return false, fmt.Errorf("update booking: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}

func buildBookingUpdate(p models.BookingPatch, now time.Time) ([]string, []any) {
	sets := []string{}
	args := []any{}
	set := func(col string, val any) {
		sets = append(sets, col+"=?")
		args = append(args, val)
	}

	if p.CustomerName != nil {
		set("customer_name", strings.TrimSpace(*p.CustomerName))
	}
	if p.CustomerPhone != nil {
		set("customer_phone", strings.TrimSpace(*p.CustomerPhone))
	}
	if p.CustomerID != nil {
		set("customer_id", *p.CustomerID)
	}
	if p.CompanyID != nil {
		set("company_id", *p.CompanyID)
	}
	if p.VehicleID != nil {
		set("vehicle_id", *p.VehicleID)
	}
	if p.DriverID != nil {
		set("driver_id", *p.DriverID)
	}
	if p.Source != nil {
		set("source", strings.TrimSpace(*p.Source))
	}
	if p.PickupLocation != nil {
		set("pickup_location", strings.TrimSpace(*p.PickupLocation))
	}
	if p.DropLocation != nil {
		set("drop_location", strings.TrimSpace(*p.DropLocation))
	}
	if p.JourneyType != nil {
		set("journey_type", string(*p.JourneyType))
	}
	if p.StartDate != nil {
		set("start_date", *p.StartDate)
	}
	if p.EndDate != nil {
		set("end_date", *p.EndDate)
	}
	if p.TariffRate != nil {
		set("tariff_rate", *p.TariffRate)
	}
	if p.TotalAmount != nil {
		set("total_amount", *p.TotalAmount)
	}
	if p.AdvanceReceived != nil {
		set("advance_received", *p.AdvanceReceived)
	}
	if p.TouchesBalance() {
		sets = append(sets, "balance=total_amount - advance_received")
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.Billed != nil {
		set("billed", *p.Billed)
	}
	set("updated_at", now)
	return sets, args
}

// SetStatus overwrites the current status. Callers append the history entry
// in the same transaction.
func (r BookingRepository) SetStatus(ctx context.Context, id int64, status models.BookingStatus, now time.Time) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `UPDATE bookings SET status=?, updated_at=? WHERE id=?`, string(status), now, id)
	if err != nil {
		return false, fmt.Errorf("set booking status: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}

func (r BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE id=?`, id)
	if err != nil {
		return false, fmt.Errorf("delete booking: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}

// AppendExpense inserts only when the booking exists; false means not found.
func (r BookingRepository) AppendExpense(ctx context.Context, bookingID int64, e models.Expense) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO booking_expenses (booking_id, type, amount, description, receipt, created_at)
		SELECT id, ?, ?, ?, ?, ? FROM bookings WHERE id=?`,
		string(e.Type), e.Amount, e.Description, intdb.NullIfEmpty(e.Receipt), e.CreatedAt, bookingID,
	)
	if err != nil {
		return false, fmt.Errorf("append expense: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}

// AppendPayment inserts only when the booking exists; false means not found.
func (r BookingRepository) AppendPayment(ctx context.Context, bookingID int64, p models.BookingPayment) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO booking_payments (booking_id, amount, comments, collected_by, paid_on)
		SELECT id, ?, ?, ?, ? FROM bookings WHERE id=?`,
		p.Amount, p.Comments, p.CollectedBy, p.PaidOn, bookingID,
	)
	if err != nil {
		return false, fmt.Errorf("append booking payment: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}

// AppendDutySlips writes all slips in one multi-row insert.
func (r BookingRepository) AppendDutySlips(ctx context.Context, bookingID int64, slips []models.DutySlip) error {
	if len(slips) == 0 {
		return nil
	}
	q, err := r.db()
	if err != nil {
		return err
	}
	values := make([]string, 0, len(slips))
	args := make([]any, 0, len(slips)*5)
	for _, s := range slips {
		values = append(values, "(?,?,?,?,?)")
		args = append(args, bookingID, s.Path, s.UploadedBy, s.UploadedAt, s.Description)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO booking_duty_slips (booking_id, path, uploaded_by, uploaded_at, description) VALUES `+strings.Join(values, ","),
		args...,
	)
	if err != nil {
		return fmt.Errorf("append duty slips: %w", err)
	}
	return nil
}

// RemoveDutySlip deletes every slip with exactly this path.
func (r BookingRepository) RemoveDutySlip(ctx context.Context, bookingID int64, path string) (int64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM booking_duty_slips WHERE booking_id=? AND path=?`, bookingID, path)
	if err != nil {
		return 0, fmt.Errorf("remove duty slip: %w", err)
	}
	return intdb.RowsAffected(res), nil
}

func (r BookingRepository) ListPayments(ctx context.Context, bookingID int64) ([]models.BookingPayment, error) {
	q, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT amount, comments, collected_by, paid_on
		FROM booking_payments WHERE booking_id=? ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list booking payments: %w", err)
	}
	defer rows.Close()

	out := []models.BookingPayment{}
	for rows.Next() {
		var p models.BookingPayment
		if err := rows.Scan(&p.Amount, &p.Comments, &p.CollectedBy, &p.PaidOn); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (models.Booking, error) {
	var (
		b                                    models.Booking
		customerID, companyID                sql.NullInt64
		vehicleID, driverID                  sql.NullInt64
		journey, status                      string
		customerName, customerPhone          string
		companyName, vehicleName, vehicleReg string
		driverName, driverPhone              string
	)
	if err := s.Scan(
		&b.ID, &b.CustomerName, &b.CustomerPhone,
		&customerID, &companyID, &vehicleID, &driverID,
		&b.Source, &b.PickupLocation, &b.DropLocation, &journey,
		&b.StartDate, &b.EndDate,
		&b.TariffRate, &b.TotalAmount, &b.AdvanceReceived, &b.Balance,
		&status, &b.Billed, &b.CreatedAt, &b.UpdatedAt,
		&customerName, &customerPhone,
		&companyName,
		&vehicleName, &vehicleReg,
		&driverName, &driverPhone,
	); err != nil {
		return models.Booking{}, err
	}

	b.JourneyType = models.JourneyType(journey)
	b.Status = models.BookingStatus(status)
	b.CustomerID = intdb.Int64Ptr(customerID)
	b.CompanyID = intdb.Int64Ptr(companyID)
	b.VehicleID = intdb.Int64Ptr(vehicleID)
	b.DriverID = intdb.Int64Ptr(driverID)

	if customerID.Valid {
		b.Customer = &models.CustomerRef{ID: customerID.Int64, Name: customerName, Phone: customerPhone}
	}
	if companyID.Valid {
		b.Company = &models.CompanyRef{ID: companyID.Int64, Name: companyName}
	}
	if vehicleID.Valid {
		b.Vehicle = &models.VehicleRef{ID: vehicleID.Int64, Name: vehicleName, RegistrationNumber: vehicleReg}
	}
	if driverID.Valid {
		b.Driver = &models.DriverRef{ID: driverID.Int64, Name: driverName, Phone: driverPhone}
	}

	b.StatusHistory = []models.StatusChange{}
	b.Expenses = []models.Expense{}
	b.DutySlips = []models.DutySlip{}
	b.Payments = []models.BookingPayment{}
	return b, nil
}

// loadChildren fills the owned sub-collections with one query per child table.
func loadChildren(ctx context.Context, q intdb.DBTX, list []*models.Booking) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Booking, len(list))
	ids := make([]any, 0, len(list))
	for _, b := range list {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}
	in := intdb.Placeholders(len(ids))

	err := eachRow(ctx, q, `SELECT booking_id, status, changed_by, changed_at FROM booking_status_history WHERE booking_id IN (`+in+`) ORDER BY booking_id, id`, ids,
		func(rows *sql.Rows) error {
			var (
				bid    int64
				status string
				ch     models.StatusChange
			)
			if err := rows.Scan(&bid, &status, &ch.ChangedBy, &ch.Timestamp); err != nil {
				return err
			}
			ch.Status = models.BookingStatus(status)
			if b := byID[bid]; b != nil {
				b.StatusHistory = append(b.StatusHistory, ch)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load status history: %w", err)
	}

	err = eachRow(ctx, q, `SELECT booking_id, type, amount, description, COALESCE(receipt,''), created_at FROM booking_expenses WHERE booking_id IN (`+in+`) ORDER BY booking_id, id`, ids,
		func(rows *sql.Rows) error {
			var (
				bid int64
				typ string
				e   models.Expense
			)
			if err := rows.Scan(&bid, &typ, &e.Amount, &e.Description, &e.Receipt, &e.CreatedAt); err != nil {
				return err
			}
			e.Type = models.ExpenseType(typ)
			if b := byID[bid]; b != nil {
				b.Expenses = append(b.Expenses, e)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}

	err = eachRow(ctx, q, `SELECT booking_id, path, uploaded_by, uploaded_at, description FROM booking_duty_slips WHERE booking_id IN (`+in+`) ORDER BY booking_id, id`, ids,
		func(rows *sql.Rows) error {
			var (
				bid int64
				s   models.DutySlip
			)
			if err := rows.Scan(&bid, &s.Path, &s.UploadedBy, &s.UploadedAt, &s.Description); err != nil {
				return err
			}
			if b := byID[bid]; b != nil {
				b.DutySlips = append(b.DutySlips, s)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load duty slips: %w", err)
	}

	err = eachRow(ctx, q, `SELECT booking_id, amount, comments, collected_by, paid_on FROM booking_payments WHERE booking_id IN (`+in+`) ORDER BY booking_id, id`, ids,
		func(rows *sql.Rows) error {
			var (
				bid int64
				p   models.BookingPayment
			)
			if err := rows.Scan(&bid, &p.Amount, &p.Comments, &p.CollectedBy, &p.PaidOn); err != nil {
				return err
			}
			if b := byID[bid]; b != nil {
				b.Payments = append(b.Payments, p)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load booking payments: %w", err)
	}
	return nil
}
