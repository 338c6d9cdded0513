package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain/models"
)

const paymentColumns = `
	id, entity_type, entity_id, amount, type, date, description,
	related_advance_id, booking_id, driver_payment_mode,
	fuel_quantity, fuel_rate, computed_amount, distance_km, mileage,
	settled, settled_at, created_at`

type PaymentRepository struct {
	DB intdb.DBTX
}

func (r PaymentRepository) db() (intdb.DBTX, error) {
	return pick(r.DB)
}

func (r PaymentRepository) Insert(ctx context.Context, p models.Payment) (int64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	var mode any
	if p.Mode != nil {
		mode = string(*p.Mode)
	}
	var settledAt any
	if p.SettledAt != nil {
		settledAt = *p.SettledAt
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO payments (
			entity_type, entity_id, amount, type, date, description,
			related_advance_id, booking_id, driver_payment_mode,
			fuel_quantity, fuel_rate, computed_amount, distance_km, mileage,
			settled, settled_at, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		string(p.EntityType), p.EntityID, p.Amount, string(p.Type), p.Date, p.Description,
		intdb.NullInt64(p.RelatedAdvanceID), intdb.NullInt64(p.BookingID), mode,
		intdb.NullFloat64(p.FuelQuantity), intdb.NullFloat64(p.FuelRate), intdb.NullFloat64(p.ComputedAmount),
		intdb.NullFloat64(p.DistanceKm), intdb.NullFloat64(p.Mileage),
		p.Settled, settledAt, p.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return res.LastInsertId()
}

// List returns one page of the ledger, newest date first.
func (r PaymentRepository) List(ctx context.Context, limit, offset int) ([]models.Payment, int, error) {
	q, err := r.db()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	out, err := r.query(ctx, q, `SELECT `+paymentColumns+` FROM payments ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListDriverByBooking returns the driver entries tied to one booking, newest first.
func (r PaymentRepository) ListDriverByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	q, err := r.db()
	if err != nil {
		return nil, err
	}
	return r.query(ctx, q, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=? AND entity_type=? ORDER BY date DESC, id DESC`,
		bookingID, string(models.EntityDriver))
}

// FindDriverByBooking scopes the lookup to the booking; sql.ErrNoRows otherwise.
func (r PaymentRepository) FindDriverByBooking(ctx context.Context, bookingID, id int64) (models.Payment, error) {
	q, err := r.db()
	if err != nil {
		return models.Payment{}, err
	}
	return scanPayment(q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id=? AND booking_id=? AND entity_type=? LIMIT 1`,
		id, bookingID, string(models.EntityDriver)))
}

// UpdateDriverPayment rewrites the mutable columns of an existing entry.
func (r PaymentRepository) UpdateDriverPayment(ctx context.Context, p models.Payment) error {
	q, err := r.db()
	if err != nil {
		return err
	}
	var mode any
	if p.Mode != nil {
		mode = string(*p.Mode)
	}
	var settledAt any
	if p.SettledAt != nil {
		settledAt = *p.SettledAt
	}
	_, err = q.ExecContext(ctx, `
		UPDATE payments SET
			driver_payment_mode=?, amount=?, fuel_quantity=?, fuel_rate=?, computed_amount=?,
			distance_km=?, mileage=?, description=?, settled=?, settled_at=?
		WHERE id=?`,
		mode, p.Amount, intdb.NullFloat64(p.FuelQuantity), intdb.NullFloat64(p.FuelRate), intdb.NullFloat64(p.ComputedAmount),
		intdb.NullFloat64(p.DistanceKm), intdb.NullFloat64(p.Mileage), p.Description, p.Settled, settledAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update driver payment: %w", err)
	}
	return nil
}

func (r PaymentRepository) DeleteDriverPayment(ctx context.Context, bookingID, id int64) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM payments WHERE id=? AND booking_id=? AND entity_type=?`,
		id, bookingID, string(models.EntityDriver))
	if err != nil {
		return false, fmt.Errorf("delete driver payment: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}

func (r PaymentRepository) query(ctx context.Context, q intdb.DBTX, query string, args ...any) ([]models.Payment, error) {
	out := []models.Payment{}
	err := eachRow(ctx, q, query, args, func(rows *sql.Rows) error {
		p, err := scanPayment(rows)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func scanPayment(s rowScanner) (models.Payment, error) {
	var (
		p                                     models.Payment
		entityType, typ                       string
		relatedAdvance, bookingID             sql.NullInt64
		mode                                  sql.NullString
		fuelQty, fuelRate, computed, distance sql.NullFloat64
		mileage                               sql.NullFloat64
		settledAt                             sql.NullTime
	)
	if err := s.Scan(
		&p.ID, &entityType, &p.EntityID, &p.Amount, &typ, &p.Date, &p.Description,
		&relatedAdvance, &bookingID, &mode,
		&fuelQty, &fuelRate, &computed, &distance, &mileage,
		&p.Settled, &settledAt, &p.CreatedAt,
	); err != nil {
		return models.Payment{}, err
	}
	p.EntityType = models.EntityType(entityType)
	p.Type = models.PaymentType(typ)
	p.RelatedAdvanceID = intdb.Int64Ptr(relatedAdvance)
	p.BookingID = intdb.Int64Ptr(bookingID)
	if mode.Valid && mode.String != "" {
		m := models.DriverPaymentMode(mode.String)
		p.Mode = &m
	}
	p.FuelQuantity = intdb.Float64Ptr(fuelQty)
	p.FuelRate = intdb.Float64Ptr(fuelRate)
	p.ComputedAmount = intdb.Float64Ptr(computed)
	p.DistanceKm = intdb.Float64Ptr(distance)
	p.Mileage = intdb.Float64Ptr(mileage)
	if settledAt.Valid {
		t := settledAt.Time.UTC()
		p.SettledAt = &t
	}
	return p, nil
}

// SumDriverPayouts returns total and settled driver payouts
// dated inside [from, to).
func (r PaymentRepository) SumDriverPayouts(ctx context.Context, from, to time.Time) (total, settled float64, err error) {
	q, err := r.db()
	if err != nil {
		return 0, 0, err
	}
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount),0), COALESCE(SUM(CASE WHEN settled=1 THEN amount ELSE 0 END),0)
		FROM payments
		WHERE entity_type=? AND type=? AND date >= ? AND date < ?`,
		string(models.EntityDriver), string(models.PaymentPaid), from, to,
	).Scan(&total, &settled)
	if err != nil {
		return 0, 0, fmt.Errorf("sum driver payouts: %w", err)
	}
	return total, settled, nil
}

// SumCustomerReceipts totals customer money received dated inside [from, to).
func (r PaymentRepository) SumCustomerReceipts(ctx context.Context, from, to time.Time) (float64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	var total float64
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount),0) FROM payments
		WHERE entity_type=? AND type=? AND date >= ? AND date < ?`,
		string(models.EntityCustomer), string(models.PaymentReceived), from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum customer receipts: %w", err)
	}
	return total, nil
}
