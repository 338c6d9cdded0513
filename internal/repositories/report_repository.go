package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain/models"
)

// ReportRepository aggregates bookings whose start date falls inside [from, to).
type ReportRepository struct {
	DB intdb.DBTX
}

func (r ReportRepository) db() (intdb.DBTX, error) {
	return pick(r.DB)
}

func (r ReportRepository) StatusSummary(ctx context.Context, from, to time.Time) ([]models.StatusSummary, error) {
	q, err := r.db()
	if err != nil {
		return nil, err
	}
	out := []models.StatusSummary{}
	err = eachRow(ctx, q, `
		SELECT status, COUNT(*),
			COALESCE(SUM(total_amount),0), COALESCE(SUM(advance_received),0), COALESCE(SUM(balance),0)
		FROM bookings
		WHERE start_date >= ? AND start_date < ?
		GROUP BY status
		ORDER BY status`, []any{from, to},
		func(rows *sql.Rows) error {
			var (
				s      models.StatusSummary
				status string
			)
			if err := rows.Scan(&status, &s.Count, &s.TotalAmount, &s.AdvanceReceived, &s.Balance); err != nil {
				return err
			}
			s.Status = models.BookingStatus(status)
			out = append(out, s)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("status summary: %w", err)
	}
	return out, nil
}

// BookingTotals sums revenue figures, leaving canceled bookings out.
func (r ReportRepository) BookingTotals(ctx context.Context, from, to time.Time) (count int, revenue, advance, balance float64, err error) {
	q, err := r.db()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_amount),0), COALESCE(SUM(advance_received),0), COALESCE(SUM(balance),0)
		FROM bookings
		WHERE start_date >= ? AND start_date < ? AND status <> ?`,
		from, to, string(models.StatusCanceled),
	).Scan(&count, &revenue, &advance, &balance)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("booking totals: %w", err)
	}
	return count, revenue, advance, balance, nil
}

func (r ReportRepository) ExpensesByType(ctx context.Context, from, to time.Time) ([]models.ExpenseSummary, error) {
	q, err := r.db()
	if err != nil {
		return nil, err
	}
	out := []models.ExpenseSummary{}
	err = eachRow(ctx, q, `
		SELECT e.type, COUNT(*), COALESCE(SUM(e.amount),0)
		FROM booking_expenses e
		JOIN bookings b ON b.id = e.booking_id
		WHERE b.start_date >= ? AND b.start_date < ?
		GROUP BY e.type
		ORDER BY e.type`, []any{from, to},
		func(rows *sql.Rows) error {
			var (
				s   models.ExpenseSummary
				typ string
			)
			if err := rows.Scan(&typ, &s.Count, &s.Amount); err != nil {
				return err
			}
			s.Type = models.ExpenseType(typ)
			out = append(out, s)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("expenses by type: %w", err)
	}
	return out, nil
}

// FieldCollections sums in-booking payments by their paid-on date.
func (r ReportRepository) FieldCollections(ctx context.Context, from, to time.Time) (float64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	var total float64
	err = q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount),0) FROM booking_payments WHERE paid_on >= ? AND paid_on < ?`, from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("field collections: %w", err)
	}
	return total, nil
}
