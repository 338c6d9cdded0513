package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain/models"
)

type DriverRepository struct {
	DB intdb.DBTX
}

func (r DriverRepository) db() (intdb.DBTX, error) {
	return pick(r.DB)
}

func (r DriverRepository) Exists(ctx context.Context, id int64) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	var got int64
	err = q.QueryRowContext(ctx, `SELECT id FROM drivers WHERE id=? LIMIT 1`, id).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindByID returns the driver with advances in insertion order, or sql.ErrNoRows.
func (r DriverRepository) FindByID(ctx context.Context, id int64) (models.Driver, error) {
	q, err := r.db()
	if err != nil {
		return models.Driver{}, err
	}
	var d models.Driver
	if err := q.QueryRowContext(ctx, `SELECT id, name, phone FROM drivers WHERE id=? LIMIT 1`, id).
		Scan(&d.ID, &d.Name, &d.Phone); err != nil {
		return models.Driver{}, err
	}

	d.Advances = []models.Advance{}
	err = eachRow(ctx, q, `
		SELECT id, driver_id, amount, date, settled, description
		FROM driver_advances WHERE driver_id=? ORDER BY id ASC`, []any{id},
		func(rows *sql.Rows) error {
			var a models.Advance
			if err := rows.Scan(&a.ID, &a.DriverID, &a.Amount, &a.Date, &a.Settled, &a.Description); err != nil {
				return err
			}
			d.Advances = append(d.Advances, a)
			return nil
		})
	if err != nil {
		return models.Driver{}, fmt.Errorf("load advances: %w", err)
	}
	return d, nil
}

func (r DriverRepository) InsertAdvance(ctx context.Context, a models.Advance) (int64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO driver_advances (driver_id, amount, date, settled, description) VALUES (?,?,?,?,?)`,
		a.DriverID, a.Amount, a.Date, a.Settled, a.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("insert advance: %w", err)
	}
	return res.LastInsertId()
}

// SettleAdvance marks the advance settled. Zero matched rows is not an error.
func (r DriverRepository) SettleAdvance(ctx context.Context, driverID, advanceID int64) (int64, error) {
	q, err := r.db()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `UPDATE driver_advances SET settled=1 WHERE id=? AND driver_id=?`, advanceID, driverID)
	if err != nil {
		return 0, fmt.Errorf("settle advance: %w", err)
	}
	return intdb.RowsAffected(res), nil
}
