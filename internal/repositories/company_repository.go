package repositories

import (
	"context"
	"fmt"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain/models"
)

type CompanyRepository struct {
	DB intdb.DBTX
}

func (r CompanyRepository) db() (intdb.DBTX, error) {
	return pick(r.DB)
}

// FindByID returns sql.ErrNoRows when absent.
func (r CompanyRepository) FindByID(ctx context.Context, id int64) (models.Company, error) {
	q, err := r.db()
	if err != nil {
		return models.Company{}, err
	}
	var c models.Company
	err = q.QueryRowContext(ctx, `SELECT id, name, outstanding_amount FROM companies WHERE id=? LIMIT 1`, id).
		Scan(&c.ID, &c.Name, &c.OutstandingAmount)
	return c, err
}

// DecrementOutstanding applies the delta in the database; false means no such company.
func (r CompanyRepository) DecrementOutstanding(ctx context.Context, id int64, amount float64) (bool, error) {
	q, err := r.db()
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `UPDATE companies SET outstanding_amount = outstanding_amount - ? WHERE id=?`, amount, id)
	if err != nil {
		return false, fmt.Errorf("decrement outstanding: %w", err)
	}
	return intdb.RowsAffected(res) > 0, nil
}
