package repositories

import (
	"context"
	"database/sql"
	"errors"

	intconfig "fleetops/internal/config"
	intdb "fleetops/internal/db"
)

var errNoDB = errors.New("db tidak tersedia")

// pick returns the explicit handle or falls back to the shared pool.
func pick(q intdb.DBTX) (intdb.DBTX, error) {
	if q != nil {
		return q, nil
	}
	if intconfig.DB != nil {
		return intconfig.DB, nil
	}
	return nil, errNoDB
}

func eachRow(ctx context.Context, q intdb.DBTX, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
