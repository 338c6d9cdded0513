package repositories

import (
	"context"
	"strings"

	intdb "fleetops/internal/db"
)

// UserCredential is the row needed to authenticate a login.
type UserCredential struct {
	ID           int64
	Name         string
	Role         string
	Status       string
	PasswordHash string
}

type UserRepository struct {
	DB intdb.DBTX
}

func (r UserRepository) db() (intdb.DBTX, error) {
	return pick(r.DB)
}

// FindByLogin matches either username or email. Returns sql.ErrNoRows when absent.
func (r UserRepository) FindByLogin(ctx context.Context, login string) (UserCredential, error) {
	q, err := r.db()
	if err != nil {
		return UserCredential{}, err
	}
	login = strings.TrimSpace(login)
	var u UserCredential
	err = q.QueryRowContext(ctx, `
		SELECT id, name, role, status, password_hash
		FROM users WHERE username=? OR email=? LIMIT 1`, login, strings.ToLower(login)).
		Scan(&u.ID, &u.Name, &u.Role, &u.Status, &u.PasswordHash)
	return u, err
}
