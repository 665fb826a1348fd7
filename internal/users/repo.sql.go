package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

const userColumns = `id, username, COALESCE(display_name, ''), role, active, created_at, updated_at`

// Repository persists accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Insert stores a new account.
func (r *Repository) Insert(ctx context.Context, input CreateUserInput, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (username, display_name, password_hash, role, active, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, TRUE, NOW(), NOW())
RETURNING `+userColumns,
		input.Username, input.DisplayName, passwordHash, input.Role)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, shared.Conflict(fmt.Sprintf("username %s already taken", input.Username))
		}
		return User{}, err
	}
	return u, nil
}

// GetByID fetches an account.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.NotFound("user", id)
		}
		return User{}, err
	}
	return u, nil
}

// List returns all accounts ordered by username.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update rewrites account fields. passwordHash is applied only when non-empty.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateUserInput, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users
SET display_name=NULLIF($2, ''), role=$3, password_hash=COALESCE(NULLIF($4, ''), password_hash), updated_at=NOW()
WHERE id=$1
RETURNING `+userColumns,
		id, input.DisplayName, input.Role, passwordHash)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.NotFound("user", id)
		}
		return User{}, err
	}
	return u, nil
}

// SetActive toggles account access.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("user", id)
	}
	return nil
}
