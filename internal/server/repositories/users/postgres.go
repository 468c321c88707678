package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash, email)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.PasswordHash, user.Email).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, dbx.WrapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) ExistsByName(ctx context.Context, userName string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1))`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userName).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) GetActiveByName(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, email, salt, created_at, deleted_at
		 FROM users
		 WHERE username = $1 AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, email, salt, created_at, deleted_at
		 FROM users
		 WHERE id = $1 AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, userID int64) error {
	query :=
		`SELECT id FROM users
		 WHERE id = $1 AND deleted_at IS NULL
		 FOR UPDATE`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $1
		 WHERE id = $2 AND deleted_at IS NULL`

	return r.execOne(ctx, query, passwordHash, userID)
}

func (r *PostgresRepository) UpdateSalt(ctx context.Context, userID int64, salt string) error {
	query :=
		`UPDATE users SET salt = $1
		 WHERE id = $2 AND deleted_at IS NULL`

	return r.execOne(ctx, query, salt, userID)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID int64, now time.Time) error {
	query :=
		`UPDATE users SET deleted_at = $1
		 WHERE id = $2 AND deleted_at IS NULL`

	return r.execOne(ctx, query, now, userID)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res, common.ErrorNotFound)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.Email,
		&user.Salt, &user.CreatedAt, &user.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
