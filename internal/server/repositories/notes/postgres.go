package notes

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

func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (token, user_id, created_at, modified_at, metadata, key, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, note.Token, note.UserID, note.CreatedAt, note.ModifiedAt,
		note.Metadata, note.Key, note.Content)
	if err != nil {
		return dbx.WrapError(err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID int64, token string, c models.NoteContent, now time.Time) error {
	query := `
		UPDATE notes
		SET metadata = $1, key = $2, content = $3, modified_at = $4
		WHERE token = $5 AND user_id = $6 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, c.Metadata, c.Key, c.Content, now, token, userID)
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64, token string) (*models.Note, error) {
	query := `
		SELECT token, user_id, created_at, modified_at, deleted_at, metadata, key, content
		FROM notes
		WHERE token = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	return scanNote(r.db.QueryRowContext(ctx, query, token, userID))
}

func (r *PostgresRepository) ListActive(ctx context.Context, userID int64) ([]models.Note, error) {
	query := `
		SELECT token, user_id, created_at, modified_at, deleted_at, metadata, key, ''
		FROM notes
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY modified_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListDeleted(ctx context.Context, userID int64) ([]models.Note, error) {
	query := `
		SELECT token, user_id, created_at, modified_at, deleted_at, metadata, key, ''
		FROM notes
		WHERE user_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListAllActive(ctx context.Context, userID int64) ([]models.Note, error) {
	query := `
		SELECT token, user_id, created_at, modified_at, deleted_at, metadata, key, content
		FROM notes
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID int64, token string, now time.Time) error {
	query := `
		UPDATE notes
		SET deleted_at = $1
		WHERE token = $2 AND user_id = $3 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, now, token, userID)
}

func (r *PostgresRepository) Undelete(ctx context.Context, userID int64, token string) error {
	query := `
		UPDATE notes
		SET deleted_at = NULL
		WHERE token = $1 AND user_id = $2 AND deleted_at IS NOT NULL
	`
	return r.execOne(ctx, query, token, userID)
}

func (r *PostgresRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM notes
		WHERE deleted_at IS NOT NULL AND deleted_at < $1
	`
	return r.execCount(ctx, query, cutoff)
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		DELETE FROM notes
		WHERE user_id = $1
	`
	return r.execCount(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.Token, &n.UserID, &n.CreatedAt, &n.ModifiedAt, &n.DeletedAt,
			&n.Metadata, &n.Key, &n.Content); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return notes, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res, common.ErrorNotFound)
}

func (r *PostgresRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func scanNote(row *sql.Row) (*models.Note, error) {
	n := &models.Note{}
	err := row.Scan(&n.Token, &n.UserID, &n.CreatedAt, &n.ModifiedAt, &n.DeletedAt,
		&n.Metadata, &n.Key, &n.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
