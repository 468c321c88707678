package shares

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

func (r *PostgresRepository) ExistsForNote(ctx context.Context, userID int64, noteToken string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM shares
			INNER JOIN notes ON shares.note_id = notes.id
			WHERE notes.token = $1 AND notes.user_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, noteToken, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) CreateForOwnedNote(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (token, note_id, user_id, created_at, expires_at, public)
		SELECT $1, id, $3, $4, $5, $6
		FROM notes
		WHERE token = $2 AND user_id = $3 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, share.Token, share.NoteToken, share.UserID,
		share.CreatedAt, share.ExpiresAt, share.Public)
	if err != nil {
		return dbx.WrapError(err)
	}
	return dbx.ExpectOneRow(res, common.ErrorNotFound)
}

func (r *PostgresRepository) FindExpiry(ctx context.Context, token string) (*time.Time, error) {
	query := `
		SELECT expires_at
		FROM shares
		WHERE token = $1
	`
	var expiresAt *time.Time
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return expiresAt, nil
}

func (r *PostgresRepository) Access(ctx context.Context, token string, now time.Time) (*models.SharedNote, error) {
	query := `
		UPDATE shares
		SET view_count = shares.view_count + 1
		FROM notes
		WHERE shares.token = $1
			AND notes.id = shares.note_id
			AND notes.deleted_at IS NULL
			AND (shares.expires_at IS NULL OR shares.expires_at >= $2)
		RETURNING notes.created_at, notes.modified_at, notes.metadata, notes.key, notes.content, shares.view_count
	`
	n := &models.SharedNote{}
	err := r.db.QueryRowContext(ctx, query, token, now).
		Scan(&n.CreatedAt, &n.ModifiedAt, &n.Metadata, &n.Key, &n.Content, &n.ViewCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int64) ([]models.Share, error) {
	query := `
		SELECT shares.token, notes.token, shares.user_id, shares.created_at, shares.expires_at,
			shares.public, shares.view_count
		FROM shares
		INNER JOIN notes ON shares.note_id = notes.id
		WHERE shares.user_id = $1
		ORDER BY shares.created_at DESC, shares.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Share{}
	for rows.Next() {
		var s models.Share
		if err := rows.Scan(&s.Token, &s.NoteToken, &s.UserID, &s.CreatedAt, &s.ExpiresAt,
			&s.Public, &s.ViewCount); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID int64, token string) error {
	query := `
		DELETE FROM shares
		WHERE token = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res, common.ErrorNotFound)
}

func (r *PostgresRepository) DeleteForNote(ctx context.Context, userID int64, noteToken string) (int64, error) {
	query := `
		DELETE FROM shares
		WHERE note_id IN (SELECT id FROM notes WHERE token = $1 AND user_id = $2)
	`
	return r.execCount(ctx, query, noteToken, userID)
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		DELETE FROM shares
		WHERE user_id = $1
	`
	return r.execCount(ctx, query, userID)
}

func (r *PostgresRepository) ListPublications(ctx context.Context, userName string, now time.Time) ([]models.Publication, error) {
	query := `
		SELECT shares.token, shares.public, notes.created_at, notes.modified_at, notes.metadata, notes.key
		FROM shares
		INNER JOIN notes ON shares.note_id = notes.id
		INNER JOIN users ON notes.user_id = users.id
		WHERE users.username = $1
			AND users.deleted_at IS NULL
			AND shares.public IS NOT NULL
			AND (shares.expires_at IS NULL OR shares.expires_at >= $2)
		ORDER BY notes.modified_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userName, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Publication{}
	for rows.Next() {
		var p models.Publication
		if err := rows.Scan(&p.Token, &p.Public, &p.CreatedAt, &p.ModifiedAt, &p.Metadata, &p.Key); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
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
