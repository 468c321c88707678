package usageevents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, event *models.UsageEvent) error {
	query := `
		INSERT INTO usage_events (user_id, kind, amount, occurred_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, event.UserID, string(event.Kind), event.Amount, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int64) ([]models.UsageEvent, error) {
	query := `
		SELECT kind, amount, occurred_at
		FROM usage_events
		WHERE user_id = $1
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var events []models.UsageEvent
	for rows.Next() {
		e := models.UsageEvent{UserID: userID}
		var kind string
		if err := rows.Scan(&kind, &e.Amount, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		e.Kind = models.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) LastSessionKind(ctx context.Context, userID int64) (models.EventKind, bool, error) {
	query := `
		SELECT kind
		FROM usage_events
		WHERE user_id = $1 AND kind IN ('session_start', 'session_pause')
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`
	var kind string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("db error: %w", err)
	}
	return models.EventKind(kind), true, nil
}
