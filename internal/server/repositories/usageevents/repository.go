// Package usageevents declares the append-only usage ledger store.
package usageevents

import (
	"context"

	"github.com/dmitrijs2005/textli/internal/server/models"
)

// Repository appends and replays usage events. Events are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, event *models.UsageEvent) error
	// ListForUser returns the user's events ordered by time ascending, read
	// by a single statement so the replay sees one consistent snapshot.
	ListForUser(ctx context.Context, userID int64) ([]models.UsageEvent, error)
	// LastSessionKind returns the kind of the most recent session-start or
	// session-pause event; ok is false when the user has neither.
	LastSessionKind(ctx context.Context, userID int64) (kind models.EventKind, ok bool, err error)
}
