// Package shares declares the persistence contract for public share links.
package shares

import (
	"context"
	"time"

	"github.com/dmitrijs2005/textli/internal/server/models"
)

// Repository stores shares. At most one share exists per note.
type Repository interface {
	// ExistsForNote reports whether the user's note already has a share.
	ExistsForNote(ctx context.Context, userID int64, noteToken string) (bool, error)
	// CreateForOwnedNote inserts the share only if the note is owned by
	// share.UserID and not soft-deleted; otherwise common.ErrorNotFound.
	// A concurrent second share for the same note yields common.ErrorConflict.
	CreateForOwnedNote(ctx context.Context, share *models.Share) error
	// FindExpiry returns the optional expiry of a share.
	FindExpiry(ctx context.Context, token string) (*time.Time, error)
	// Access atomically increments the view counter of an unexpired share and
	// returns the shared note.
	Access(ctx context.Context, token string, now time.Time) (*models.SharedNote, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Share, error)
	Delete(ctx context.Context, userID int64, token string) error
	// DeleteForNote removes the share of a note, if any.
	DeleteForNote(ctx context.Context, userID int64, noteToken string) (int64, error)
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
	// ListPublications returns the unexpired public shares of an active user.
	ListPublications(ctx context.Context, userName string, now time.Time) ([]models.Publication, error)
}
