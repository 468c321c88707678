// Package notes declares the persistence contract for encrypted notes and
// their soft-delete lifecycle.
package notes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/textli/internal/server/models"
)

// Repository stores notes. Every owner-scoped mutation affects exactly one
// row: zero rows is common.ErrorNotFound, more is a ViolatedAssertion.
type Repository interface {
	Create(ctx context.Context, note *models.Note) error
	// Update rewrites the blobs of an active note and bumps modified_at.
	Update(ctx context.Context, userID int64, token string, c models.NoteContent, now time.Time) error
	// Get returns an active note.
	Get(ctx context.Context, userID int64, token string) (*models.Note, error)
	ListActive(ctx context.Context, userID int64) ([]models.Note, error)
	ListDeleted(ctx context.Context, userID int64) ([]models.Note, error)
	// ListAllActive returns active notes including their content.
	ListAllActive(ctx context.Context, userID int64) ([]models.Note, error)
	SoftDelete(ctx context.Context, userID int64, token string, now time.Time) error
	Undelete(ctx context.Context, userID int64, token string) error
	// PurgeDeletedBefore hard-deletes notes soft-deleted strictly before cutoff.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteAllForUser hard-deletes every note of a user, active or not.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
}
