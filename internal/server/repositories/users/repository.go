// Package users declares the repository contract for user accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/textli/internal/server/models"
)

// Repository persists accounts. Lookups of missing or closed accounts
// return common.ErrorNotFound.
type Repository interface {
	// Create inserts the user and fills in ID and CreatedAt. A duplicate
	// username yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// ExistsByName performs a case-insensitive existence check.
	ExistsByName(ctx context.Context, userName string) (bool, error)
	GetActiveByName(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, userID int64) (*models.User, error)
	// LockForUpdate takes a row lock on an active user for the rest of the
	// surrounding transaction.
	LockForUpdate(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateSalt(ctx context.Context, userID int64, salt string) error
	SoftDelete(ctx context.Context, userID int64, now time.Time) error
}
