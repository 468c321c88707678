// Package authtokens declares the token store: the persistence contract for
// opaque session tokens. Presence of a row is the only proof of validity.
package authtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/textli/internal/server/models"
)

// Repository defines operations for issuing, resolving, and revoking session tokens.
type Repository interface {
	// Create stores a token for userID issued at createdAt.
	Create(ctx context.Context, token string, userID int64, createdAt time.Time) error

	// Find resolves a token to its owner. Unknown tokens, and tokens of
	// closed accounts, return common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.AuthToken, error)

	// Delete removes a token. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every token of a user and returns how many went.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)

	// DeleteCreatedBefore removes tokens issued strictly before cutoff.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
