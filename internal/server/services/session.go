// Package services contains server-side business logic. This file implements
// SessionService, the session authenticator over the token store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

// SessionService issues, validates and revokes opaque session tokens.
// Nothing is cached: every Authenticate call re-reads the store.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	expiry      time.Duration
	logger      logging.Logger
	now         func() time.Time
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		expiry:      cfg.SessionExpiry,
		logger:      l.With("module", "sessions"),
		now:         time.Now,
	}
}

// Expiry is the validity window of an issued token.
func (s *SessionService) Expiry() time.Duration { return s.expiry }

// Issue persists a fresh random token for the user and returns it.
func (s *SessionService) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := common.MakeRandAlphanumericString(common.AuthTokenLength)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	if err := s.repomanager.AuthTokens(s.db).Create(ctx, token, userID, s.now()); err != nil {
		return "", fmt.Errorf("error storing token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a token to its owner. Unknown tokens and tokens older
// than the expiry window yield ErrorUnauthorized; an expired token is deleted
// on the way out.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.AuthTokens(s.db)
	t, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching token: %w", err)
	}

	if s.now().Sub(t.CreatedAt) > s.expiry {
		if err := repo.Delete(ctx, token); err != nil {
			s.logger.Error(ctx, "expired token cleanup failed", "token", common.TruncateToken(token), "error", err)
		} else {
			s.logger.Info(ctx, "expired token removed", "token", common.TruncateToken(token))
		}
		return nil, common.ErrorUnauthorized
	}

	return &models.Identity{UserID: t.UserID, UserName: t.UserName}, nil
}

// Revoke deletes a single token. Revoking an unknown token succeeds.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repomanager.AuthTokens(s.db).Delete(ctx, token)
}

// RevokeAll deletes every token of the user.
func (s *SessionService) RevokeAll(ctx context.Context, userID int64) error {
	n, err := s.repomanager.AuthTokens(s.db).DeleteAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "sessions revoked", "user_id", userID, "count", n)
	return nil
}
