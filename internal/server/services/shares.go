package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

// maxShareHours is the longest lifetime a share can be given without
// overflowing time.Duration.
const maxShareHours = math.MaxInt64 / int64(time.Hour)

// ShareRequest describes a new share link.
type ShareRequest struct {
	NoteToken string
	// ExpiresInHours, when set, limits the link's lifetime.
	ExpiresInHours *int64
	// Public, when set, lists the share on the owner's publications page.
	Public *string
}

// ShareService owns share links: one per note, optionally expiring, with an
// atomic view counter.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gate        *FundingGate
	logger      logging.Logger
	now         func() time.Time
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, gate *FundingGate, l logging.Logger) *ShareService {
	return &ShareService{
		db:          db,
		repomanager: m,
		gate:        gate,
		logger:      l.With("module", "shares"),
		now:         time.Now,
	}
}

// Create shares an owned, active note. A second share for the same note is
// ErrorConflict; a foreign, missing or deleted note is ErrorUnauthorized.
func (s *ShareService) Create(ctx context.Context, id models.Identity, req ShareRequest) (*models.Share, error) {
	if req.ExpiresInHours != nil && (*req.ExpiresInHours <= 0 || *req.ExpiresInHours > maxShareHours) {
		return nil, common.ErrorInvalidInput
	}

	var share *models.Share
	err := s.gate.Run(ctx, id, func(ctx context.Context) error {
		repo := s.repomanager.Shares(s.db)

		exists, err := repo.ExistsForNote(ctx, id.UserID, req.NoteToken)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrorConflict
		}

		token, err := common.MakeRandAlphanumericString(common.ShareTokenLength)
		if err != nil {
			return fmt.Errorf("error generating share token: %w", err)
		}

		now := s.now()
		sh := &models.Share{
			Token:     token,
			NoteToken: req.NoteToken,
			UserID:    id.UserID,
			CreatedAt: now,
			Public:    req.Public,
		}
		if req.ExpiresInHours != nil {
			exp := now.Add(time.Duration(*req.ExpiresInHours) * time.Hour)
			sh.ExpiresAt = &exp
		}

		if err := repo.CreateForOwnedNote(ctx, sh); err != nil {
			return hideNotFound(err)
		}
		share = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

// Access serves a public share link and counts the view. Expired and
// missing links are both ErrorUnauthorized and are not counted.
func (s *ShareService) Access(ctx context.Context, token string) (*models.SharedNote, error) {
	repo := s.repomanager.Shares(s.db)

	expiresAt, err := repo.FindExpiry(ctx, token)
	if err != nil {
		return nil, hideNotFound(err)
	}
	now := s.now()
	if expiresAt != nil && expiresAt.Before(now) {
		s.logger.Warn(ctx, "share expired", "share", common.TruncateToken(token))
		return nil, common.ErrorUnauthorized
	}

	n, err := repo.Access(ctx, token, now)
	if err != nil {
		return nil, hideNotFound(err)
	}
	return n, nil
}

func (s *ShareService) List(ctx context.Context, id models.Identity) ([]models.Share, error) {
	return s.repomanager.Shares(s.db).ListForUser(ctx, id.UserID)
}

func (s *ShareService) Delete(ctx context.Context, id models.Identity, token string) error {
	return hideNotFound(s.repomanager.Shares(s.db).Delete(ctx, id.UserID, token))
}

// ListPublications lists a user's public, unexpired shares. No authentication.
func (s *ShareService) ListPublications(ctx context.Context, userName string) ([]models.Publication, error) {
	return s.repomanager.Shares(s.db).ListPublications(ctx, userName, s.now())
}
