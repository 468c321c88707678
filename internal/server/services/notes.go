package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

// NoteService owns the note lifecycle: Active → Deleted → (purged by the sweeper).
// Creation and updates are gated by funding; reads and deletes are not.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gate        *FundingGate
	now         func() time.Time
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, gate *FundingGate) *NoteService {
	return &NoteService{db: db, repomanager: m, gate: gate, now: time.Now}
}

// Create stores a new note with created and modified set to now.
func (s *NoteService) Create(ctx context.Context, id models.Identity, c models.NoteContent) (*models.Note, error) {
	var note *models.Note
	err := s.gate.Run(ctx, id, func(ctx context.Context) error {
		token, err := common.MakeRandAlphanumericString(common.NoteTokenLength)
		if err != nil {
			return fmt.Errorf("error generating note token: %w", err)
		}
		now := s.now()
		n := &models.Note{
			Token:      token,
			UserID:     id.UserID,
			CreatedAt:  now,
			ModifiedAt: now,
			Metadata:   c.Metadata,
			Key:        c.Key,
			Content:    c.Content,
		}
		if err := s.repomanager.Notes(s.db).Create(ctx, n); err != nil {
			return err
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Update rewrites an active owned note and returns the new modification time.
func (s *NoteService) Update(ctx context.Context, id models.Identity, token string, c models.NoteContent) (time.Time, error) {
	var modified time.Time
	err := s.gate.Run(ctx, id, func(ctx context.Context) error {
		now := s.now()
		if err := s.repomanager.Notes(s.db).Update(ctx, id.UserID, token, c, now); err != nil {
			return hideNotFound(err)
		}
		modified = now
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return modified, nil
}

func (s *NoteService) Get(ctx context.Context, id models.Identity, token string) (*models.Note, error) {
	n, err := s.repomanager.Notes(s.db).Get(ctx, id.UserID, token)
	if err != nil {
		return nil, hideNotFound(err)
	}
	return n, nil
}

// List returns either the active or the soft-deleted notes, never both.
// Content blobs are omitted.
func (s *NoteService) List(ctx context.Context, id models.Identity, includeDeleted bool) ([]models.Note, error) {
	repo := s.repomanager.Notes(s.db)
	if includeDeleted {
		return repo.ListDeleted(ctx, id.UserID)
	}
	return repo.ListActive(ctx, id.UserID)
}

// SoftDelete marks the note deleted and revokes its share in one transaction.
func (s *NoteService) SoftDelete(ctx context.Context, id models.Identity, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Notes(tx).SoftDelete(ctx, id.UserID, token, s.now()); err != nil {
			return hideNotFound(err)
		}
		if _, err := s.repomanager.Shares(tx).DeleteForNote(ctx, id.UserID, token); err != nil {
			return fmt.Errorf("error revoking share: %w", err)
		}
		return nil
	})
}

// Undelete restores a soft-deleted note and returns it.
func (s *NoteService) Undelete(ctx context.Context, id models.Identity, token string) (*models.Note, error) {
	var note *models.Note
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Notes(tx)
		if err := repo.Undelete(ctx, id.UserID, token); err != nil {
			return hideNotFound(err)
		}
		n, err := repo.Get(ctx, id.UserID, token)
		if err != nil {
			return hideNotFound(err)
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}
