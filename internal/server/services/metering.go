package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

// MeteringService appends events to the usage ledger. Session toggles keep
// start/pause strictly alternating by checking the last toggle under a row
// lock on the user.
type MeteringService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewMeteringService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *MeteringService {
	return &MeteringService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "metering"),
		now:         time.Now,
	}
}

// Start opens a metering session. ErrorConflict if one is already open.
func (s *MeteringService) Start(ctx context.Context, id models.Identity) error {
	return s.toggle(ctx, id.UserID, models.EventSessionStart)
}

// Pause closes the open metering session. ErrorConflict if none is open.
func (s *MeteringService) Pause(ctx context.Context, id models.Identity) error {
	return s.toggle(ctx, id.UserID, models.EventSessionPause)
}

// AddFunds records an already-validated payment for the user.
func (s *MeteringService) AddFunds(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return common.ErrorInvalidInput
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorInvalidInput
			}
			return err
		}
		e := &models.UsageEvent{UserID: userID, Kind: models.EventFundsAdded, Amount: &amount, OccurredAt: s.now()}
		return s.repomanager.UsageEvents(tx).Append(ctx, e)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "funds added", "user_id", userID, "amount", amount)
	return nil
}

func (s *MeteringService) toggle(ctx context.Context, userID int64, kind models.EventKind) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, userID); err != nil {
			return hideNotFound(err)
		}

		events := s.repomanager.UsageEvents(tx)
		last, ok, err := events.LastSessionKind(ctx, userID)
		if err != nil {
			return err
		}
		if !canFollow(last, ok, kind) {
			return common.ErrorConflict
		}

		return events.Append(ctx, &models.UsageEvent{UserID: userID, Kind: kind, OccurredAt: s.now()})
	})
}

// canFollow reports whether next keeps the start/pause alternation after last.
func canFollow(last models.EventKind, hasLast bool, next models.EventKind) bool {
	switch next {
	case models.EventSessionStart:
		return !hasLast || last == models.EventSessionPause
	case models.EventSessionPause:
		return hasLast && last == models.EventSessionStart
	}
	return false
}
