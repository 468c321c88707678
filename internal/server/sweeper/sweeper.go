// Package sweeper runs the background retention loops: expired session
// tokens and notes soft-deleted past the retention window are removed on
// fixed intervals.
package sweeper

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

type Sweeper struct {
	db                 *sql.DB
	repomanager        repomanager.RepositoryManager
	sessionExpiry      time.Duration
	noteRetention      time.Duration
	tokenSweepInterval time.Duration
	noteSweepInterval  time.Duration
	logger             logging.Logger
	now                func() time.Time
}

func NewSweeper(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *Sweeper {
	return &Sweeper{
		db:                 db,
		repomanager:        m,
		sessionExpiry:      cfg.SessionExpiry,
		noteRetention:      cfg.NoteRetention,
		tokenSweepInterval: cfg.TokenSweepInterval,
		noteSweepInterval:  cfg.NoteSweepInterval,
		logger:             l.With("module", "sweeper"),
		now:                time.Now,
	}
}

// SweepTokens deletes every session token issued more than the expiry
// window ago. A token exactly at the boundary is kept.
func (s *Sweeper) SweepTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.sessionExpiry)
	return s.repomanager.AuthTokens(s.db).DeleteCreatedBefore(ctx, cutoff)
}

// PurgeNotes permanently removes notes soft-deleted more than the retention
// window ago. Active notes are never touched.
func (s *Sweeper) PurgeNotes(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.noteRetention)
	return s.repomanager.Notes(s.db).PurgeDeletedBefore(ctx, cutoff)
}

// Run starts both loops and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info(ctx, "Starting sweeper",
		"token_interval", s.tokenSweepInterval.String(),
		"note_interval", s.noteSweepInterval.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.loop(ctx, "tokens", s.tokenSweepInterval, s.SweepTokens)
	}()
	s.loop(ctx, "notes", s.noteSweepInterval, s.PurgeNotes)
	<-done

	s.logger.Info(ctx, "Sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) (int64, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, name, sweep)
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one sweep. Failures are logged and retried on the next tick.
func (s *Sweeper) tick(ctx context.Context, name string, sweep func(context.Context) (int64, error)) {
	n, err := sweep(ctx)
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "sweep", name, "error", err)
		return
	}
	s.logger.Info(ctx, "sweep done", "sweep", name, "deleted", n)
}
