package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

// LedgerParams are the pricing constants of the usage ledger, in micro-CHF.
type LedgerParams struct {
	DefaultBalance  int64
	HourlyCost      int64
	FundedThreshold int64
}

// LedgerParamsFromConfig extracts the ledger constants from server config.
func LedgerParamsFromConfig(cfg *config.Config) LedgerParams {
	return LedgerParams{
		DefaultBalance:  cfg.DefaultBalance,
		HourlyCost:      cfg.HourlyCost,
		FundedThreshold: cfg.FundedThreshold,
	}
}

// Replay folds an ordered event stream into a balance. A session still open
// at the end of the stream accrues cost up to now. Two starts in a row, or a
// pause without an open start, is a ViolatedAssertion.
func Replay(events []models.UsageEvent, now time.Time, p LedgerParams) (models.Balance, error) {
	var credit, debit int64
	var openStart *time.Time

	for i := range events {
		e := events[i]
		switch e.Kind {
		case models.EventFundsAdded:
			if e.Amount == nil {
				return models.Balance{}, common.Assertionf("funds-added event at %s without amount", e.OccurredAt)
			}
			credit += *e.Amount
		case models.EventSessionStart:
			if openStart != nil {
				return models.Balance{}, common.Assertionf("session-start at %s while a session is open since %s",
					e.OccurredAt, *openStart)
			}
			at := e.OccurredAt
			openStart = &at
		case models.EventSessionPause:
			if openStart == nil {
				return models.Balance{}, common.Assertionf("session-pause at %s without an open session", e.OccurredAt)
			}
			debit += wholeHours(*openStart, e.OccurredAt) * p.HourlyCost
			openStart = nil
		default:
			return models.Balance{}, common.Assertionf("unknown usage event kind %q", e.Kind)
		}
	}

	if openStart != nil {
		debit += wholeHours(*openStart, now) * p.HourlyCost
	}

	balance := p.DefaultBalance + credit - debit
	return models.Balance{
		Balance:  balance,
		// a balance exactly at the threshold is underfunded
		IsFunded: balance > p.FundedThreshold,
		Metering: openStart != nil,
	}, nil
}

// wholeHours is the number of complete hours in [from, to], never negative.
func wholeHours(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Hour)
}

// LedgerService recomputes balances from the usage event log on every call.
type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	params      LedgerParams
	now         func() time.Time
}

func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:          db,
		repomanager: m,
		params:      LedgerParamsFromConfig(cfg),
		now:         time.Now,
	}
}

func (s *LedgerService) Params() LedgerParams { return s.params }

// ComputeBalance replays the user's events as of now. It has no side effects.
func (s *LedgerService) ComputeBalance(ctx context.Context, userID int64) (models.Balance, error) {
	events, err := s.repomanager.UsageEvents(s.db).ListForUser(ctx, userID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("error loading usage events: %w", err)
	}
	return Replay(events, s.now(), s.params)
}
