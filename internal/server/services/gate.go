package services

import (
	"context"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/server/models"
)

// BalanceComputer is the part of the ledger the funding gate needs.
type BalanceComputer interface {
	ComputeBalance(ctx context.Context, userID int64) (models.Balance, error)
}

// FundingGate denies content-creating writes to underfunded users.
// Reads, deletes and logout never pass through it.
type FundingGate struct {
	ledger BalanceComputer
}

func NewFundingGate(ledger BalanceComputer) *FundingGate {
	return &FundingGate{ledger: ledger}
}

// Check returns ErrorUnderfunded when the user's balance is at or below the
// funded threshold.
func (g *FundingGate) Check(ctx context.Context, id models.Identity) error {
	b, err := g.ledger.ComputeBalance(ctx, id.UserID)
	if err != nil {
		return err
	}
	if !b.IsFunded {
		return common.ErrorUnderfunded
	}
	return nil
}

// Run executes fn only if the user is funded.
func (g *FundingGate) Run(ctx context.Context, id models.Identity, fn func(ctx context.Context) error) error {
	if err := g.Check(ctx, id); err != nil {
		return err
	}
	return fn(ctx)
}
