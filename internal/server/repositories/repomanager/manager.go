package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/textli/internal/server/repositories/notes"
	"github.com/dmitrijs2005/textli/internal/server/repositories/shares"
	"github.com/dmitrijs2005/textli/internal/server/repositories/usageevents"
	"github.com/dmitrijs2005/textli/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code runs
// against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	AuthTokens(db dbx.DBTX) authtokens.Repository
	UsageEvents(db dbx.DBTX) usageevents.Repository
	Notes(db dbx.DBTX) notes.Repository
	Shares(db dbx.DBTX) shares.Repository
}
