package sweeper

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/textli/internal/server/repositories/notes"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/textli/internal/server/repositories/shares"
	"github.com/dmitrijs2005/textli/internal/server/repositories/usageevents"
	"github.com/dmitrijs2005/textli/internal/server/repositories/users"
)

var now = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

// tokenStore keeps tokens in memory and applies the same strict predicate
// as the SQL repository.
type tokenStore struct {
	authtokens.Repository
	mu      sync.Mutex
	created map[string]time.Time
	errs    []error
	calls   int
}

func (s *tokenStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	var n int64
	for tok, at := range s.created {
		if at.Before(cutoff) {
			delete(s.created, tok)
			n++
		}
	}
	return n, nil
}

func (s *tokenStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type noteStore struct {
	notes.Repository
	deleted map[string]*time.Time
}

func (s *noteStore) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for tok, at := range s.deleted {
		if at != nil && at.Before(cutoff) {
			delete(s.deleted, tok)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	tokens *tokenStore
	notes  *noteStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return nil }
func (m *fakeRepoManager) AuthTokens(dbx.DBTX) authtokens.Repository    { return m.tokens }
func (m *fakeRepoManager) UsageEvents(dbx.DBTX) usageevents.Repository  { return nil }
func (m *fakeRepoManager) Notes(dbx.DBTX) notes.Repository              { return m.notes }
func (m *fakeRepoManager) Shares(dbx.DBTX) shares.Repository            { return nil }

func newFakeSweeper(t *testing.T, m repomanager.RepositoryManager, l logging.Logger) *Sweeper {
	t.Helper()
	s := NewSweeper(nil, m, testConfig(), l)
	s.now = func() time.Time { return now }
	return s
}

func TestSweepTokens_Boundary(t *testing.T) {
	expiry := testConfig().SessionExpiry
	tokens := &tokenStore{created: map[string]time.Time{
		"stale":    now.Add(-(expiry + time.Second)),
		"boundary": now.Add(-expiry),
		"fresh":    now,
	}}
	s := newFakeSweeper(t, &fakeRepoManager{tokens: tokens}, logging.Nop{})

	n, err := s.SweepTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NotContains(t, tokens.created, "stale")
	assert.Contains(t, tokens.created, "boundary")
	assert.Contains(t, tokens.created, "fresh")

	// a second sweep is a no-op
	n, err = s.SweepTokens(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurgeNotes_OnlyExpiredSoftDeleted(t *testing.T) {
	retention := testConfig().NoteRetention
	old := now.Add(-(retention + time.Minute))
	recent := now.Add(-time.Hour)
	ns := &noteStore{deleted: map[string]*time.Time{
		"purged": &old,
		"recent": &recent,
		"active": nil,
	}}
	s := newFakeSweeper(t, &fakeRepoManager{notes: ns}, logging.Nop{})

	n, err := s.PurgeNotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NotContains(t, ns.deleted, "purged")
	assert.Contains(t, ns.deleted, "recent")
	assert.Contains(t, ns.deleted, "active")
}

func TestSweeper_PostgresCutoffs(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	s := NewSweeper(db, repomanager.NewPostgresRepositoryManager(), cfg, logging.Nop{})
	s.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM auth_tokens")).
		WithArgs(now.Add(-cfg.SessionExpiry)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes")).
		WithArgs(now.Add(-cfg.NoteRetention)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.SweepTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.PurgeNotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (w *syncBuffer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

func (w *syncBuffer) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.String()
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	tokens := &tokenStore{
		created: map[string]time.Time{"stale": now.Add(-365 * 24 * time.Hour)},
		errs:    []error{errors.New("connection reset")},
	}
	var out syncBuffer
	s := newFakeSweeper(t, &fakeRepoManager{tokens: tokens, notes: &noteStore{}}, logging.NewJSON(&out, "info"))
	s.tokenSweepInterval = 5 * time.Millisecond
	s.noteSweepInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()

	require.Eventually(t, func() bool { return tokens.callCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	logs := out.String()
	assert.True(t, strings.Contains(logs, `"msg":"sweep failed"`), logs)
	assert.True(t, strings.Contains(logs, "connection reset"), logs)
	assert.True(t, strings.Contains(logs, `"deleted":1`), logs)
}
