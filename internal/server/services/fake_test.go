package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/textli/internal/server/repositories/notes"
	"github.com/dmitrijs2005/textli/internal/server/repositories/shares"
	"github.com/dmitrijs2005/textli/internal/server/repositories/usageevents"
	"github.com/dmitrijs2005/textli/internal/server/repositories/users"
)

// --- helpers ---

var t0 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = 4
	return cfg
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for the database behind every repository.
// It ignores transactions; atomicity is covered by the dbx tests.
type memStore struct {
	mu sync.Mutex

	users      map[int64]*models.User
	nextUserID int64
	tokens     map[string]models.AuthToken
	events     []models.UsageEvent
	notes      map[string]*models.Note
	shares     map[string]*models.Share

	// fail injects errors by "repo.Method" name.
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]*models.User{},
		tokens: map[string]models.AuthToken{},
		notes:  map[string]*models.Note{},
		shares: map[string]*models.Share{},
		fail:   map[string]error{},
	}
}

func (s *memStore) failure(name string) error { return s.fail[name] }

func (s *memStore) addUser(name string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &models.User{ID: s.nextUserID, UserName: name, PasswordHash: "hash:" + name, CreatedAt: t0}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addEvent(userID int64, kind models.EventKind, at time.Time, amount ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := models.UsageEvent{UserID: userID, Kind: kind, OccurredAt: at}
	if len(amount) > 0 {
		a := amount[0]
		e.Amount = &a
	}
	s.events = append(s.events, e)
}

func (s *memStore) noteCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, note := range s.notes {
		if note.UserID == userID {
			n++
		}
	}
	return n
}

type fakeRepoManager struct {
	s *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return &memUsers{m.s} }
func (m *fakeRepoManager) AuthTokens(dbx.DBTX) authtokens.Repository    { return &memTokens{m.s} }
func (m *fakeRepoManager) UsageEvents(dbx.DBTX) usageevents.Repository  { return &memEvents{m.s} }
func (m *fakeRepoManager) Notes(dbx.DBTX) notes.Repository              { return &memNotes{m.s} }
func (m *fakeRepoManager) Shares(dbx.DBTX) shares.Repository            { return &memShares{m.s} }

// --- users ---

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if err := r.s.failure("users.Create"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.UserName, u.UserName) {
			return nil, common.ErrorConflict
		}
	}
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	u.CreatedAt = t0
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r *memUsers) ExistsByName(_ context.Context, name string) (bool, error) {
	if err := r.s.failure("users.ExistsByName"); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.UserName, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUsers) GetActiveByName(_ context.Context, name string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.UserName == name && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if err := r.s.failure("users.GetByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) LockForUpdate(ctx context.Context, id int64) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *memUsers) update(id int64, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (r *memUsers) UpdateSalt(_ context.Context, id int64, salt string) error {
	return r.update(id, func(u *models.User) { u.Salt = &salt })
}

func (r *memUsers) SoftDelete(_ context.Context, id int64, now time.Time) error {
	if err := r.s.failure("users.SoftDelete"); err != nil {
		return err
	}
	return r.update(id, func(u *models.User) { u.DeletedAt = &now })
}

// --- tokens ---

type memTokens struct{ s *memStore }

func (r *memTokens) Create(_ context.Context, token string, userID int64, createdAt time.Time) error {
	if err := r.s.failure("tokens.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	name := ""
	if u, ok := r.s.users[userID]; ok {
		name = u.UserName
	}
	r.s.tokens[token] = models.AuthToken{Token: token, UserID: userID, UserName: name, CreatedAt: createdAt}
	return nil
}

func (r *memTokens) Find(_ context.Context, token string) (*models.AuthToken, error) {
	if err := r.s.failure("tokens.Find"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u, ok := r.s.users[t.UserID]; ok && u.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *memTokens) Delete(_ context.Context, token string) error {
	if err := r.s.failure("tokens.Delete"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

func (r *memTokens) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memTokens) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if err := r.s.failure("tokens.DeleteCreatedBefore"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.CreatedAt.Before(cutoff) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- usage events ---

type memEvents struct{ s *memStore }

func (r *memEvents) Append(_ context.Context, e *models.UsageEvent) error {
	if err := r.s.failure("events.Append"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r *memEvents) ListForUser(_ context.Context, userID int64) ([]models.UsageEvent, error) {
	if err := r.s.failure("events.ListForUser"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.UsageEvent
	for _, e := range r.s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *memEvents) LastSessionKind(ctx context.Context, userID int64) (models.EventKind, bool, error) {
	events, err := r.ListForUser(ctx, userID)
	if err != nil {
		return "", false, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind != models.EventFundsAdded {
			return events[i].Kind, true, nil
		}
	}
	return "", false, nil
}

// --- notes ---

type memNotes struct{ s *memStore }

func (r *memNotes) Create(_ context.Context, n *models.Note) error {
	if err := r.s.failure("notes.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[n.Token]; ok {
		return common.ErrorConflict
	}
	cp := *n
	r.s.notes[n.Token] = &cp
	return nil
}

// owned returns the user's note matching the deleted filter, or nil.
func (r *memNotes) owned(userID int64, token string, deleted bool) *models.Note {
	n, ok := r.s.notes[token]
	if !ok || n.UserID != userID || (n.DeletedAt != nil) != deleted {
		return nil
	}
	return n
}

func (r *memNotes) Update(_ context.Context, userID int64, token string, c models.NoteContent, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.owned(userID, token, false)
	if n == nil {
		return common.ErrorNotFound
	}
	n.Metadata, n.Key, n.Content, n.ModifiedAt = c.Metadata, c.Key, c.Content, now
	return nil
}

func (r *memNotes) Get(_ context.Context, userID int64, token string) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.owned(userID, token, false)
	if n == nil {
		return nil, common.ErrorNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memNotes) list(userID int64, deleted, withContent bool) []models.Note {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Note{}
	for _, n := range r.s.notes {
		if n.UserID == userID && (n.DeletedAt != nil) == deleted {
			cp := *n
			if !withContent {
				cp.Content = ""
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func (r *memNotes) ListActive(_ context.Context, userID int64) ([]models.Note, error) {
	return r.list(userID, false, false), nil
}

func (r *memNotes) ListDeleted(_ context.Context, userID int64) ([]models.Note, error) {
	return r.list(userID, true, false), nil
}

func (r *memNotes) ListAllActive(_ context.Context, userID int64) ([]models.Note, error) {
	if err := r.s.failure("notes.ListAllActive"); err != nil {
		return nil, err
	}
	return r.list(userID, false, true), nil
}

func (r *memNotes) SoftDelete(_ context.Context, userID int64, token string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.owned(userID, token, false)
	if n == nil {
		return common.ErrorNotFound
	}
	n.DeletedAt = &now
	return nil
}

func (r *memNotes) Undelete(_ context.Context, userID int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.owned(userID, token, true)
	if n == nil {
		return common.ErrorNotFound
	}
	n.DeletedAt = nil
	return nil
}

func (r *memNotes) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if err := r.s.failure("notes.PurgeDeletedBefore"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, note := range r.s.notes {
		if note.DeletedAt != nil && note.DeletedAt.Before(cutoff) {
			delete(r.s.notes, k)
			n++
		}
	}
	return n, nil
}

func (r *memNotes) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	if err := r.s.failure("notes.DeleteAllForUser"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, note := range r.s.notes {
		if note.UserID == userID {
			delete(r.s.notes, k)
			n++
		}
	}
	return n, nil
}

// --- shares ---

type memShares struct{ s *memStore }

func (r *memShares) ExistsForNote(_ context.Context, userID int64, noteToken string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sh := range r.s.shares {
		if sh.NoteToken == noteToken && sh.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memShares) CreateForOwnedNote(_ context.Context, sh *models.Share) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[sh.NoteToken]
	if !ok || n.UserID != sh.UserID || n.DeletedAt != nil {
		return common.ErrorNotFound
	}
	for _, existing := range r.s.shares {
		if existing.NoteToken == sh.NoteToken {
			return common.ErrorConflict
		}
	}
	cp := *sh
	r.s.shares[sh.Token] = &cp
	return nil
}

func (r *memShares) FindExpiry(_ context.Context, token string) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return sh.ExpiresAt, nil
}

func (r *memShares) Access(_ context.Context, token string, now time.Time) (*models.SharedNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[token]
	if !ok || sh.Expired(now) {
		return nil, common.ErrorNotFound
	}
	n, ok := r.s.notes[sh.NoteToken]
	if !ok || n.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	sh.ViewCount++
	return &models.SharedNote{
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Metadata:   n.Metadata,
		Key:        n.Key,
		Content:    n.Content,
		ViewCount:  sh.ViewCount,
	}, nil
}

func (r *memShares) ListForUser(_ context.Context, userID int64) ([]models.Share, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Share{}
	for _, sh := range r.s.shares {
		if sh.UserID == userID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (r *memShares) Delete(_ context.Context, userID int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[token]
	if !ok || sh.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.s.shares, token)
	return nil
}

func (r *memShares) DeleteForNote(_ context.Context, userID int64, noteToken string) (int64, error) {
	if err := r.s.failure("shares.DeleteForNote"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, sh := range r.s.shares {
		if sh.NoteToken == noteToken && sh.UserID == userID {
			delete(r.s.shares, k)
			n++
		}
	}
	return n, nil
}

func (r *memShares) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, sh := range r.s.shares {
		if sh.UserID == userID {
			delete(r.s.shares, k)
			n++
		}
	}
	return n, nil
}

func (r *memShares) ListPublications(_ context.Context, userName string, now time.Time) ([]models.Publication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Publication{}
	for _, sh := range r.s.shares {
		u := r.s.users[sh.UserID]
		if u == nil || u.UserName != userName || sh.Public == nil || sh.Expired(now) {
			continue
		}
		n := r.s.notes[sh.NoteToken]
		out = append(out, models.Publication{
			Token: sh.Token, Public: *sh.Public, CreatedAt: n.CreatedAt,
			ModifiedAt: n.ModifiedAt, Metadata: n.Metadata, Key: n.Key,
		})
	}
	return out, nil
}

// --- service wiring ---

type testEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	clock    *fakeClock
	cfg      *config.Config
	sessions *SessionService
	ledger   *LedgerService
	gate     *FundingGate
	notes    *NoteService
	shares   *ShareService
	accounts *AccountService
	metering *MeteringService
}

// plainHasher stores "hash:<password>" to keep tests fast and readable.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error)    { return "hash:" + p, nil }
func (plainHasher) Verify(p, h string) (bool, error) { return h == "hash:"+p, nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := newMemStore()
	rm := &fakeRepoManager{s: store}
	clock := newFakeClock(t0)
	cfg := testConfig()
	l := logging.Nop{}

	sessions := NewSessionService(db, rm, cfg, l)
	sessions.now = clock.Now
	ledger := NewLedgerService(db, rm, cfg)
	ledger.now = clock.Now
	gate := NewFundingGate(ledger)
	noteSvc := NewNoteService(db, rm, gate)
	noteSvc.now = clock.Now
	shareSvc := NewShareService(db, rm, gate, l)
	shareSvc.now = clock.Now
	accounts := NewAccountService(db, rm, sessions, ledger, plainHasher{}, l)
	accounts.now = clock.Now
	metering := NewMeteringService(db, rm, l)
	metering.now = clock.Now

	return &testEnv{
		db: db, mock: mock, store: store, clock: clock, cfg: cfg,
		sessions: sessions, ledger: ledger, gate: gate, notes: noteSvc,
		shares: shareSvc, accounts: accounts, metering: metering,
	}
}

// fundedUser creates a user with an open metering session started now.
func (e *testEnv) fundedUser(name string) models.Identity {
	u := e.store.addUser(name)
	e.store.addEvent(u.ID, models.EventSessionStart, e.clock.Now())
	return models.Identity{UserID: u.ID, UserName: u.UserName}
}
