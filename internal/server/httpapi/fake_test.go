package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/services"
)

const validToken = "valid-session-token"

var (
	t0    = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	alice = models.Identity{UserID: 7, UserName: "alice"}
)

type fakeSessions struct{}

func (fakeSessions) Authenticate(_ context.Context, token string) (*models.Identity, error) {
	if token != validToken {
		return nil, common.ErrorUnauthorized
	}
	id := alice
	return &id, nil
}

func (fakeSessions) Expiry() time.Duration { return 8 * 7 * 24 * time.Hour }

// fakeAccounts records the last call and returns err.
type fakeAccounts struct {
	err       error
	lastName  string
	lastToken string
	info      *services.AccountInfo
}

func (f *fakeAccounts) Signup(_ context.Context, name, _ string, _ *string) (*models.User, error) {
	f.lastName = name
	return &models.User{ID: 1, UserName: name}, f.err
}

func (f *fakeAccounts) Login(_ context.Context, name, _ string) (string, error) {
	f.lastName = name
	if f.err != nil {
		return "", f.err
	}
	return "issued-token", nil
}

func (f *fakeAccounts) Logout(_ context.Context, token string) error {
	f.lastToken = token
	return f.err
}

func (f *fakeAccounts) InvalidateSessions(_ context.Context, _ models.Identity, name, _ string) error {
	f.lastName = name
	return f.err
}

func (f *fakeAccounts) ChangePassword(_ context.Context, _ models.Identity, name, _, _ string) error {
	f.lastName = name
	return f.err
}

func (f *fakeAccounts) StoreSalt(context.Context, models.Identity, string) error { return f.err }

func (f *fakeAccounts) Info(context.Context, models.Identity) (*services.AccountInfo, error) {
	return f.info, f.err
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, _ models.Identity, name, _ string) error {
	f.lastName = name
	return f.err
}

type fakeNotes struct {
	err         error
	notes       map[string]*models.Note
	lastDeleted bool
}

func (f *fakeNotes) Create(_ context.Context, id models.Identity, c models.NoteContent) (*models.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := &models.Note{Token: "note1", UserID: id.UserID, CreatedAt: t0, ModifiedAt: t0,
		Metadata: c.Metadata, Key: c.Key, Content: c.Content}
	f.notes[n.Token] = n
	return n, nil
}

func (f *fakeNotes) Update(_ context.Context, _ models.Identity, token string, c models.NoteContent) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	n, ok := f.notes[token]
	if !ok {
		return time.Time{}, common.ErrorUnauthorized
	}
	n.Content = c.Content
	n.ModifiedAt = t0.Add(time.Minute)
	return n.ModifiedAt, nil
}

func (f *fakeNotes) Get(_ context.Context, _ models.Identity, token string) (*models.Note, error) {
	n, ok := f.notes[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return n, nil
}

func (f *fakeNotes) List(_ context.Context, _ models.Identity, includeDeleted bool) ([]models.Note, error) {
	f.lastDeleted = includeDeleted
	out := []models.Note{}
	for _, n := range f.notes {
		if (n.DeletedAt != nil) == includeDeleted {
			out = append(out, *n)
		}
	}
	return out, f.err
}

func (f *fakeNotes) SoftDelete(_ context.Context, _ models.Identity, token string) error {
	if _, ok := f.notes[token]; !ok {
		return common.ErrorUnauthorized
	}
	return f.err
}

func (f *fakeNotes) Undelete(ctx context.Context, id models.Identity, token string) (*models.Note, error) {
	return f.Get(ctx, id, token)
}

type fakeShares struct {
	err     error
	lastReq services.ShareRequest
	views   int64
}

func (f *fakeShares) Create(_ context.Context, id models.Identity, req services.ShareRequest) (*models.Share, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Share{Token: "share1", NoteToken: req.NoteToken, UserID: id.UserID, CreatedAt: t0, Public: req.Public}, nil
}

func (f *fakeShares) Access(_ context.Context, token string) (*models.SharedNote, error) {
	if token != "share1" {
		return nil, common.ErrorUnauthorized
	}
	f.views++
	return &models.SharedNote{CreatedAt: t0, ModifiedAt: t0, Content: "blob", ViewCount: f.views}, nil
}

func (f *fakeShares) List(context.Context, models.Identity) ([]models.Share, error) {
	return []models.Share{{Token: "share1", NoteToken: "note1", CreatedAt: t0, ViewCount: 3}}, f.err
}

func (f *fakeShares) Delete(context.Context, models.Identity, string) error { return f.err }

func (f *fakeShares) ListPublications(_ context.Context, userName string) ([]models.Publication, error) {
	if userName != "alice" {
		return []models.Publication{}, nil
	}
	return []models.Publication{{Token: "share1", Public: "blog", CreatedAt: t0, ModifiedAt: t0}}, nil
}

type fakeMetering struct {
	err        error
	started    int
	paused     int
	lastUserID int64
	lastAmount int64
}

func (f *fakeMetering) Start(context.Context, models.Identity) error {
	f.started++
	return f.err
}

func (f *fakeMetering) Pause(context.Context, models.Identity) error {
	f.paused++
	return f.err
}

func (f *fakeMetering) AddFunds(_ context.Context, userID int64, amount int64) error {
	f.lastUserID, f.lastAmount = userID, amount
	return f.err
}

type fakeExporter struct {
	err error
}

func (f *fakeExporter) Export(context.Context, models.Identity) (*services.ExportResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ExportResult{Key: "exports/2024/6/3/x.json", URL: "https://s3.local/x", Notes: 2, ExpiresAt: t0}, nil
}

type fixture struct {
	srv      *Server
	cfg      *config.Config
	accounts *fakeAccounts
	notes    *fakeNotes
	shares   *fakeShares
	metering *fakeMetering
	exporter *fakeExporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 100

	f := &fixture{
		cfg:      cfg,
		accounts: &fakeAccounts{},
		notes:    &fakeNotes{notes: map[string]*models.Note{}},
		shares:   &fakeShares{},
		metering: &fakeMetering{},
		exporter: &fakeExporter{},
	}
	f.srv = NewServer(cfg, Services{
		Sessions: fakeSessions{},
		Accounts: f.accounts,
		Notes:    f.notes,
		Shares:   f.shares,
		Metering: f.metering,
		Export:   f.exporter,
	}, logging.Nop{})
	return f
}

// do sends a request through the router; a non-empty token is sent as the
// session cookie.
func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}
