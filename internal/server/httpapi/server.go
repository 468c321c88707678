// Package httpapi is the JSON-over-HTTP surface of the server. Handlers are
// thin: they decode the request, call a service and map its sentinel error to
// a status code exactly once.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Sessions interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
	Expiry() time.Duration
}

type Accounts interface {
	Signup(ctx context.Context, name, password string, email *string) (*models.User, error)
	Login(ctx context.Context, name, password string) (string, error)
	Logout(ctx context.Context, token string) error
	InvalidateSessions(ctx context.Context, id models.Identity, name, password string) error
	ChangePassword(ctx context.Context, id models.Identity, name, password, newPassword string) error
	StoreSalt(ctx context.Context, id models.Identity, salt string) error
	Info(ctx context.Context, id models.Identity) (*services.AccountInfo, error)
	DeleteAccount(ctx context.Context, id models.Identity, name, password string) error
}

type Notes interface {
	Create(ctx context.Context, id models.Identity, c models.NoteContent) (*models.Note, error)
	Update(ctx context.Context, id models.Identity, token string, c models.NoteContent) (time.Time, error)
	Get(ctx context.Context, id models.Identity, token string) (*models.Note, error)
	List(ctx context.Context, id models.Identity, includeDeleted bool) ([]models.Note, error)
	SoftDelete(ctx context.Context, id models.Identity, token string) error
	Undelete(ctx context.Context, id models.Identity, token string) (*models.Note, error)
}

type Shares interface {
	Create(ctx context.Context, id models.Identity, req services.ShareRequest) (*models.Share, error)
	Access(ctx context.Context, token string) (*models.SharedNote, error)
	List(ctx context.Context, id models.Identity) ([]models.Share, error)
	Delete(ctx context.Context, id models.Identity, token string) error
	ListPublications(ctx context.Context, userName string) ([]models.Publication, error)
}

type Metering interface {
	Start(ctx context.Context, id models.Identity) error
	Pause(ctx context.Context, id models.Identity) error
	AddFunds(ctx context.Context, userID int64, amount int64) error
}

type Exporter interface {
	Export(ctx context.Context, id models.Identity) (*services.ExportResult, error)
}

// Services bundles the collaborators the handlers dispatch to.
type Services struct {
	Sessions Sessions
	Accounts Accounts
	Notes    Notes
	Shares   Shares
	Metering Metering
	Export   Exporter
}

type Server struct {
	address       string
	svc           Services
	allowOrigin   string
	secureCookies bool
	adminSecret   []byte
	limiter       *ipLimiter
	logger        logging.Logger
	handler       http.Handler
}

func NewServer(cfg *config.Config, svc Services, l logging.Logger) *Server {
	s := &Server{
		address:       cfg.HTTPAddr,
		svc:           svc,
		allowOrigin:   cfg.AllowOrigin,
		secureCookies: cfg.SecureCookies,
		adminSecret:   []byte(cfg.AdminSecretKey),
		limiter:       newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:        l.With("module", "http_server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.limiter.startCleanup(ctx, time.Hour)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(sctx, "http shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
