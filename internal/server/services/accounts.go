package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/dbx"
	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

// forbiddenNameChars may not appear in usernames; they would need escaping in URLs.
const forbiddenNameChars = ";/?:@&=+$,#*[]{}()^|"

// AccountInfo is the account summary shown to its owner.
type AccountInfo struct {
	UserName      string
	Email         *string
	Salt          *string
	Balance       int64
	Funded        bool
	Metering      bool
	RemainingDays float64
}

// AccountService handles signup, login and account maintenance.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
	ledger      *LedgerService
	hasher      PasswordHasher
	logger      logging.Logger
	now         func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionService,
	ledger *LedgerService, hasher PasswordHasher, l logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		sessions:    sessions,
		ledger:      ledger,
		hasher:      hasher,
		logger:      l.With("module", "accounts"),
		now:         time.Now,
	}
}

// ValidateUserName rejects empty names and names with reserved characters.
func ValidateUserName(name string) error {
	if name == "" || strings.ContainsAny(name, forbiddenNameChars) {
		return common.ErrorInvalidInput
	}
	return nil
}

// Signup creates the account and opens its first metering session in one
// transaction. Names are unique regardless of case.
func (s *AccountService) Signup(ctx context.Context, name, password string, email *string) (*models.User, error) {
	if err := ValidateUserName(name); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, common.ErrorInvalidInput
	}

	exists, err := s.repomanager.Users(s.db).ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrorConflict
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{UserName: name, PasswordHash: hash, Email: email})
		if err != nil {
			return err
		}
		start := &models.UsageEvent{UserID: u.ID, Kind: models.EventSessionStart, OccurredAt: s.now()}
		if err := s.repomanager.UsageEvents(tx).Append(ctx, start); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, name, password string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetActiveByName(ctx, name)
	if err != nil {
		return "", hideNotFound(err)
	}
	if err := s.checkPassword(password, user.PasswordHash); err != nil {
		return "", err
	}
	return s.sessions.Issue(ctx, user.ID)
}

// Logout revokes the presented token. It always succeeds for unknown tokens.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// InvalidateSessions revokes every session of the user after re-checking credentials.
func (s *AccountService) InvalidateSessions(ctx context.Context, id models.Identity, name, password string) error {
	if _, err := s.reauthenticate(ctx, id, name, password); err != nil {
		return err
	}
	return s.sessions.RevokeAll(ctx, id.UserID)
}

func (s *AccountService) ChangePassword(ctx context.Context, id models.Identity, name, password, newPassword string) error {
	if newPassword == "" {
		return common.ErrorInvalidInput
	}
	if _, err := s.reauthenticate(ctx, id, name, password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	return hideNotFound(s.repomanager.Users(s.db).UpdatePassword(ctx, id.UserID, hash))
}

// StoreSalt saves the client-side key derivation salt.
func (s *AccountService) StoreSalt(ctx context.Context, id models.Identity, salt string) error {
	if salt == "" {
		return common.ErrorInvalidInput
	}
	return hideNotFound(s.repomanager.Users(s.db).UpdateSalt(ctx, id.UserID, salt))
}

func (s *AccountService) Info(ctx context.Context, id models.Identity) (*AccountInfo, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID)
	if err != nil {
		return nil, hideNotFound(err)
	}
	b, err := s.ledger.ComputeBalance(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{
		UserName:      user.UserName,
		Email:         user.Email,
		Salt:          user.Salt,
		Balance:       b.Balance,
		Funded:        b.IsFunded,
		Metering:      b.Metering,
		RemainingDays: remainingDays(b.Balance, s.ledger.Params().HourlyCost),
	}, nil
}

// DeleteAccount purges the user's shares, notes and sessions and closes the
// account, all or nothing. Usage events are kept.
func (s *AccountService) DeleteAccount(ctx context.Context, id models.Identity, name, password string) error {
	if _, err := s.reauthenticate(ctx, id, name, password); err != nil {
		return err
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Shares(tx).DeleteAllForUser(ctx, id.UserID); err != nil {
			return err
		}
		if _, err := s.repomanager.Notes(tx).DeleteAllForUser(ctx, id.UserID); err != nil {
			return err
		}
		if _, err := s.repomanager.AuthTokens(tx).DeleteAllForUser(ctx, id.UserID); err != nil {
			return err
		}
		return hideNotFound(s.repomanager.Users(tx).SoftDelete(ctx, id.UserID, s.now()))
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "account deleted", "user_id", id.UserID)
	return nil
}

// --- helpers below ---

// reauthenticate checks that name/password belong to the session's user.
func (s *AccountService) reauthenticate(ctx context.Context, id models.Identity, name, password string) (*models.User, error) {
	if name != id.UserName {
		return nil, common.ErrorUnauthorized
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID)
	if err != nil {
		return nil, hideNotFound(err)
	}
	if err := s.checkPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) checkPassword(password, hash string) error {
	ok, err := s.hasher.Verify(password, hash)
	if err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}

func remainingDays(balance, hourlyCost int64) float64 {
	if balance <= 0 || hourlyCost <= 0 {
		return 0
	}
	return float64(balance) / float64(24*hourlyCost)
}
