package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
)

// microPerCHF converts ledger amounts to francs for display.
const microPerCHF = 1_000_000

type signupRequest struct {
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
}

type credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	PasswordNew string `json:"password_new"`
}

type saltRequest struct {
	Salt string `json:"salt"`
}

type userInfoResponse struct {
	UserName      string  `json:"username"`
	Email         *string `json:"email"`
	Salt          *string `json:"salt"`
	Balance       float64 `json:"balance"`
	Funded        bool    `json:"funded"`
	Metering      bool    `json:"metering"`
	RemainingDays float64 `json:"remaining_days"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.svc.Accounts.Signup(r.Context(), req.Name, req.Password, req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.svc.Accounts.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, token, s.svc.Sessions.Expiry())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Accounts.Logout(r.Context(), tokenFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) invalidateSessions(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Accounts.InvalidateSessions(r.Context(), identityFrom(r.Context()), req.Name, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.PasswordNew == "" {
		s.writeError(w, r, common.ErrorInvalidInput)
		return
	}

	if err := s.svc.Accounts.ChangePassword(r.Context(), identityFrom(r.Context()), req.Name, req.Password, req.PasswordNew); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) storeSalt(w http.ResponseWriter, r *http.Request) {
	var req saltRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Accounts.StoreSalt(r.Context(), identityFrom(r.Context()), req.Salt); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) userInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Accounts.Info(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, userInfoResponse{
		UserName:      info.UserName,
		Email:         info.Email,
		Salt:          info.Salt,
		Balance:       float64(info.Balance) / microPerCHF,
		Funded:        info.Funded,
		Metering:      info.Metering,
		RemainingDays: info.RemainingDays,
	})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Accounts.DeleteAccount(r.Context(), identityFrom(r.Context()), req.Name, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) startMetering(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Metering.Start(r.Context(), identityFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) pauseMetering(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Metering.Pause(r.Context(), identityFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type exportResponse struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Notes     int       `json:"notes"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Export.Export(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, exportResponse{
		URL:       res.URL,
		Key:       res.Key,
		Notes:     res.Notes,
		ExpiresAt: res.ExpiresAt,
	})
}
