package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/textli/internal/common"
)

// maxBodyBytes caps request bodies; notes are the largest payloads.
const maxBodyBytes = 8 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "error encoding response", "error", err)
	}
}

// writeError maps a service error to its status code. Internal failures are
// logged in full and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	rid := requestIDFrom(ctx)

	var status int
	switch {
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrorNotFound):
		status = http.StatusUnauthorized
		s.logger.Info(ctx, "unauthorized", "request_id", rid, "path", r.URL.Path)
	case errors.Is(err, common.ErrorUnderfunded):
		status = http.StatusPaymentRequired
		s.logger.Warn(ctx, "underfunded", "request_id", rid, "path", r.URL.Path)
	case errors.Is(err, common.ErrorConflict):
		status = http.StatusConflict
		s.logger.Info(ctx, "conflict", "request_id", rid, "path", r.URL.Path)
	case errors.Is(err, common.ErrorInvalidInput):
		status = http.StatusBadRequest
		s.logger.Info(ctx, "invalid input", "request_id", rid, "path", r.URL.Path, "error", err)
	default:
		status = http.StatusInternalServerError
		s.logger.Error(ctx, "internal error", "request_id", rid, "path", r.URL.Path, "error", err)
	}

	http.Error(w, http.StatusText(status), status)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
