package httpapi

import "net/http"

type addFundsRequest struct {
	UserID int64 `json:"user_id"`
	// Amount is in micro-CHF.
	Amount int64 `json:"amount"`
}

func (s *Server) addFunds(w http.ResponseWriter, r *http.Request) {
	var req addFundsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Metering.AddFunds(r.Context(), req.UserID, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
