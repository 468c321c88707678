package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/textli/internal/server/services"
)

type createShareRequest struct {
	Note      string  `json:"note"`
	Public    *string `json:"public"`
	ExpiresIn *int64  `json:"expires_in"`
}

type shareResponse struct {
	Token     string     `json:"token"`
	Note      string     `json:"note"`
	Public    *string    `json:"public"`
	ViewCount int64      `json:"view_count"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type sharedNoteResponse struct {
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Metadata   string    `json:"metadata"`
	Key        string    `json:"key"`
	Content    string    `json:"content"`
	ViewCount  int64     `json:"view_count"`
}

type publicationResponse struct {
	Token      string    `json:"token"`
	Public     string    `json:"public"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Metadata   string    `json:"metadata"`
	Key        string    `json:"key"`
}

func (s *Server) createShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sh, err := s.svc.Shares.Create(r.Context(), identityFrom(r.Context()), services.ShareRequest{
		NoteToken:      req.Note,
		ExpiresInHours: req.ExpiresIn,
		Public:         req.Public,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, shareResponse{
		Token:     sh.Token,
		Note:      sh.NoteToken,
		Public:    sh.Public,
		ViewCount: sh.ViewCount,
		CreatedAt: sh.CreatedAt,
		ExpiresAt: sh.ExpiresAt,
	})
}

func (s *Server) accessShare(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Shares.Access(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, sharedNoteResponse{
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Metadata:   n.Metadata,
		Key:        n.Key,
		Content:    n.Content,
		ViewCount:  n.ViewCount,
	})
}

func (s *Server) listShares(w http.ResponseWriter, r *http.Request) {
	shares, err := s.svc.Shares.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]shareResponse, 0, len(shares))
	for _, sh := range shares {
		out = append(out, shareResponse{
			Token:     sh.Token,
			Note:      sh.NoteToken,
			Public:    sh.Public,
			ViewCount: sh.ViewCount,
			CreatedAt: sh.CreatedAt,
			ExpiresAt: sh.ExpiresAt,
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) deleteShare(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Shares.Delete(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "token")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listPublications(w http.ResponseWriter, r *http.Request) {
	pubs, err := s.svc.Shares.ListPublications(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]publicationResponse, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, publicationResponse{
			Token:      p.Token,
			Public:     p.Public,
			CreatedAt:  p.CreatedAt,
			ModifiedAt: p.ModifiedAt,
			Metadata:   p.Metadata,
			Key:        p.Key,
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}
