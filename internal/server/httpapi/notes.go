package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/textli/internal/server/models"
)

type noteRequest struct {
	Metadata string `json:"metadata"`
	Key      string `json:"key"`
	Content  string `json:"content"`
}

func (n noteRequest) content() models.NoteContent {
	return models.NoteContent{Metadata: n.Metadata, Key: n.Key, Content: n.Content}
}

type noteCreatedResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

type noteUpdatedResponse struct {
	ID         string    `json:"id"`
	ModifiedAt time.Time `json:"modified_at"`
}

type noteResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Metadata   string    `json:"metadata"`
	Key        string    `json:"key"`
	Content    string    `json:"content"`
}

// listedNote omits the content; deleted_at is set only in the deleted view.
type listedNote struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	Metadata   string     `json:"metadata"`
	Key        string     `json:"key"`
}

func toNoteResponse(n *models.Note) noteResponse {
	return noteResponse{
		ID:         n.Token,
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Metadata:   n.Metadata,
		Key:        n.Key,
		Content:    n.Content,
	}
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	_, deleted := r.URL.Query()["deleted"]

	notes, err := s.svc.Notes.List(r.Context(), identityFrom(r.Context()), deleted)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]listedNote, 0, len(notes))
	for _, n := range notes {
		out = append(out, listedNote{
			ID:         n.Token,
			CreatedAt:  n.CreatedAt,
			ModifiedAt: n.ModifiedAt,
			DeletedAt:  n.DeletedAt,
			Metadata:   n.Metadata,
			Key:        n.Key,
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.svc.Notes.Create(r.Context(), identityFrom(r.Context()), req.content())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, noteCreatedResponse{ID: n.Token, CreatedAt: n.CreatedAt, ModifiedAt: n.ModifiedAt})
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Notes.Get(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, toNoteResponse(n))
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token := chi.URLParam(r, "token")
	modified, err := s.svc.Notes.Update(r.Context(), identityFrom(r.Context()), token, req.content())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, noteUpdatedResponse{ID: token, ModifiedAt: modified})
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notes.SoftDelete(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "token")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) undeleteNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Notes.Undelete(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, toNoteResponse(n))
}
