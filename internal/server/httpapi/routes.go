package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.allowOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Anonymous
	r.Group(func(r chi.Router) {
		r.With(s.rateLimit).Post("/user", s.signup)
		r.With(s.rateLimit).Post("/session", s.login)
		r.Get("/shares/{token}", s.accessShare)
		r.Get("/publications/{username}", s.listPublications)
	})

	// Session cookie required
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/user", s.userInfo)
		r.Delete("/user", s.deleteUser)
		r.Put("/user/password", s.changePassword)
		r.Put("/user/salt", s.storeSalt)

		r.Delete("/session", s.logout)
		r.Delete("/sessions", s.invalidateSessions)

		r.Post("/metering/start", s.startMetering)
		r.Post("/metering/pause", s.pauseMetering)

		r.Get("/notes", s.listNotes)
		r.Post("/notes", s.createNote)
		r.Get("/notes/{token}", s.getNote)
		r.Put("/notes/{token}", s.updateNote)
		r.Delete("/notes/{token}", s.deleteNote)
		r.Put("/notes/undelete/{token}", s.undeleteNote)

		r.Get("/shares", s.listShares)
		r.Post("/shares", s.createShare)
		r.Delete("/shares/{token}", s.deleteShare)

		r.Post("/export", s.export)
	})

	// Billing system
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/admin/funds", s.addFunds)
	})

	return r
}
