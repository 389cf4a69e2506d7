package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/shohag/nrfcloud/internal/storage"
)

// Server is a local stand-in for the nRF Cloud REST API, serving
// GET /v1/messages from a Storage.
type Server struct {
	token  string
	store  storage.Storage
	router *chi.Mux
	log    zerolog.Logger
}

func NewServer(token string, store storage.Storage, log zerolog.Logger) *Server {
	s := &Server{
		token: token,
		store: store,
		log:   log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	msgHandler := NewMessageHandler(s.store)

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(s.token))
		r.Get("/messages", msgHandler.List)
	})

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
