package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type Server struct{ mux *chi.Mux }

// New builds the router with the shared middleware stack. requestTimeout
// bounds every inbound request; zero means 15s.
func New(requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	m := chi.NewRouter()

	// middlewares must be registered before any route
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(RequestIDHeader)
	m.Use(Metrics)
	m.Use(Logger(log.Logger))
	m.Use(chimw.Recoverer)
	m.Use(Timeout(requestTimeout))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
