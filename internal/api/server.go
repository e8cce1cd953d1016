// Package api exposes the research platform over HTTP: theme scoring,
// company classification, regulations, documents, signals and research runs.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tpeters15/theme-score-nexus/internal/classify"
	"github.com/tpeters15/theme-score-nexus/internal/config"
	"github.com/tpeters15/theme-score-nexus/internal/docstore"
	"github.com/tpeters15/theme-score-nexus/internal/store"
)

// Server holds the dependencies for all HTTP handlers. Classifier may be nil
// when the server runs without API keys; the classify endpoint then returns
// 503.
type Server struct {
	store      store.Store
	docs       *docstore.Store
	classifier *classify.Classifier
	cfg        config.ServerConfig
}

// NewServer wires a Server.
func NewServer(st store.Store, docs *docstore.Store, classifier *classify.Classifier, cfg config.ServerConfig) *Server {
	return &Server{store: st, docs: docs, classifier: classifier, cfg: cfg}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)

		r.Route("/themes", func(r chi.Router) {
			r.Get("/", s.handleListThemes)
			r.Post("/", s.handleCreateTheme)
			r.Route("/{themeID}", func(r chi.Router) {
				r.Get("/", s.handleGetTheme)
				r.Put("/scores/{criterionID}", s.handleUpsertScore)
				r.Post("/scores", s.handleBulkScores)
				r.Get("/regulations", s.handleListThemeRegulations)
				r.Post("/regulations/{regulationID}", s.handleLinkRegulation)
				r.Get("/documents", s.handleListDocuments)
				r.Post("/documents", s.handleUploadDocument)
				r.Post("/research-runs", s.handleCreateResearchRun)
			})
		})

		r.Route("/regulations", func(r chi.Router) {
			r.Get("/", s.handleListRegulations)
			r.Post("/", s.handleCreateRegulation)
		})

		r.Get("/signals", s.handleListSignals)
		r.Post("/signals", s.handleCreateSignal)

		r.Route("/research-runs/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetResearchRun)
			r.Post("/callback", s.handleResearchCallback)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
