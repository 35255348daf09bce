// Package api serves the lead database over a small JSON HTTP API used by
// the review front end.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/store"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// NewRouter returns the HTTP handler. An empty origins list allows any
// origin.
func NewRouter(st store.Store, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handlers{store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/links", h.listLinks)
		r.Get("/links_for_parsing", h.linksForParsing)
		r.Post("/create_link", h.createLink)
		r.Post("/update_link/{id}", h.updateLink)
		r.Post("/check_sent", h.checkSent)
		r.Get("/campaigns", h.listCampaigns)
		r.Get("/leads/next", h.nextLead)
		r.Post("/leads/{id}/review", h.reviewLead)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
