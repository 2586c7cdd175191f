package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/prekick-data/internal/api/handler"
	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/db"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/pipeline"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *db.Pool, jobs queue.Store, store *snapshot.Store, indexer *index.Builder, orch *pipeline.Orchestrator, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "Link"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, jobs, store, indexer, orch, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/store", h.HealthCheckStore)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Manual collection trigger. Disabled entirely when no token is set.
		r.With(BearerAuth(cfg.TriggerToken)).Post("/collector/run", h.TriggerRun)

		// Snapshots
		r.Get("/snapshots/{league}/{season}", h.ListSeasonSnapshots)
		r.Get("/snapshots/{league}/{season}/{snapshotID}", h.GetSnapshot)

		// Index artifacts and lookups
		r.Get("/indexes/{league}/{season}/{kind}", h.GetMatchIndex)
		r.Get("/matches/{league}/{season}/date/{date}", h.GetMatchesForDate)
		r.Get("/matches/{league}/{season}/team/{team}", h.GetMatchesForTeam)
		r.Get("/matches/{league}/{season}/{home}/{away}/{date}", h.GetMatch)

		// Queue visibility
		r.Get("/queue/summary", h.GetQueueSummary)
		r.Get("/metrics", h.GetMetrics)
	})

	return r
}
