package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/handler/language"
	"github.com/zhouzirui/tilawa/backend/internal/handler/live"
	"github.com/zhouzirui/tilawa/backend/internal/handler/session"
	"github.com/zhouzirui/tilawa/backend/internal/metrics"
	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	"github.com/zhouzirui/tilawa/backend/pkg/utils"
)

// Deps are what the HTTP layer needs from the core services.
type Deps struct {
	Orchestrator session.Orchestrator
	Sessions     session.Remover
	Catalog      recital.Catalog
	Registry     *live.Registry
	Metrics      *metrics.Metrics
	Logger       *zap.SugaredLogger
	CORSOrigins  []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Catalog == nil {
		d.Catalog = recital.NewMemoryCatalog(recital.Seed())
	}
	if d.Registry == nil {
		d.Registry = live.NewRegistry(d.Metrics)
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		language.New(d.Catalog).RegisterRoutes(api)
		session.New(d.Orchestrator, d.Sessions, d.Logger).RegisterRoutes(api)
		live.New(d.Orchestrator, d.Registry, d.Logger).RegisterRoutes(api)
	})

	return r
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Infow("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"requestId", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
