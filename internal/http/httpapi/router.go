package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"adgen/internal/http/handlers"
	"adgen/internal/infra"
	"adgen/internal/middleware"
)

// RouterConfig carries the knobs the router needs from app config.
type RouterConfig struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	// StaticDir, when set, is served under /static/ so filesystem-store
	// access links resolve. Empty for the s3 backend.
	StaticDir string
}

func NewRouter(app *handlers.App, logger infra.Logger, cfg RouterConfig) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	if cfg.StaticDir != "" {
		files := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(cfg.StaticDir)))
		r.Get("/static/*", files.ServeHTTP)
	}

	r.Route("/v1/jobs", func(r chi.Router) {
		submit := r
		if cfg.RateLimitPerMin > 0 {
			submit = r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		}
		submit.Post("/", app.JobsSubmit)
		r.Get("/{job_id}", app.JobStatus)
	})

	return r
}
