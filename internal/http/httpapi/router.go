package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"photoflow/internal/http/handlers"
	"photoflow/internal/middleware"
)

// Options tunes router-level middleware.
type Options struct {
	Logger          zerolog.Logger
	DefaultLocale   string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.Locale(opts.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/uploads", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Post("/", app.CreateUpload)
		r.Post("/batch", app.CreateBatchUpload)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/{id}", app.GetJob)
	})

	r.Route("/v1/batches", func(r chi.Router) {
		r.Get("/{id}", app.GetBatch)
	})

	return r
}
