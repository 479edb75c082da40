// Package httpapi assembles the chi router for the storefront API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/http/handlers"
	"github.com/magictales/server/internal/middleware"
)

// Options tunes the middleware chain.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMin    int

	// StaticDir, when set, serves blobs written by the filesystem store
	// under /static/. The S3 store serves its own URLs, so leave it empty
	// in that configuration.
	StaticDir string
}

// New builds the full route table.
func New(app *handlers.App, logger zerolog.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(opts.CORSAllowedOrigins))
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", app.Generate)
		r.Post("/generate-avatar", app.GenerateAvatar)
		r.Get("/poll-avatar", app.PollAvatar)
		r.Post("/persona/generate", app.GeneratePersona)
		r.Post("/generate-story-pages", app.GenerateStoryPages)
		r.Post("/magictales/book", app.ComposeBook)

		r.Get("/user", app.User)
		r.Post("/unlock", app.Unlock)

		r.Post("/save-lead", app.SaveLead)
		r.Get("/leads", app.ListLeads)

		r.Post("/upload", app.Upload)
		r.Post("/export", app.Export)

		r.Post("/webhooks", app.StripeWebhook)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
