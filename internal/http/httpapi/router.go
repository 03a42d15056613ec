package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"prodtrans/internal/http/handlers"
	"prodtrans/internal/infra"
	"prodtrans/internal/middleware"
)

// Options configures the middleware chain wrapped around the API routes.
type Options struct {
	Logger          infra.Logger
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	AllowedOrigins  []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Healthz)

	r.Route("/v1/translations", func(r chi.Router) {
		r.Post("/", app.TranslationsCreate)
		r.Get("/recent", app.TranslationsRecent)
		r.Get("/stats", app.TranslationsStats)
		r.Get("/{catalogNumber}", app.TranslationsByCatalogNumber)
	})

	r.Get("/v1/providers", app.ProvidersList)
	r.Get("/v1/languages", app.LanguagesList)
	r.Get("/v1/routing", app.RoutingProfilesList)

	return r
}
