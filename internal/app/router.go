package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pricescout/pricescout/internal/admin"
	"github.com/pricescout/pricescout/internal/catalog"
	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/observability"
	"github.com/pricescout/pricescout/internal/products"
	"github.com/pricescout/pricescout/internal/search"
	"github.com/pricescout/pricescout/internal/shared"
	"github.com/pricescout/pricescout/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	MerchantHandler *merchants.Handler
	ProductHandler  *products.Handler
	CatalogHandler  *catalog.Handler
	SearchHandler   *search.Handler
	AdminHandler    *admin.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.SearchHandler.MountRoutes(r)
		params.MerchantHandler.MountRoutes(r)
		params.ProductHandler.MountRoutes(r)
		params.CatalogHandler.MountRoutes(r)
		params.AdminHandler.MountRoutes(r)
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(r)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Uploaded images plus the bundled sentinel image live on disk.
	uploads := http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(params.Config.UploadDir)))
	r.Handle("/static/uploads/*", staticCacheHandler(uploads))
	images := http.StripPrefix("/static/img/", http.FileServer(http.Dir("static/img")))
	r.Handle("/static/img/*", staticCacheHandler(images))

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers so
// browsers keep product images for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
