package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-pos/atlas-pos/internal/auth"
	"github.com/atlas-pos/atlas-pos/internal/barcode"
	"github.com/atlas-pos/atlas-pos/internal/catalog"
	"github.com/atlas-pos/atlas-pos/internal/observability"
	"github.com/atlas-pos/atlas-pos/internal/sales"
	"github.com/atlas-pos/atlas-pos/internal/stock"
	"github.com/atlas-pos/atlas-pos/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	UsersHandler   *users.Handler
	CatalogHandler *catalog.Handler
	StockHandler   *stock.Handler
	SalesHandler   *sales.Handler
	BarcodeHandler *barcode.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the full API surface. Everything
// under /api except login requires a valid token; mutating catalog, stock and
// user routes additionally require the admin role.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAuth)

			r.Route("/products", params.CatalogHandler.MountRoutes)
			r.Route("/stock", params.StockHandler.MountRoutes)
			r.Route("/sales", params.SalesHandler.MountRoutes)
			if params.BarcodeHandler != nil {
				r.Route("/barcode", params.BarcodeHandler.MountRoutes)
			}

			r.Group(func(r chi.Router) {
				r.Use(params.AuthMiddleware.RequireAdmin)
				r.Route("/users", params.UsersHandler.MountRoutes)
			})
		})
	})

	return r
}
