package app

import (
	"net/http"
	"time"

	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/metrics"
	"github.com/rituelsdebene/boutique/pkg/middleware"
	"github.com/rituelsdebene/boutique/pkg/reqid"
	"github.com/rituelsdebene/boutique/pkg/response"
	"github.com/rituelsdebene/boutique/pkg/router"
	"github.com/shopspring/decimal"
)

// RouteFunc mounts application routes on r.
type RouteFunc func(r *router.Router)

// NewRouter builds the router with the global middleware stack, outermost
// first: metrics, recovery, request id, access log, CORS, rate limit.
func NewRouter() *router.Router {
	// Prices and totals leave the API as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.StorefrontCORS(config.FrontendURL())))
	proxies, err := middleware.ParseProxies(config.TrustedProxies())
	if err != nil {
		logger.Warn("rate limit: ignoring proxies", "error", err)
	}
	r.Use(middleware.RateLimit(200, time.Minute, proxies))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route introuvable")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Méthode non autorisée")
	})

	r.Get("/metrics", "metrics", metrics.Handler())
	return r
}

// Handler builds the full HTTP handler from the route callbacks.
func Handler(fns ...RouteFunc) http.Handler {
	r := NewRouter()
	for _, fn := range fns {
		fn(r)
	}
	return r.Handler()
}
