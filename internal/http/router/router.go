package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/health"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/handler"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/middleware"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/response"
)

const maxBodyBytes = 1 << 20

type GatewayDependencies struct {
	Gate           AuthorizationGateFunc
	RateLimiter    RateLimiterFunc
	Proxy          http.Handler
	CORSOrigins    []string
	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

type CatalogDependencies struct {
	ProductHandler *handler.ProductHandler
	CORSOrigins    []string
	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

type AuthorizationGateFunc func(http.Handler) http.Handler
type RateLimiterFunc func(http.Handler) http.Handler

// NewGatewayRouter serves the health probes itself and sends every other
// path through the rate limiter and the authorization gate to the proxy.
func NewGatewayRouter(dep GatewayDependencies) http.Handler {
	r := chi.NewRouter()
	useCommon(r, dep.CORSOrigins)
	registerHealth(r, dep.Readiness)

	r.Group(func(r chi.Router) {
		if dep.RateLimiter != nil {
			r.Use(dep.RateLimiter)
		}
		r.Use(dep.Gate)
		r.Handle("/*", dep.Proxy)
	})

	return withOTel(r, dep.EnableOTelHTTP, "gateway.server")
}

func NewCatalogRouter(dep CatalogDependencies) http.Handler {
	r := chi.NewRouter()
	useCommon(r, dep.CORSOrigins)
	registerHealth(r, dep.Readiness)

	r.Route("/api/product", func(r chi.Router) {
		r.Post("/", dep.ProductHandler.Create)
		r.Get("/", dep.ProductHandler.List)
		r.Put("/{productId}", dep.ProductHandler.Update)
		r.Delete("/{productId}", dep.ProductHandler.Delete)
	})

	return withOTel(r, dep.EnableOTelHTTP, "catalog.server")
}

func useCommon(r chi.Router, corsOrigins []string) {
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.CanonicalPath)
	r.Use(middleware.BodyLimit(maxBodyBytes))
}

func registerHealth(r chi.Router, readiness *health.ProbeRunner) {
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})
}

func withOTel(h http.Handler, enabled bool, operation string) http.Handler {
	if !enabled {
		return h
	}
	return otelhttp.NewHandler(h, operation)
}
