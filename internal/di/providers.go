package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/app"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/database"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/health"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/handler"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/middleware"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/proxy"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/router"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/repository"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/security"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/service"
)

const discoveryTimeout = 10 * time.Second

var GatewayConfigSet = wire.NewSet(config.LoadGateway)

var CatalogConfigSet = wire.NewSet(config.LoadCatalog)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var SecuritySet = wire.NewSet(
	provideOutboundHTTPClient,
	provideTokenValidator,
	wire.Bind(new(security.TokenValidator), new(*security.JWTValidator)),
	provideAuthorizationPolicy,
)

var GatewayHTTPSet = wire.NewSet(
	provideRedisClient,
	provideUpstreamTransport,
	provideProxy,
	provideAuthorizationGate,
	provideRateLimiter,
	provideGatewayReadiness,
	provideGatewayRouterDependencies,
	router.NewGatewayRouter,
	provideHTTPServer,
	provideGatewayApp,
)

var CatalogSet = wire.NewSet(
	provideCatalogStore,
	provideProductRepository,
	provideProductService,
	wire.Bind(new(service.ProductService), new(*service.ProductServiceImpl)),
	handler.NewProductHandler,
	provideCatalogReadiness,
	provideCatalogRouterDependencies,
	router.NewCatalogRouter,
	provideHTTPServer,
	provideCatalogApp,
)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

// provideOutboundHTTPClient is used for OIDC discovery and JWKS fetches.
func provideOutboundHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   discoveryTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func provideTokenValidator(cfg *config.Config, client *http.Client, logger *slog.Logger) (*security.JWTValidator, error) {
	vcfg := security.JWTValidatorConfig{
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Algorithms: cfg.JWTAlgorithms,
		Leeway:     cfg.JWTClockSkew,
	}
	if cfg.JWTHMACSecret != "" {
		vcfg.HMACSecret = []byte(cfg.JWTHMACSecret)
	}
	if cfg.JWTPublicKeyFile != "" {
		data, err := os.ReadFile(cfg.JWTPublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read JWT_PUBLIC_KEY_FILE: %w", err)
		}
		key, err := security.ParsePublicKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse JWT_PUBLIC_KEY_FILE: %w", err)
		}
		vcfg.PublicKey = key
	}

	jwksURL := cfg.JWTJWKSURL
	if jwksURL == "" && cfg.JWTOIDCDiscovery {
		ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
		defer cancel()
		discovered, err := security.DiscoverJWKSURL(ctx, client, cfg.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		logger.Info("discovered jwks endpoint", "issuer", cfg.JWTIssuer, "jwks_uri", discovered)
		jwksURL = discovered
	}
	if jwksURL != "" {
		vcfg.KeySet = security.NewJWKSKeySet(jwksURL, client, cfg.JWTJWKSRefreshInterval, logger)
	}
	return security.NewJWTValidator(vcfg)
}

func provideAuthorizationPolicy(cfg *config.Config, validator security.TokenValidator) (*security.AuthorizationPolicy, error) {
	return security.NewAuthorizationPolicy(cfg.AuthExemptPaths, validator)
}

func provideAuthorizationGate(policy *security.AuthorizationPolicy, logger *slog.Logger) router.AuthorizationGateFunc {
	return middleware.AuthorizationGate(policy, logger)
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RateLimitRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.RateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware()
}

func provideUpstreamTransport(cfg *config.Config) http.RoundTripper {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = cfg.GatewayUpstreamTimeout
	return otelhttp.NewTransport(base)
}

func provideProxy(cfg *config.Config, transport http.RoundTripper, logger *slog.Logger) (*proxy.Gateway, error) {
	return proxy.New(cfg.GatewayRoutes, transport, logger)
}

func provideGatewayReadiness(cfg *config.Config, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewRedisChecker(redisClient)}
	seen := map[string]bool{}
	for _, rt := range cfg.GatewayRoutes {
		u, err := url.Parse(rt.Target)
		if err != nil || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		checkers = append(checkers, health.NewUpstreamChecker(u.Host, rt.Target))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideGatewayRouterDependencies(
	gate router.AuthorizationGateFunc,
	rateLimiter router.RateLimiterFunc,
	gw *proxy.Gateway,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.GatewayDependencies {
	return router.GatewayDependencies{
		Gate:           gate,
		RateLimiter:    rateLimiter,
		Proxy:          gw,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Readiness:      readiness,
		EnableOTelHTTP: cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.GatewayUpstreamTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideGatewayApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	redisClient redis.UniversalClient,
) *app.App {
	a := app.New(cfg, logger, server, runtime)
	a.Redis = redisClient
	return a
}

// provideCatalogStore opens the configured store and ensures its schema.
func provideCatalogStore(cfg *config.Config) (*database.CatalogStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout+discoveryTimeout)
	defer cancel()
	store, err := database.OpenCatalogStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := store.Migrate(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return store, nil
}

func provideToolCatalogStore(cfg *config.Config) (*database.CatalogStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout+discoveryTimeout)
	defer cancel()
	return database.OpenCatalogStore(ctx, cfg)
}

func provideProductRepository(store *database.CatalogStore) repository.ProductRepository {
	return store.Products
}

func provideProductService(repo repository.ProductRepository, logger *slog.Logger) *service.ProductServiceImpl {
	return service.NewProductService(repo, logger)
}

func provideCatalogReadiness(cfg *config.Config, store *database.CatalogStore) *health.ProbeRunner {
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod,
		health.NewMongoChecker(store.Mongo),
		health.NewDBChecker(store.DB),
	)
}

func provideCatalogRouterDependencies(
	productHandler *handler.ProductHandler,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.CatalogDependencies {
	return router.CatalogDependencies{
		ProductHandler: productHandler,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Readiness:      readiness,
		EnableOTelHTTP: cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideCatalogApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	store *database.CatalogStore,
) *app.App {
	a := app.New(cfg, logger, server, runtime)
	a.Store = store
	return a
}
