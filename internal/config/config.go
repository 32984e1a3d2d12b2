package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	CatalogStoreMongo    = "mongo"
	CatalogStorePostgres = "postgres"
	CatalogStoreSQLite   = "sqlite"
)

// DefaultExemptPaths are the documentation and discovery endpoints that the
// gateway serves without a bearer token.
var DefaultExemptPaths = []string{
	"/swagger-ui",
	"/swagger-ui/*",
	"/v3/api-docs/**",
	"/swagger-resources/**",
	"api-docs/**",
	"aggregate/**",
}

type Config struct {
	Env      string
	HTTPPort string

	CORSAllowedOrigins []string

	GatewayRoutes          []Route
	GatewayUpstreamTimeout time.Duration
	AuthExemptPaths        []string

	JWTIssuer              string
	JWTAudience            string
	JWTHMACSecret          string
	JWTPublicKeyFile       string
	JWTJWKSURL             string
	JWTOIDCDiscovery       bool
	JWTAlgorithms          []string
	JWTClockSkew           time.Duration
	JWTJWKSRefreshInterval time.Duration

	APIRateLimitPerMin    int
	RateLimitRedisEnabled bool
	RateLimitRedisPrefix  string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	CatalogStore        string
	MongoURI            string
	MongoDatabase       string
	MongoCollection     string
	MongoConnectTimeout time.Duration
	DatabaseURL         string

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

// Route maps an inbound path prefix on the gateway to an upstream base URL.
type Route struct {
	Prefix string
	Target string
}

// LoadGateway reads the environment for the edge gateway and validates the
// gateway-specific settings.
func LoadGateway() (*Config, error) {
	cfg, err := load("8080", "catalog-gateway")
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateGateway(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCatalog reads the environment for the catalog service.
func LoadCatalog() (*Config, error) {
	cfg, err := load("8084", "catalog-service")
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCatalog(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(defaultPort, defaultService string) (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", defaultPort),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		AuthExemptPaths:  splitCSV(getEnv("AUTH_EXEMPT_PATHS", strings.Join(DefaultExemptPaths, ","))),
		JWTIssuer:        strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		JWTAudience:      strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
		JWTHMACSecret:    os.Getenv("JWT_HMAC_SECRET"),
		JWTPublicKeyFile: strings.TrimSpace(os.Getenv("JWT_PUBLIC_KEY_FILE")),
		JWTJWKSURL:       strings.TrimSpace(os.Getenv("JWT_JWKS_URL")),
		JWTOIDCDiscovery: getEnvBool("JWT_OIDC_DISCOVERY", false),
		JWTAlgorithms:    splitCSV(os.Getenv("JWT_ALGORITHMS")),

		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled: getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix:  getEnv("RATE_LIMIT_REDIS_PREFIX", "gw_rl"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvInt("REDIS_DB", 0),

		CatalogStore:    strings.ToLower(getEnv("CATALOG_STORE", CatalogStoreMongo)),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "product-service"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "product"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", defaultService),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	routes, err := ParseRoutes(os.Getenv("GATEWAY_ROUTES"))
	if err != nil {
		return nil, fmt.Errorf("parse GATEWAY_ROUTES: %w", err)
	}
	cfg.GatewayRoutes = routes

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"GATEWAY_UPSTREAM_TIMEOUT", "30s", &cfg.GatewayUpstreamTimeout},
		{"JWT_CLOCK_SKEW", "30s", &cfg.JWTClockSkew},
		{"JWT_JWKS_REFRESH_INTERVAL", "10m", &cfg.JWTJWKSRefreshInterval},
		{"MONGODB_CONNECT_TIMEOUT", "10s", &cfg.MongoConnectTimeout},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dest = v
	}
	return cfg, nil
}

// ParseRoutes parses "prefix=target" pairs separated by commas.
func ParseRoutes(raw string) ([]Route, error) {
	var routes []Route
	for _, entry := range splitCSV(raw) {
		prefix, target, ok := strings.Cut(entry, "=")
		prefix = strings.TrimSpace(prefix)
		target = strings.TrimSpace(target)
		if !ok || prefix == "" || target == "" {
			return nil, fmt.Errorf("invalid route %q, want prefix=target", entry)
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		routes = append(routes, Route{Prefix: prefix, Target: target})
	}
	return routes, nil
}

func (c *Config) ValidateGateway() error {
	errs := c.validateCommon()
	if len(c.GatewayRoutes) == 0 {
		errs = append(errs, "GATEWAY_ROUTES must define at least one route")
	}
	if c.GatewayUpstreamTimeout <= 0 {
		errs = append(errs, "GATEWAY_UPSTREAM_TIMEOUT must be > 0")
	}
	if len(c.AuthExemptPaths) == 0 {
		errs = append(errs, "AUTH_EXEMPT_PATHS must not be empty")
	}
	if c.JWTHMACSecret == "" && c.JWTPublicKeyFile == "" && c.JWTJWKSURL == "" && !c.JWTOIDCDiscovery {
		errs = append(errs, "one of JWT_HMAC_SECRET, JWT_PUBLIC_KEY_FILE, JWT_JWKS_URL or JWT_OIDC_DISCOVERY is required")
	}
	if c.JWTHMACSecret != "" && len(c.JWTHMACSecret) < 32 {
		errs = append(errs, "JWT_HMAC_SECRET must be at least 32 chars")
	}
	if c.JWTOIDCDiscovery && c.JWTIssuer == "" {
		errs = append(errs, "JWT_ISSUER is required when JWT_OIDC_DISCOVERY=true")
	}
	if c.JWTClockSkew < 0 || c.JWTClockSkew > 5*time.Minute {
		errs = append(errs, "JWT_CLOCK_SKEW must be between 0 and 5m")
	}
	if c.JWTJWKSRefreshInterval < time.Minute {
		errs = append(errs, "JWT_JWKS_REFRESH_INTERVAL must be >= 1m")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitRedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when RATE_LIMIT_REDIS_ENABLED=true")
	}
	return joinErrors(errs)
}

func (c *Config) ValidateCatalog() error {
	errs := c.validateCommon()
	switch c.CatalogStore {
	case CatalogStoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, "MONGODB_URI is required when CATALOG_STORE=mongo")
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			errs = append(errs, "MONGODB_DATABASE and MONGODB_COLLECTION are required when CATALOG_STORE=mongo")
		}
		if c.MongoConnectTimeout <= 0 {
			errs = append(errs, "MONGODB_CONNECT_TIMEOUT must be > 0")
		}
	case CatalogStorePostgres, CatalogStoreSQLite:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when CATALOG_STORE="+c.CatalogStore)
		}
	default:
		errs = append(errs, "CATALOG_STORE must be one of mongo, postgres, sqlite")
	}
	return joinErrors(errs)
}

func (c *Config) validateCommon() []string {
	var errs []string
	if c.HTTPPort == "" {
		errs = append(errs, "HTTP_PORT is required")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must not exceed SHUTDOWN_TIMEOUT")
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
