package di

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/database"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func signedToken(t *testing.T, method jwt.SigningMethod, key any) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999", GatewayUpstreamTimeout: 15 * time.Second}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout.Seconds() != 10 {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 25*time.Second {
		t.Fatalf("expected write timeout to cover the upstream timeout, got %v", srv.WriteTimeout)
	}
}

func TestProvideGatewayRouterDependencies(t *testing.T) {
	cfg := &config.Config{CORSAllowedOrigins: []string{"http://localhost:3000"}, OTELMetricsEnabled: true}
	dep := provideGatewayRouterDependencies(nil, nil, nil, nil, cfg)
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
}

func TestProvideTokenValidatorHMAC(t *testing.T) {
	cfg := &config.Config{JWTHMACSecret: testSecret}
	v, err := provideTokenValidator(cfg, http.DefaultClient, slog.Default())
	if err != nil {
		t.Fatalf("provide validator: %v", err)
	}
	claims, err := v.Validate(context.Background(), signedToken(t, jwt.SigningMethodHS256, []byte(testSecret)))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestProvideTokenValidatorPublicKeyFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "issuer.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write pem: %v", err)
	}

	v, err := provideTokenValidator(&config.Config{JWTPublicKeyFile: path}, http.DefaultClient, slog.Default())
	if err != nil {
		t.Fatalf("provide validator: %v", err)
	}
	if _, err := v.Validate(context.Background(), signedToken(t, jwt.SigningMethodRS256, key)); err != nil {
		t.Fatalf("validate rs256: %v", err)
	}

	_, err = provideTokenValidator(&config.Config{JWTPublicKeyFile: filepath.Join(t.TempDir(), "missing.pem")}, http.DefaultClient, slog.Default())
	if err == nil || !strings.Contains(err.Error(), "JWT_PUBLIC_KEY_FILE") {
		t.Fatalf("expected missing key file error, got %v", err)
	}
}

func TestProvideTokenValidatorOIDCDiscovery(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(map[string]string{"issuer": srv.URL, "jwks_uri": srv.URL + "/jwks"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{JWTIssuer: srv.URL, JWTOIDCDiscovery: true, JWTJWKSRefreshInterval: time.Minute}
	if _, err := provideTokenValidator(cfg, srv.Client(), slog.Default()); err != nil {
		t.Fatalf("provide validator with discovery: %v", err)
	}

	cfg.JWTIssuer = srv.URL + "/other"
	if _, err := provideTokenValidator(cfg, srv.Client(), slog.Default()); err == nil {
		t.Fatal("expected discovery against unknown issuer to fail")
	}
}

func TestProvideAuthorizationPolicyUsesConfiguredPatterns(t *testing.T) {
	v, err := provideTokenValidator(&config.Config{JWTHMACSecret: testSecret}, http.DefaultClient, slog.Default())
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	policy, err := provideAuthorizationPolicy(&config.Config{AuthExemptPaths: config.DefaultExemptPaths}, v)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if !policy.IsExempt("/swagger-ui/index.html") || policy.IsExempt("/api/product") {
		t.Fatal("unexpected exemption result")
	}
}

func TestProvideRateLimiterLocal(t *testing.T) {
	mw := provideRateLimiter(&config.Config{APIRateLimitPerMin: 1}, nil)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/product", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestProvideRateLimiterRedisFailOpen(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{APIRateLimitPerMin: 5, RateLimitRedisEnabled: true, RateLimitRedisPrefix: "rl"}
	h := provideRateLimiter(cfg, client)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/product", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !m.Exists("rl:api:10.0.0.9") {
		t.Fatalf("expected redis counter key, have %v", m.Keys())
	}

	m.Close()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open when redis is down, got %d", rr.Code)
	}
}

func TestProvideRedisClientDisabled(t *testing.T) {
	if c := provideRedisClient(&config.Config{}, slog.Default()); c != nil {
		t.Fatal("expected no redis client when rate limiting is local")
	}
}

func TestProvideCatalogStoreSQLite(t *testing.T) {
	cfg := &config.Config{
		CatalogStore:        config.CatalogStoreSQLite,
		DatabaseURL:         fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MongoConnectTimeout: time.Second,
	}
	store, err := provideCatalogStore(cfg)
	if err != nil {
		t.Fatalf("provide store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	if !store.DB.Migrator().HasTable("products") {
		t.Fatal("expected startup migration to create products table")
	}

	readiness := provideCatalogReadiness(&config.Config{ReadinessProbeTimeout: time.Second}, store)
	ready, results := readiness.Ready(context.Background())
	if !ready || len(results) != 1 || results[0].Name != "sql" {
		t.Fatalf("unexpected readiness ready=%v results=%+v", ready, results)
	}

	if repo := provideProductRepository(store); repo == nil {
		t.Fatal("expected product repository")
	}
}

func TestProvideApps(t *testing.T) {
	cfg := &config.Config{}
	logger := slog.Default()
	srv := &http.Server{}
	runtime := &observability.Runtime{}

	gw := provideGatewayApp(cfg, logger, srv, runtime, nil)
	if gw.Server != srv || gw.Redis != nil || gw.Store != nil {
		t.Fatalf("unexpected gateway app %+v", gw)
	}
	store := &database.CatalogStore{Kind: config.CatalogStoreSQLite}
	cat := provideCatalogApp(cfg, logger, srv, runtime, store)
	if cat.Store != store || cat.Observability != runtime {
		t.Fatalf("unexpected catalog app %+v", cat)
	}
}
