package security

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

var ErrUnknownKeyID = errors.New("jwks: unknown key id")

const (
	defaultMinRefreshInterval = 30 * time.Second
	maxJWKSResponseBytes      = 1 << 20
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// JWKSKeySet caches the issuer's verification keys by kid. Keys are refreshed
// after refreshInterval and when a token names a kid not in the cache, at most
// once per minRefreshInterval. Concurrent refreshes share one fetch.
type JWKSKeySet struct {
	url                string
	client             *http.Client
	logger             *slog.Logger
	refreshInterval    time.Duration
	minRefreshInterval time.Duration
	now                func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	keys        map[string]any
	fetchedAt   time.Time
	lastAttempt time.Time
}

func NewJWKSKeySet(url string, client *http.Client, refreshInterval time.Duration, logger *slog.Logger) *JWKSKeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JWKSKeySet{
		url:                url,
		client:             client,
		logger:             logger,
		refreshInterval:    refreshInterval,
		minRefreshInterval: defaultMinRefreshInterval,
		now:                time.Now,
		keys:               map[string]any{},
	}
}

// Key returns the verification key for kid. An empty kid resolves only when
// the set holds exactly one key.
func (s *JWKSKeySet) Key(ctx context.Context, kid string) (any, error) {
	// Stale keys keep serving while refreshes are throttled.
	if s.stale() && (!s.hasKeys() || s.refreshAllowed()) {
		if err := s.refresh(ctx, "interval"); err != nil && !s.hasKeys() {
			return nil, err
		}
	}
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}
	if !s.refreshAllowed() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyID, kid)
	}
	if err := s.refresh(ctx, "unknown_kid"); err != nil {
		return nil, err
	}
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKeyID, kid)
}

// Refresh fetches the key set now.
func (s *JWKSKeySet) Refresh(ctx context.Context) error {
	return s.refresh(ctx, "manual")
}

func (s *JWKSKeySet) refresh(ctx context.Context, trigger string) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		s.mu.Lock()
		s.lastAttempt = s.now()
		s.mu.Unlock()

		keys, err := s.fetch(context.WithoutCancel(ctx))
		if err != nil {
			observability.RecordJWKSRefresh(ctx, trigger, "error")
			s.logger.WarnContext(ctx, "jwks refresh failed", "url", s.url, "trigger", trigger, "error", err)
			return nil, err
		}
		s.mu.Lock()
		s.keys = keys
		s.fetchedAt = s.now()
		s.mu.Unlock()
		observability.RecordJWKSRefresh(ctx, trigger, "success")
		s.logger.DebugContext(ctx, "jwks refreshed", "url", s.url, "trigger", trigger, "keys", len(keys))
		return nil, nil
	})
	return err
}

func (s *JWKSKeySet) fetch(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSResponseBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]any, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unusable jwk", "kid", k.Kid, "kty", k.Kty, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable signing keys")
	}
	return keys, nil
}

func (s *JWKSKeySet) lookup(kid string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kid == "" {
		if len(s.keys) == 1 {
			for _, k := range s.keys {
				return k, true
			}
		}
		return nil, false
	}
	k, ok := s.keys[kid]
	return k, ok
}

func (s *JWKSKeySet) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.refreshInterval
}

func (s *JWKSKeySet) hasKeys() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys) > 0
}

func (s *JWKSKeySet) refreshAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAttempt.IsZero() || s.now().Sub(s.lastAttempt) >= s.minRefreshInterval
}

func (k jwk) publicKey() (any, error) {
	switch k.Kty {
	case "RSA":
		n, err := decodeB64(k.N)
		if err != nil {
			return nil, fmt.Errorf("modulus: %w", err)
		}
		e, err := decodeB64(k.E)
		if err != nil {
			return nil, fmt.Errorf("exponent: %w", err)
		}
		exp := new(big.Int).SetBytes(e)
		if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
			return nil, errors.New("rsa exponent out of range")
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := decodeB64(k.X)
		if err != nil {
			return nil, fmt.Errorf("x: %w", err)
		}
		y, err := decodeB64(k.Y)
		if err != nil {
			return nil, fmt.Errorf("y: %w", err)
		}
		pub := &ecdsa.PublicKey{Curve: curve, X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)}
		if !curve.IsOnCurve(pub.X, pub.Y) {
			return nil, errors.New("ec point not on curve")
		}
		return pub, nil
	case "OKP":
		if k.Crv != "Ed25519" {
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := decodeB64(k.X)
		if err != nil {
			return nil, fmt.Errorf("x: %w", err)
		}
		if len(x) != ed25519.PublicKeySize {
			return nil, errors.New("ed25519 key has wrong length")
		}
		return ed25519.PublicKey(x), nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

func decodeB64(v string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(v, "="))
}

// DiscoverJWKSURL reads the issuer's OpenID configuration and returns its
// jwks_uri. The advertised issuer must match the configured one.
func DiscoverJWKSURL(ctx context.Context, client *http.Client, issuer string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimSuffix(issuer, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/.well-known/openid-configuration", nil)
	if err != nil {
		return "", fmt.Errorf("build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch openid configuration: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch openid configuration: unexpected status %d", resp.StatusCode)
	}
	var doc struct {
		Issuer  string `json:"issuer"`
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSResponseBytes)).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode openid configuration: %w", err)
	}
	if strings.TrimSuffix(doc.Issuer, "/") != base {
		return "", fmt.Errorf("openid configuration issuer %q does not match %q", doc.Issuer, issuer)
	}
	if doc.JWKSURI == "" {
		return "", errors.New("openid configuration has no jwks_uri")
	}
	return doc.JWKSURI, nil
}
