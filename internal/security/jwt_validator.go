package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

var (
	hmacAlgorithms       = []string{"HS256", "HS384", "HS512"}
	asymmetricAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"}
)

// Claims is the subset of a validated access token the gateway relays
// downstream. Raw keeps every claim as decoded.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	Scopes    []string
	Raw       map[string]any
}

type JWTValidatorConfig struct {
	Issuer     string
	Audience   string
	HMACSecret []byte
	// PublicKey is an *rsa.PublicKey, *ecdsa.PublicKey or ed25519.PublicKey.
	PublicKey  any
	KeySet     *JWKSKeySet
	Algorithms []string
	Leeway     time.Duration
}

// JWTValidator validates bearer JWTs signed by the issuer. At least one key
// source is required; when both a static public key and a key set are
// configured, tokens carrying a kid are resolved through the key set.
type JWTValidator struct {
	issuer     string
	audience   string
	hmacSecret []byte
	publicKey  any
	keySet     *JWKSKeySet
	algorithms []string
	leeway     time.Duration
}

func NewJWTValidator(cfg JWTValidatorConfig) (*JWTValidator, error) {
	if len(cfg.HMACSecret) == 0 && cfg.PublicKey == nil && cfg.KeySet == nil {
		return nil, errors.New("jwt validator requires an hmac secret, public key or key set")
	}
	algs := cfg.Algorithms
	if len(algs) == 0 {
		if len(cfg.HMACSecret) > 0 {
			algs = append(algs, hmacAlgorithms...)
		}
		if cfg.PublicKey != nil || cfg.KeySet != nil {
			algs = append(algs, asymmetricAlgorithms...)
		}
	}
	for _, alg := range algs {
		if jwt.GetSigningMethod(alg) == nil {
			return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
		}
		if strings.EqualFold(alg, "none") {
			return nil, errors.New("jwt algorithm none is not allowed")
		}
	}
	return &JWTValidator{
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		hmacSecret: cfg.HMACSecret,
		publicKey:  cfg.PublicKey,
		keySet:     cfg.KeySet,
		algorithms: algs,
		leeway:     cfg.Leeway,
	}, nil
}

func (v *JWTValidator) Validate(ctx context.Context, raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.algorithms),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, mc, func(t *jwt.Token) (any, error) {
		return v.keyFor(ctx, t)
	}, opts...)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, validationOutcome(err), "bearer")
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, err
	}
	observability.RecordAccessTokenValidation(ctx, "ok", "bearer")
	return claimsFromMap(mc), nil
}

func (v *JWTValidator) keyFor(ctx context.Context, t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.hmacSecret) == 0 {
			return nil, fmt.Errorf("no hmac secret configured for %s", t.Method.Alg())
		}
		return v.hmacSecret, nil
	}
	kid, _ := t.Header["kid"].(string)
	if v.keySet != nil && (kid != "" || v.publicKey == nil) {
		return v.keySet.Key(ctx, kid)
	}
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return nil, fmt.Errorf("no verification key configured for %s", t.Method.Alg())
}

func claimsFromMap(mc jwt.MapClaims) *Claims {
	c := &Claims{Raw: map[string]any(mc)}
	c.Subject, _ = mc.GetSubject()
	c.Issuer, _ = mc.GetIssuer()
	if aud, err := mc.GetAudience(); err == nil {
		c.Audience = []string(aud)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	c.Scopes = scopesFromClaims(mc)
	return c
}

// scopesFromClaims reads the space-delimited "scope" claim, falling back to
// the "scp" claim as either an array or a string.
func scopesFromClaims(mc jwt.MapClaims) []string {
	if s, ok := mc["scope"].(string); ok {
		return strings.Fields(s)
	}
	switch scp := mc["scp"].(type) {
	case string:
		return strings.Fields(scp)
	case []any:
		out := make([]string, 0, len(scp))
		for _, v := range scp {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "wrong_party"
	case errors.Is(err, ErrUnknownKeyID):
		return "unknown_kid"
	default:
		return "invalid"
	}
}

// ParsePublicKeyPEM decodes an RSA, ECDSA or Ed25519 public key.
func ParsePublicKeyPEM(data []byte) (any, error) {
	if k, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPublicKeyFromPEM(data); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseEdPublicKeyFromPEM(data); err == nil {
		return k, nil
	}
	return nil, errors.New("public key PEM is not an RSA, ECDSA or Ed25519 key")
}
