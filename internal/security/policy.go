package security

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrCredentialsMissing = errors.New("bearer credentials missing")
	ErrTokenInvalid       = errors.New("bearer token invalid")
	ErrTokenExpired       = errors.New("bearer token expired")
)

// TokenValidator checks a raw bearer token against issuer-owned keys.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*Claims, error)
}

// Decision is the outcome of one authorization check. Exempt decisions carry
// no claims.
type Decision struct {
	Allowed bool
	Exempt  bool
	Claims  *Claims
}

// AuthorizationPolicy decides whether a request path may pass the gateway.
// It is immutable after construction and safe for concurrent use.
type AuthorizationPolicy struct {
	patterns  []pathPattern
	validator TokenValidator
}

func NewAuthorizationPolicy(patterns []string, validator TokenValidator) (*AuthorizationPolicy, error) {
	if validator == nil {
		return nil, errors.New("authorization policy requires a token validator")
	}
	compiled := make([]pathPattern, 0, len(patterns))
	for _, raw := range patterns {
		p, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, p)
	}
	return &AuthorizationPolicy{patterns: compiled, validator: validator}, nil
}

// Patterns returns the exempt patterns as configured.
func (p *AuthorizationPolicy) Patterns() []string {
	out := make([]string, 0, len(p.patterns))
	for _, pat := range p.patterns {
		out = append(out, pat.raw)
	}
	return out
}

func (p *AuthorizationPolicy) IsExempt(requestPath string) bool {
	segs := splitSegments(normalizePath(requestPath))
	for _, pat := range p.patterns {
		if pat.matches(segs) {
			return true
		}
	}
	return false
}

// Decide applies the exempt list first and only then requires a valid bearer
// token. A rejected request always returns a non-nil error that matches one
// of ErrCredentialsMissing or ErrTokenInvalid; expired tokens additionally
// match ErrTokenExpired.
func (p *AuthorizationPolicy) Decide(ctx context.Context, requestPath, authorization string) (Decision, error) {
	if p.IsExempt(requestPath) {
		return Decision{Allowed: true, Exempt: true}, nil
	}
	raw, ok := BearerToken(authorization)
	if !ok {
		return Decision{}, ErrCredentialsMissing
	}
	claims, err := p.validator.Validate(ctx, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, ErrTokenExpired) {
			err = fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Decision{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims == nil {
		return Decision{}, fmt.Errorf("%w: validator returned no claims", ErrTokenInvalid)
	}
	return Decision{Allowed: true, Claims: claims}, nil
}

// BearerToken extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(rest)
	if token == "" {
		return "", false
	}
	return token, true
}

// RejectReason maps a Decide error to a short label for logs and metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrCredentialsMissing):
		return "missing_credentials"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	default:
		return "error"
	}
}
