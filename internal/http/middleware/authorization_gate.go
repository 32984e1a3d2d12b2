package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/response"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AuthorizationGate lets exempt paths through untouched and requires a valid
// bearer token everywhere else. Rejected requests never reach next.
func AuthorizationGate(policy *security.AuthorizationPolicy, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing authorization gate", "exempt_patterns", len(policy.Patterns()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := policy.Decide(r.Context(), r.URL.Path, r.Header.Get("Authorization"))
			if err != nil {
				reason := security.RejectReason(err)
				observability.RecordAuthorizationDecision(r.Context(), "rejected", reason)
				observability.AnnotateRequest(r.Context(), "auth", "rejected:"+reason)
				logger.DebugContext(r.Context(), "request rejected by authorization gate",
					"path", r.URL.Path,
					"reason", reason,
					"error", err,
				)
				observability.EmitAudit(r, observability.AuditInput{
					EventName:  "gateway.request.rejected",
					TargetType: "path",
					TargetID:   r.URL.Path,
					Action:     r.Method,
					Outcome:    "rejected",
					Reason:     reason,
				})
				writeUnauthorized(w, r, err)
				return
			}

			if decision.Exempt {
				observability.RecordAuthorizationDecision(r.Context(), "allowed", "exempt")
				observability.AnnotateRequest(r.Context(), "auth", "exempt")
				logger.DebugContext(r.Context(), "exempt path allowed", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			observability.RecordAuthorizationDecision(r.Context(), "allowed", "valid_token")
			observability.AnnotateRequest(r.Context(), "auth", "token")
			observability.AnnotateRequest(r.Context(), "subject", decision.Claims.Subject)
			logger.DebugContext(r.Context(), "bearer token accepted",
				"path", r.URL.Path,
				"subject", decision.Claims.Subject,
			)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, decision.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	challenge := `Bearer`
	message := "missing bearer token"
	if errors.Is(err, security.ErrTokenInvalid) {
		challenge = `Bearer error="invalid_token"`
		message = "invalid bearer token"
		if errors.Is(err, security.ErrTokenExpired) {
			message = "bearer token expired"
		}
	}
	w.Header().Set("WWW-Authenticate", challenge)
	response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok && c != nil
}
