package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/response"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

// CanonicalPath rejects request paths that do not survive path.Clean
// unchanged (dot segments, doubled slashes) and escaped path separators. The
// gate, the route table and the upstream router all see the same path for
// every request that passes.
func CanonicalPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isCanonicalPath(r.URL.Path, r.URL.RawPath) {
			observability.RecordMiddlewareValidationEvent(r.Context(), "canonical_path", "rejected")
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "request path is not canonical", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isCanonicalPath(p, rawPath string) bool {
	if p == "" || p == "/" {
		return true
	}
	if !strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return false
	}
	trimmed := p
	if len(trimmed) > 1 {
		trimmed = strings.TrimSuffix(trimmed, "/")
	}
	if path.Clean(p) != trimmed {
		return false
	}
	raw := strings.ToLower(rawPath)
	return !strings.Contains(raw, "%2f") && !strings.Contains(raw, "%5c") && !strings.Contains(raw, "%2e")
}
