package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/response"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

func RequestID(next http.Handler) http.Handler { return chimiddleware.RequestID(next) }

var edgeHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Content-Security-Policy", "default-src 'self'"},
}

// SecurityHeaders fills in the edge security headers when the response is
// committed. Values already present, such as those copied from an upstream
// response, are kept. Responses to requests carrying credentials are marked
// no-store.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hw := &headerDefaultsWriter{ResponseWriter: w, tls: r.TLS != nil, private: r.Header.Get("Authorization") != ""}
		next.ServeHTTP(hw, r)
	})
}

type headerDefaultsWriter struct {
	http.ResponseWriter
	tls     bool
	private bool
	applied bool
}

func (w *headerDefaultsWriter) apply() {
	if w.applied {
		return
	}
	w.applied = true
	h := w.ResponseWriter.Header()
	for _, kv := range edgeHeaders {
		if h.Get(kv[0]) == "" {
			h.Set(kv[0], kv[1])
		}
	}
	if w.tls && h.Get("Strict-Transport-Security") == "" {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	if w.private {
		h.Set("Cache-Control", "no-store")
	}
}

func (w *headerDefaultsWriter) WriteHeader(code int) {
	w.apply()
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerDefaultsWriter) Write(p []byte) (int, error) {
	w.apply()
	return w.ResponseWriter.Write(p)
}

func (w *headerDefaultsWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, X-Request-Id"
	corsExposeHeaders = "X-Request-Id, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset"
	corsMaxAge        = "600"
)

// CORS answers preflight requests at the edge and decorates simple requests
// from allowed origins. "*" allows any origin. Credentials are bearer tokens
// in the Authorization header, so Access-Control-Allow-Credentials is never
// sent.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	anyOrigin := false
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			anyOrigin = true
			continue
		}
		allowed[o] = struct{}{}
	}
	originAllowed := func(origin string) bool {
		if anyOrigin {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			ok := originAllowed(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if !ok {
					observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "rejected_preflight")
					response.Error(w, r, http.StatusForbidden, "CORS_ORIGIN_REJECTED", "origin not allowed", nil)
					return
				}
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "preflight")
				h.Set("Access-Control-Allow-Origin", allowOriginValue(anyOrigin, origin))
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if ok {
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "allow_origin")
				h.Set("Access-Control-Allow-Origin", allowOriginValue(anyOrigin, origin))
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			} else {
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "rejected_origin")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowOriginValue(anyOrigin bool, origin string) string {
	if anyOrigin {
		return "*"
	}
	return origin
}

func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = &bodyLimitObserver{
				readCloser: http.MaxBytesReader(w, r.Body, maxBytes),
				ctx:        r.Context(),
			}
			next.ServeHTTP(w, r)
		})
	}
}

type bodyLimitObserver struct {
	readCloser io.ReadCloser
	ctx        context.Context
	emitted    bool
}

func (o *bodyLimitObserver) Read(p []byte) (int, error) {
	n, err := o.readCloser.Read(p)
	if err == nil || errors.Is(err, io.EOF) || o.emitted {
		return n, err
	}
	o.emitted = true
	outcome := "read_error"
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		outcome = "rejected_too_large"
	}
	observability.RecordMiddlewareValidationEvent(o.ctx, "body_limit", outcome)
	return n, err
}

func (o *bodyLimitObserver) Close() error {
	return o.readCloser.Close()
}
