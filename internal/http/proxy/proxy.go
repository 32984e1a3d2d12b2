package proxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/middleware"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/http/response"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

const (
	HeaderSubject = "X-Auth-Subject"
	HeaderScopes  = "X-Auth-Scopes"
)

type upstream struct {
	prefix string
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// Gateway forwards requests to the upstream owning the longest matching path
// prefix. Prefixes match on segment boundaries.
type Gateway struct {
	routes []upstream
	logger *slog.Logger
}

func New(routes []config.Route, transport http.RoundTripper, logger *slog.Logger) (*Gateway, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("gateway requires at least one route")
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{logger: logger}
	for _, rt := range routes {
		target, err := url.Parse(rt.Target)
		if err != nil {
			return nil, fmt.Errorf("parse route target %q: %w", rt.Target, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route target %q must be an absolute url", rt.Target)
		}
		prefix := strings.TrimSuffix(rt.Prefix, "/")
		if prefix == "" {
			prefix = "/"
		}
		u := upstream{prefix: prefix, target: target}
		u.proxy = &httputil.ReverseProxy{
			Rewrite:      rewriteFor(prefix, target),
			Transport:    transport,
			ErrorHandler: g.upstreamError(prefix),
		}
		g.routes = append(g.routes, u)
	}
	sort.SliceStable(g.routes, func(i, j int) bool {
		return len(g.routes[i].prefix) > len(g.routes[j].prefix)
	})
	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := g.match(r.URL.Path)
	if !ok {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "no route for path", nil)
		return
	}
	observability.AnnotateRequest(r.Context(), "upstream", route.prefix)
	start := time.Now()
	ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
	route.proxy.ServeHTTP(ww, r)
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	observability.RecordProxyRequest(r.Context(), route.prefix, status, time.Since(start))
}

func (g *Gateway) match(p string) (upstream, bool) {
	for _, rt := range g.routes {
		if hasPathPrefix(p, rt.prefix) {
			return rt, true
		}
	}
	return upstream{}, false
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}

func rewriteFor(prefix string, target *url.URL) func(*httputil.ProxyRequest) {
	basePath := strings.TrimSuffix(target.Path, "/")
	return func(pr *httputil.ProxyRequest) {
		out := pr.Out
		out.URL.Scheme = target.Scheme
		out.URL.Host = target.Host
		out.Host = target.Host
		if basePath != "" {
			rest := pr.In.URL.Path
			if prefix != "/" {
				rest = strings.TrimPrefix(rest, prefix)
			}
			out.URL.Path = basePath + rest
			out.URL.RawPath = ""
		}
		pr.SetXForwarded()

		for name := range out.Header {
			if strings.HasPrefix(http.CanonicalHeaderKey(name), "X-Auth-") {
				out.Header.Del(name)
			}
		}
		if claims, ok := middleware.ClaimsFromContext(pr.In.Context()); ok {
			out.Header.Set(HeaderSubject, claims.Subject)
			if len(claims.Scopes) > 0 {
				out.Header.Set(HeaderScopes, strings.Join(claims.Scopes, " "))
			}
		}
	}
}

func (g *Gateway) upstreamError(prefix string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		g.logger.ErrorContext(r.Context(), "upstream request failed",
			"route", prefix,
			"path", r.URL.Path,
			"error", err,
		)
		response.Error(w, r, http.StatusBadGateway, "BAD_GATEWAY", "upstream unavailable", nil)
	}
}
