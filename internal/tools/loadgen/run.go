package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	// Token is sent as a static bearer credential. TokenSource is used when
	// Token is empty.
	Token       string
	TokenSource oauth2.TokenSource
	Client      *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status401     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	body   bool
}

var (
	docsRequests = []request{
		{method: http.MethodGet, path: "/v3/api-docs"},
		{method: http.MethodGet, path: "/swagger-ui/index.html"},
		{method: http.MethodGet, path: "/aggregate/product-service/v3/api-docs"},
	}
	readRequests  = []request{{method: http.MethodGet, path: "/api/product"}}
	writeRequests = []request{
		{method: http.MethodPost, path: "/api/product", body: true},
		{method: http.MethodPut, path: "/api/product/000000000000000000000000", body: true},
		{method: http.MethodDelete, path: "/api/product/000000000000000000000000"},
	}
)

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	profile := strings.ToLower(cfg.Profile)
	if profile == "" {
		profile = "mixed"
	}
	requests := requestsForProfile(profile)
	if len(requests) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	authorize := bearer(cfg, profile)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s401, s4xx, s5xx int64
	jobs := make(chan request, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(worker)))
			for job := range jobs {
				req, err := newRequest(ctx, baseURL, job, rng)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				if err := authorize(req); err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						atomic.AddInt64(&failures, 1)
					}
					continue
				}
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				observability.RecordLoadgenRequest(ctx, observability.StatusClass(resp.StatusCode), profile)
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode == http.StatusUnauthorized:
					atomic.AddInt64(&s401, 1)
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}(i)
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{
				TotalRequests: atomic.LoadInt64(&total),
				Failures:      atomic.LoadInt64(&failures),
				Status2xx:     atomic.LoadInt64(&s2xx),
				Status401:     atomic.LoadInt64(&s401),
				Status4xx:     atomic.LoadInt64(&s4xx),
				Status5xx:     atomic.LoadInt64(&s5xx),
			}, nil
		case <-ticker.C:
			select {
			case jobs <- requests[i%len(requests)]:
				i++
			case <-ctx.Done():
			}
		}
	}
}

// requestsForProfile returns the request rotation for a traffic profile.
// The anonymous profile sends protected requests without a token to
// exercise the gate's reject path.
func requestsForProfile(profile string) []request {
	switch profile {
	case "mixed":
		out := append([]request{}, docsRequests...)
		out = append(out, readRequests...)
		out = append(out, readRequests...)
		return append(out, writeRequests...)
	case "read":
		return append(append([]request{}, readRequests...), docsRequests[0])
	case "write":
		return append([]request{}, writeRequests...)
	case "docs":
		return append([]request{}, docsRequests...)
	case "anonymous":
		return append(append([]request{}, readRequests...), writeRequests[0])
	default:
		return nil
	}
}

func newRequest(ctx context.Context, baseURL string, job request, rng *rand.Rand) (*http.Request, error) {
	if !job.body {
		return http.NewRequestWithContext(ctx, job.method, baseURL+job.path, nil)
	}
	payload, err := json.Marshal(map[string]any{
		"name":        fmt.Sprintf("loadgen-%d", rng.Intn(100000)),
		"description": "generated by loadgen",
		"price":       float64(rng.Intn(10000)) / 100,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, job.method, baseURL+job.path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func bearer(cfg Config, profile string) func(*http.Request) error {
	switch {
	case profile == "anonymous":
		return func(*http.Request) error { return nil }
	case cfg.Token != "":
		return func(r *http.Request) error {
			r.Header.Set("Authorization", "Bearer "+cfg.Token)
			return nil
		}
	case cfg.TokenSource != nil:
		src := oauth2.ReuseTokenSource(nil, cfg.TokenSource)
		return func(r *http.Request) error {
			tok, err := src.Token()
			if err != nil {
				return fmt.Errorf("fetch access token: %w", err)
			}
			tok.SetAuthHeader(r)
			return nil
		}
	default:
		return func(*http.Request) error { return nil }
	}
}
