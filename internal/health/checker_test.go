package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockChecker struct {
	result CheckResult
}

func (m mockChecker) Check(context.Context) CheckResult {
	return m.result
}

func TestProbeRunnerReady(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "mongo", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestProbeRunnerUnready(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "mongo", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: false, Error: errors.New("down").Error()}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready")
	}
	if len(results) != 2 || results[1].Error != "down" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestProbeRunnerStartupGrace(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 2*time.Second,
		mockChecker{result: CheckResult{Name: "mongo", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready during grace period")
	}
	if len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("unexpected grace results: %+v", results)
	}
}

func TestProbeRunnerSkipsUnconfiguredCheckers(t *testing.T) {
	runner := NewProbeRunner(0, 0, NewDBChecker(nil), NewMongoChecker(nil), NewRedisChecker(nil))
	ready, results := runner.Ready(context.Background())
	if !ready || len(results) != 0 {
		t.Fatalf("expected no checks and ready, got ready=%v results=%+v", ready, results)
	}

	var nilRunner *ProbeRunner
	if ready, _ := nilRunner.Ready(context.Background()); !ready {
		t.Fatal("expected nil runner to report ready")
	}
}

func TestDBCheckerPingsSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:health_check?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	res := NewDBChecker(db).Check(context.Background())
	if !res.Healthy || res.Name != "sql" {
		t.Fatalf("expected healthy sql check, got %+v", res)
	}

	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	if res := NewDBChecker(db).Check(context.Background()); res.Healthy {
		t.Fatal("expected closed database to be unhealthy")
	}
}

func TestRedisCheckerAgainstMiniredis(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if res := NewRedisChecker(client).Check(context.Background()); !res.Healthy {
		t.Fatalf("expected healthy redis, got %+v", res)
	}
	m.Close()
	if res := NewRedisChecker(client).Check(context.Background()); res.Healthy {
		t.Fatal("expected stopped redis to be unhealthy")
	}
}

func TestProbeRunnerRunsChecksConcurrentlyInOrder(t *testing.T) {
	slow := func(name string) Checker {
		return Named(name, func(ctx context.Context) error {
			select {
			case <-time.After(150 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	runner := NewProbeRunner(time.Second, 0, slow("a"), slow("b"), slow("c"))

	start := time.Now()
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatalf("expected ready, got %+v", results)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("checks did not overlap, took %v", elapsed)
	}
	for i, name := range []string{"a", "b", "c"} {
		if results[i].Name != name {
			t.Fatalf("result %d: expected %s, got %s", i, name, results[i].Name)
		}
	}
}

func TestProbeRunnerAppliesPerCheckTimeout(t *testing.T) {
	hang := Named("hang", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ready, results := NewProbeRunner(50*time.Millisecond, 0, hang).Ready(context.Background())
	if ready || results[0].Error != context.DeadlineExceeded.Error() {
		t.Fatalf("expected deadline failure, got ready=%v %+v", ready, results)
	}
}

func TestUpstreamChecker(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	res := NewUpstreamChecker("catalog", srv.URL+"/api-docs").Check(context.Background())
	if !res.Healthy || res.Name != "upstream:catalog" {
		t.Fatalf("expected reachable upstream, got %+v", res)
	}

	srv.Close()
	if res := NewUpstreamChecker("catalog", srv.URL).Check(context.Background()); res.Healthy {
		t.Fatal("expected closed upstream to be unhealthy")
	}
	if res := NewUpstreamChecker("bad", "not-a-url").Check(context.Background()); res.Healthy {
		t.Fatal("expected hostless target to be unhealthy")
	}
}

func TestDialAddressDefaultsPortByScheme(t *testing.T) {
	cases := map[string]string{
		"http://catalog":        "catalog:80",
		"https://catalog/api":   "catalog:443",
		"http://catalog:8084/x": "catalog:8084",
		"http://[::1]:9000":     "[::1]:9000",
	}
	for in, want := range cases {
		got, err := dialAddress(in)
		if err != nil || got != want {
			t.Fatalf("%s: expected %s, got %s (%v)", in, want, got, err)
		}
	}
}
