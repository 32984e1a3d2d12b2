package health

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/gorm"
)

// CheckFunc adapts a ping-style function into a named Checker.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name string
	fn   CheckFunc
}

func Named(name string, fn CheckFunc) Checker {
	return namedCheck{name: name, fn: fn}
}

func (c namedCheck) Check(ctx context.Context) CheckResult {
	if err := c.fn(ctx); err != nil {
		return CheckResult{Name: c.name, Error: err.Error()}
	}
	return CheckResult{Name: c.name, Healthy: true}
}

// NewDBChecker returns nil when the catalog is not backed by SQL.
func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return Named("sql", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

func NewMongoChecker(client *mongo.Client) Checker {
	if client == nil {
		return nil
	}
	return Named("mongo", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return Named("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

var errNoUpstreamHost = errors.New("upstream target has no host")

// NewUpstreamChecker reports whether a TCP connection to target can be opened.
// It does not send a request, so upstream auth and routing are not involved.
func NewUpstreamChecker(name, target string) Checker {
	return Named("upstream:"+name, func(ctx context.Context) error {
		addr, err := dialAddress(target)
		if err != nil {
			return err
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

func dialAddress(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errNoUpstreamHost
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
