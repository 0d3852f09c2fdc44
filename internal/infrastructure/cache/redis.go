package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// RedisOptions configure the client shared by the idempotency store and the
// event stream.
type RedisOptions struct {
	Addr        string
	DB          int
	PingTimeout time.Duration
}

// OpenRedis connects and pings within PingTimeout.
func OpenRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	r := redis.NewClient(&redis.Options{Addr: o.Addr, DB: o.DB})
	pctx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()
	if err := r.Ping(pctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s/%d: %w", o.Addr, o.DB, err)
	}
	return r, nil
}
