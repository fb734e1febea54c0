package redis

import (
	"context"
	"fmt"
	"time"
)

// RateBudget is a fixed-window call budget with per-source sub-limits, used
// to throttle our own outbound GitHub traffic independently of GitHub's
// server-side accounting. It is injected rather than global, so tests can
// point it at a throwaway keyspace and reset it by letting keys expire.
type RateBudget struct {
	client RedisClient
	prefix string
}

func NewRateBudget(client RedisClient, prefix string) *RateBudget {
	if prefix == "" {
		prefix = "api_budget"
	}
	return &RateBudget{client: client, prefix: prefix}
}

// Allow consumes one unit from the window for the given source and reports
// whether the call may proceed.
func (r *RateBudget) Allow(ctx context.Context, source string, limit int, window time.Duration) (bool, error) {
	key := r.key(source, window)
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

func (r *RateBudget) key(source string, window time.Duration) string {
	bucket := time.Now().Unix() / int64(window.Seconds())
	return fmt.Sprintf("%s:%s:%d", r.prefix, source, bucket)
}
