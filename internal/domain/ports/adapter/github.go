package adapter

import (
	"context"
	"time"

	"gitmon-arena/internal/domain/model"
)

// StatsSource is the capability-degradation seam of the fetcher: the accurate
// GraphQL source and the events-feed estimator both implement it, and a
// composite tries the first before falling back to the second. Snapshots are
// tagged with their provenance so callers can tell the two apart.
type StatsSource interface {
	UserStats(ctx context.Context, username string) (*model.StatsSnapshot, error)
	WindowStats(ctx context.Context, username string, from, to time.Time) (*model.WindowStats, error)
}

// GitHubAdapter is the full surface the sync use case needs from GitHub.
type GitHubAdapter interface {
	StatsSource

	// Profile fetches only the cheap REST profile fields, used by incremental
	// syncs that deliberately skip the expensive lifetime contribution walk.
	Profile(ctx context.Context, username string) (*model.Profile, error)

	// ResolveLogin maps a provider account id to the current GitHub login,
	// for users whose stored login is missing or stale.
	ResolveLogin(ctx context.Context, accountID string) (string, error)

	RateLimit(ctx context.Context) (model.RateLimitStatus, error)

	// WithToken derives an adapter authenticated with a per-user credential.
	// An empty token returns the receiver.
	WithToken(token string) GitHubAdapter
}
