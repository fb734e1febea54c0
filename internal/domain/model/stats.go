package model

import "time"

// Provenance tags where a snapshot's numbers came from, so callers can tell
// authoritative GraphQL counts from the events-feed estimate used on fallback.
type Provenance string

const (
	ProvenanceAccurate  Provenance = "accurate"
	ProvenanceEstimated Provenance = "estimated"
)

// StatsSnapshot is the raw per-user read from GitHub at one point in time.
// It is immutable once fetched and never cached across syncs.
type StatsSnapshot struct {
	Login     string
	Name      string
	Bio       string
	Location  string
	Followers int
	Following int
	CreatedAt time.Time

	PublicRepos int
	TotalStars  int
	TotalForks  int
	Languages   []string

	// All-time contribution counts. On the estimated path these are a strict
	// lower bound derived from the recent events feed.
	TotalCommits int
	TotalPRs     int
	TotalIssues  int
	TotalReviews int

	Provenance Provenance
	FetchedAt  time.Time
}

// Profile is the cheap REST-only slice of a user's GitHub presence.
type Profile struct {
	Login       string
	Name        string
	Bio         string
	Location    string
	Followers   int
	Following   int
	PublicRepos int
	CreatedAt   time.Time
}

// WindowStats holds contribution counts restricted to a [From, To) range.
type WindowStats struct {
	From       time.Time
	To         time.Time
	Commits    int
	PRs        int
	Issues     int
	Reviews    int
	Provenance Provenance
}

// RateLimitStatus mirrors GitHub's rate-limit probe.
type RateLimitStatus struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Exhausted reports whether remaining capacity has dropped below the given
// fraction of the limit (e.g. 0.2 for the 20% batch-run safety threshold).
func (r RateLimitStatus) Exhausted(threshold float64) bool {
	if r.Limit <= 0 {
		return false
	}
	return float64(r.Remaining) < float64(r.Limit)*threshold
}

// SyncResult reports one orchestration run back to the caller. It is never
// persisted; onboarding and force-sync responses serialize it and drop it.
type SyncResult struct {
	UserID      string         `json:"user_id"`
	GithubLogin string         `json:"github_login"`
	FirstSync   bool           `json:"first_sync"`
	OldXP       int64          `json:"old_xp"`
	NewXP       int64          `json:"new_xp"`
	OldWeeklyXP int64          `json:"old_weekly_xp"`
	NewWeeklyXP int64          `json:"new_weekly_xp"`
	Level       int            `json:"level"`
	Multiplier  float64        `json:"multiplier"`
	Provenance  Provenance     `json:"provenance"`
	Snapshot    *StatsSnapshot `json:"-"`
	Duration    time.Duration  `json:"duration_ms"`
}

// LeaderboardEntry is one row of the ordered leaderboard read model.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	GithubLogin string `json:"github_login"`
	Monster     string `json:"monster"`
	XP          int64  `json:"xp"`
	Level       int    `json:"level"`
	RankTitle   string `json:"rank_title"`
	Commits     int    `json:"commits"`
	PRs         int    `json:"prs"`
	Stars       int    `json:"stars"`
	Repos       int    `json:"repos"`
}
