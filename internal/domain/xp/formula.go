// Package xp holds the pure scoring rules of the arena: weighted XP formulas,
// the streak multiplier, the daily cap and the level curve. Nothing in this
// package performs I/O; every function is deterministic in its inputs.
package xp

// Per-unit weights shared by the lifetime and weekly formulas. Repository
// ownership and merged work are worth far more than raw commit volume, which
// keeps commit-count gaming unattractive.
const (
	WeightFollower = 1
	WeightStar     = 10
	WeightFork     = 5
	WeightRepo     = 50
	WeightCommit   = 5
	WeightPR       = 40
	WeightIssue    = 10
	WeightReview   = 15
)

// DailyCeiling bounds how much XP a user can gain per calendar day.
const DailyCeiling = 1000

// LifetimeStats are the all-time counters feeding the first-sync formula.
type LifetimeStats struct {
	Followers int
	Stars     int
	Forks     int
	Repos     int
	Commits   int
	PRs       int
}

// Lifetime computes the one-time seed XP from all-time statistics.
func Lifetime(s LifetimeStats) int64 {
	return int64(s.Followers)*WeightFollower +
		int64(s.Stars)*WeightStar +
		int64(s.Forks)*WeightFork +
		int64(s.Repos)*WeightRepo +
		int64(s.Commits)*WeightCommit +
		int64(s.PRs)*WeightPR
}

// Weekly converts a 7-day contribution window into XP.
func Weekly(commits, prs, issues, reviews int) int64 {
	return int64(commits)*WeightCommit +
		int64(prs)*WeightPR +
		int64(issues)*WeightIssue +
		int64(reviews)*WeightReview
}

// ApplyDelta is the incremental lifetime-XP policy: the total tracks the net
// change of the weekly score rather than a full recompute. Isolated here so
// the policy can be swapped for a full recompute without touching the sync
// orchestration.
func ApplyDelta(totalXP, oldWeeklyXP, newWeeklyXP int64) int64 {
	next := totalXP + (newWeeklyXP - oldWeeklyXP)
	if next < 0 {
		return 0
	}
	return next
}

// StreakMultiplier is a non-decreasing step function of consecutive active
// days. Applied to lifetime XP on the first sync only.
func StreakMultiplier(currentStreak int) float64 {
	switch {
	case currentStreak >= 365:
		return 2.0
	case currentStreak >= 100:
		return 1.5
	case currentStreak >= 30:
		return 1.25
	case currentStreak >= 7:
		return 1.1
	default:
		return 1.0
	}
}

// ApplyDailyCap trims a pending gain so the day's accumulated XP never
// exceeds DailyCeiling. The result is never negative.
func ApplyDailyCap(currentDailyXP, newXP int64) int64 {
	if newXP <= 0 {
		return 0
	}
	room := DailyCeiling - currentDailyXP
	if room <= 0 {
		return 0
	}
	if newXP > room {
		return room
	}
	return newXP
}
