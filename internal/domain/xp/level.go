package xp

// MaxLevel caps the level curve.
const MaxLevel = 100

// XPForLevel returns the cumulative XP required to reach level l.
// Level 1 costs nothing; above that the cost follows a strictly increasing
// cubic, so late levels are dramatically more expensive than early ones.
func XPForLevel(l int) int64 {
	if l <= 1 {
		return 0
	}
	n := int64(l)
	return 4*n*n*n - 15*n*n + 100*n - 140
}

// Level returns the largest level whose threshold the given XP total meets,
// capped at MaxLevel. Monotonic in xp; recomputing from the same total is
// idempotent.
func Level(totalXP int64) int {
	if totalXP < 0 {
		return 1
	}
	level := 1
	for l := 2; l <= MaxLevel; l++ {
		if XPForLevel(l) > totalXP {
			break
		}
		level = l
	}
	return level
}

// rankTiers maps minimum level to cosmetic title, highest first.
var rankTiers = []struct {
	minLevel int
	title    string
}{
	{50, "Coding Deity"},
	{40, "GitHub Legend"},
	{30, "Open Source Master"},
	{25, "Code Virtuoso"},
	{20, "Senior Committer"},
	{15, "Pull Request Knight"},
	{10, "Branch Wanderer"},
	{5, "Code Apprentice"},
	{3, "Novice"},
	{0, "Beginner"},
}

// RankTitle returns the cosmetic tier name for a level. Derived, never stored.
func RankTitle(level int) string {
	for _, t := range rankTiers {
		if level >= t.minLevel {
			return t.title
		}
	}
	return rankTiers[len(rankTiers)-1].title
}
