package repository

import (
	"context"

	"gitmon-arena/internal/domain/model"
)

// LeaderboardPeriod selects which XP column orders a leaderboard read.
type LeaderboardPeriod string

const (
	PeriodAllTime LeaderboardPeriod = "all"
	PeriodWeekly  LeaderboardPeriod = "week"
)

// RankAssignment carries one user's recomputed ordinal back to storage.
type RankAssignment struct {
	UserID string
	Rank   int
}

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByGithubLogin(ctx context.Context, tx Tx, login string) (*model.User, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)

	// ListRanked returns users ordered for ranking: XP for the period
	// descending, then last XP update descending, then id ascending. The
	// deterministic tiebreak keeps consecutive recalculations identical.
	ListRanked(ctx context.Context, tx Tx, period LeaderboardPeriod, limit int) ([]*model.User, error)

	// CountOutranking counts users that sort strictly ahead of the given user
	// under the same ordering, yielding their rank without a full scan client-side.
	CountOutranking(ctx context.Context, tx Tx, u *model.User, period LeaderboardPeriod) (int, error)

	// UpdateRanks bulk-writes cached rank ordinals for one period.
	UpdateRanks(ctx context.Context, tx Tx, period LeaderboardPeriod, batch []RankAssignment) (int, error)
}
