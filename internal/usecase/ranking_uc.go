package usecase

import (
	"context"
	"time"

	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/repository"
	"gitmon-arena/internal/domain/xp"
	"gitmon-arena/internal/infra/logging"
	"gitmon-arena/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ RankingUseCase = (*rankingUC)(nil)

// rankBatchSize bounds one persistence write so a large user table never
// turns rank recalculation into a single long transaction.
const rankBatchSize = 100

// RankingSummary reports one recalculation pass.
type RankingSummary struct {
	AllTimeRanked int           `json:"all_time_ranked"`
	WeeklyRanked  int           `json:"weekly_ranked"`
	TotalUsers    int           `json:"total_users"`
	Failed        int           `json:"failed"`
	Duration      time.Duration `json:"duration_ms"`
}

type RankingUseCase interface {
	UpdateAllRankings(ctx context.Context) (*RankingSummary, error)
	Leaderboard(ctx context.Context, period repository.LeaderboardPeriod, limit int, requesterID string) ([]model.LeaderboardEntry, *model.LeaderboardEntry, error)
}

type rankingUC struct {
	users repository.UserRepository
	log   *zerolog.Logger

	now func() time.Time
}

func NewRankingUseCase(users repository.UserRepository, logger *zerolog.Logger) *rankingUC {
	return &rankingUC{users: users, log: logger, now: time.Now}
}

// UpdateAllRankings assigns ordinal ranks 1..N for both periods. The repo's
// ListRanked ordering is fully deterministic (XP desc, last update desc, id
// asc), so two consecutive passes over the same data agree exactly.
func (r *rankingUC) UpdateAllRankings(ctx context.Context) (*RankingSummary, error) {
	defer logging.TraceDuration(r.log, "RankingUC.UpdateAllRankings")()
	start := r.now()

	if err := r.resetStaleWeeks(ctx); err != nil {
		return nil, err
	}

	summary := &RankingSummary{}
	for _, period := range []repository.LeaderboardPeriod{repository.PeriodAllTime, repository.PeriodWeekly} {
		ranked, failed, err := r.rankPeriod(ctx, period)
		if err != nil {
			return nil, err
		}
		summary.Failed += failed
		if period == repository.PeriodAllTime {
			summary.AllTimeRanked = ranked
			summary.TotalUsers = ranked + failed
		} else {
			summary.WeeklyRanked = ranked
		}
	}

	summary.Duration = r.now().Sub(start)
	r.log.Info().Int("all_time", summary.AllTimeRanked).Int("weekly", summary.WeeklyRanked).
		Int("failed", summary.Failed).Dur("duration", summary.Duration).Msg("rankings recalculated")
	return summary, nil
}

func (r *rankingUC) rankPeriod(ctx context.Context, period repository.LeaderboardPeriod) (ranked, failed int, err error) {
	users, err := r.users.ListRanked(ctx, repository.NoTX, period, 0)
	if err != nil {
		return 0, 0, err
	}

	assignments := make([]repository.RankAssignment, len(users))
	for i, u := range users {
		assignments[i] = repository.RankAssignment{UserID: u.ID, Rank: i + 1}
	}

	for i := 0; i < len(assignments); i += rankBatchSize {
		end := i + rankBatchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		batch := assignments[i:end]
		n, err := r.users.UpdateRanks(ctx, repository.NoTX, period, batch)
		if err != nil {
			// Catastrophic (connection-level) failure for this batch: count
			// it and keep going with the remaining batches.
			r.log.Error().Err(err).Str("period", string(period)).Int("batch_start", i).Msg("rank batch failed")
			failed += len(batch)
			continue
		}
		ranked += n
		if miss := len(batch) - n; miss > 0 {
			failed += miss
		}
	}
	metrics.AddRankUpdates(string(period), "ok", ranked)
	metrics.AddRankUpdates(string(period), "failed", failed)
	return ranked, failed, nil
}

// resetStaleWeeks is the lazy weekly reset: any user whose week started
// before the current Monday is zeroed before ranking. Safe to run
// concurrently because the reset is idempotent within a week.
func (r *rankingUC) resetStaleWeeks(ctx context.Context) error {
	users, err := r.users.ListAll(ctx, repository.NoTX)
	if err != nil {
		return err
	}
	now := r.now()
	for _, u := range users {
		if !u.ResetWeekIfStale(now) {
			continue
		}
		if err := r.users.Save(ctx, repository.NoTX, u); err != nil {
			r.log.Warn().Err(err).Str("user_id", u.ID).Msg("weekly reset persist failed")
		}
	}
	return nil
}

// Leaderboard returns the top entries for a period plus, when requesterID is
// set, that user's own row even if it falls outside the window.
func (r *rankingUC) Leaderboard(ctx context.Context, period repository.LeaderboardPeriod, limit int, requesterID string) ([]model.LeaderboardEntry, *model.LeaderboardEntry, error) {
	defer logging.TraceDuration(r.log, "RankingUC.Leaderboard")()
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	if err := r.resetStaleWeeks(ctx); err != nil {
		return nil, nil, err
	}

	users, err := r.users.ListRanked(ctx, repository.NoTX, period, limit)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = toEntry(u, i+1, period)
	}

	var own *model.LeaderboardEntry
	if requesterID != "" {
		u, err := r.users.FindByID(ctx, repository.NoTX, requesterID)
		if err != nil && err != domain.ErrNotFound {
			return nil, nil, err
		}
		if u != nil {
			ahead, err := r.users.CountOutranking(ctx, repository.NoTX, u, period)
			if err != nil {
				return nil, nil, err
			}
			e := toEntry(u, ahead+1, period)
			own = &e
		}
	}
	return entries, own, nil
}

func toEntry(u *model.User, rank int, period repository.LeaderboardPeriod) model.LeaderboardEntry {
	score := u.XP
	if period == repository.PeriodWeekly {
		score = u.WeeklyXP
	}
	name := u.DisplayName
	if name == "" {
		name = u.GithubLogin
	}
	return model.LeaderboardEntry{
		Rank:        rank,
		UserID:      u.ID,
		DisplayName: name,
		GithubLogin: u.GithubLogin,
		Monster:     u.Monster,
		XP:          score,
		Level:       u.Level,
		RankTitle:   xp.RankTitle(u.Level),
		Commits:     u.TotalCommits,
		PRs:         u.TotalPRs,
		Stars:       u.TotalStars,
		Repos:       u.TotalRepos,
	}
}
