package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"gitmon-arena/internal/config"
	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/adapter"
	"gitmon-arena/internal/domain/ports/repository"
	"gitmon-arena/internal/domain/xp"
	"gitmon-arena/internal/infra/logging"
	"gitmon-arena/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ SyncUseCase = (*syncUC)(nil)

// Locker is the minimal distributed-lock surface the orchestrator needs; the
// redis implementation satisfies it. A nil locker disables locking.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Budget throttles our own outbound GitHub traffic across replicas,
// independently of GitHub's server-side accounting. A nil budget disables
// client-side throttling.
type Budget interface {
	Allow(ctx context.Context, source string, limit int, window time.Duration) (bool, error)
}

// BatchSummary reports one sync-all run for the trigger endpoint and logs.
type BatchSummary struct {
	RunID    string              `json:"run_id"`
	Total    int                 `json:"total"`
	Synced   int                 `json:"synced"`
	Failed   int                 `json:"failed"`
	Skipped  int                 `json:"skipped"`
	Aborted  bool                `json:"aborted"`
	Duration time.Duration       `json:"duration_ms"`
	Sample   []*model.SyncResult `json:"sample,omitempty"`
}

// SyncUseCase is the orchestrator: resolve identity, fetch stats, apply the
// XP formulas, persist. A (nil, nil) return from SyncUser means the user was
// skipped because no GitHub identity could be resolved.
type SyncUseCase interface {
	SyncUser(ctx context.Context, userID string) (*model.SyncResult, error)
	SyncAll(ctx context.Context) (*BatchSummary, error)
}

type syncUC struct {
	users  repository.UserRepository
	gh     adapter.GitHubAdapter
	locker Locker
	budget Budget
	cfg    config.SyncConfig
	log    *zerolog.Logger

	now func() time.Time // injectable clock for tests
}

func NewSyncUseCase(users repository.UserRepository, gh adapter.GitHubAdapter, locker Locker, budget Budget, cfg config.SyncConfig, logger *zerolog.Logger) *syncUC {
	return &syncUC{
		users:  users,
		gh:     gh,
		locker: locker,
		budget: budget,
		cfg:    cfg,
		log:    logger,
		now:    time.Now,
	}
}

func (s *syncUC) SyncUser(ctx context.Context, userID string) (*model.SyncResult, error) {
	defer logging.TraceDuration(s.log, "SyncUC.SyncUser")()
	start := s.now()

	user, err := s.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		key := syncLockKey(user.ID)
		token, err := s.locker.TryLock(ctx, key, 2*time.Minute)
		if err != nil {
			return nil, err
		}
		defer func() { _ = s.locker.Unlock(ctx, key, token) }()
	}

	login, err := s.resolveLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	if login == "" {
		// Non-fatal skip: no linked account and no stored login.
		s.log.Debug().Str("user_id", user.ID).Msg("sync skipped, no github identity")
		metrics.IncSync("skipped")
		return nil, nil
	}

	if s.budget != nil {
		ok, err := s.budget.Allow(ctx, "github", s.cfg.APIBudget, time.Hour)
		if err != nil {
			// A broken budget store must not take syncing down with it.
			s.log.Warn().Err(err).Msg("rate budget check failed, proceeding")
		} else if !ok {
			metrics.IncSync("throttled")
			return nil, domain.ErrRateLimited
		}
	}

	gh := s.gh.WithToken(user.AccessToken)
	now := s.now()
	user.ResetWeekIfStale(now)
	user.ResetDayIfStale(now)

	var result *model.SyncResult
	if user.FirstSync() {
		result, err = s.firstSync(ctx, gh, user, login, now)
	} else {
		result, err = s.incrementalSync(ctx, gh, user, login, now)
	}
	if err != nil {
		metrics.IncSync("failed")
		return nil, err
	}

	// The prior row is left untouched if anything above failed; only a fully
	// computed state reaches storage.
	if err := s.users.Save(ctx, repository.NoTX, user); err != nil {
		metrics.IncSync("failed")
		return nil, err
	}

	result.Duration = s.now().Sub(start)
	metrics.IncSync("ok")
	metrics.ObserveSyncLatency(float64(result.Duration.Milliseconds()))
	return result, nil
}

func syncLockKey(userID string) string { return "sync_lock:" + userID }

func (s *syncUC) resolveLogin(ctx context.Context, user *model.User) (string, error) {
	if user.GithubLogin != "" {
		return user.GithubLogin, nil
	}
	if user.GithubAccountID == "" {
		return "", nil
	}
	login, err := s.gh.ResolveLogin(ctx, user.GithubAccountID)
	if err != nil {
		// Resolution failure is a skip, not a batch-fatal error.
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("login resolution failed")
		return "", nil
	}
	user.GithubLogin = login
	return login, nil
}

// firstSync seeds lifetime XP from all-time statistics, with the streak
// multiplier applied once. The seed is not subject to the daily cap; the cap
// exists to bound recurring gains, not the one-time baseline.
func (s *syncUC) firstSync(ctx context.Context, gh adapter.GitHubAdapter, user *model.User, login string, now time.Time) (*model.SyncResult, error) {
	snap, err := gh.UserStats(ctx, login)
	if err != nil {
		return nil, err
	}

	from, to := s.weekWindow(now)
	window, err := gh.WindowStats(ctx, login, from, to)
	if err != nil {
		return nil, err
	}

	lifetime := xp.Lifetime(xp.LifetimeStats{
		Followers: snap.Followers,
		Stars:     snap.TotalStars,
		Forks:     snap.TotalForks,
		Repos:     snap.PublicRepos,
		Commits:   snap.TotalCommits,
		PRs:       snap.TotalPRs,
	})
	mult := xp.StreakMultiplier(user.CurrentStreak)
	total := int64(float64(lifetime) * mult)
	weekly := xp.Weekly(window.Commits, window.PRs, window.Issues, window.Reviews)

	result := &model.SyncResult{
		UserID:      user.ID,
		GithubLogin: login,
		FirstSync:   true,
		OldXP:       user.XP,
		NewXP:       total,
		OldWeeklyXP: user.WeeklyXP,
		NewWeeklyXP: weekly,
		Multiplier:  mult,
		Provenance:  snap.Provenance,
		Snapshot:    snap,
	}

	user.XP = total
	user.WeeklyXP = weekly
	user.Level = xp.Level(total)
	user.TotalCommits = snap.TotalCommits
	user.TotalPRs = snap.TotalPRs
	user.TotalStars = snap.TotalStars
	user.TotalRepos = snap.PublicRepos
	s.applyProfile(user, snap)
	first := now
	user.FirstSyncedAt = &first
	user.LastXPUpdate = now
	result.Level = user.Level
	return result, nil
}

// incrementalSync adjusts lifetime XP by the net change of the weekly score.
// It deliberately skips the expensive lifetime contribution walk; the cheap
// REST profile read keeps cached fields fresh.
func (s *syncUC) incrementalSync(ctx context.Context, gh adapter.GitHubAdapter, user *model.User, login string, now time.Time) (*model.SyncResult, error) {
	from, to := s.weekWindow(now)
	window, err := gh.WindowStats(ctx, login, from, to)
	if err != nil {
		return nil, err
	}

	oldXP := user.XP
	oldWeekly := user.WeeklyXP
	newWeekly := xp.Weekly(window.Commits, window.PRs, window.Issues, window.Reviews)

	// A moved weekly score is the signal that contributions landed since the
	// previous sync; the week-to-date window alone cannot tell a fresh commit
	// from one already counted days ago. Captured before the cap so an
	// exhausted daily budget does not hide real activity from the streak.
	awarded := newWeekly - oldWeekly
	activeToday := awarded > 0
	if awarded > 0 {
		awarded = xp.ApplyDailyCap(user.DailyXP, awarded)
		user.DailyXP += awarded
	}
	user.XP = xp.ApplyDelta(user.XP, 0, awarded)
	user.WeeklyXP = oldWeekly + awarded
	user.Level = xp.Level(user.XP)

	user.CurrentStreak = xp.NextStreak(user.CurrentStreak, activeToday, user.LastXPUpdate, now)
	if user.CurrentStreak > user.LongestStreak {
		user.LongestStreak = user.CurrentStreak
	}

	if profile, err := gh.Profile(ctx, login); err == nil {
		user.Bio = profile.Bio
		user.Location = profile.Location
		user.Followers = profile.Followers
		user.Following = profile.Following
		user.TotalRepos = profile.PublicRepos
		if profile.Name != "" && user.DisplayName == "" {
			user.DisplayName = profile.Name
		}
	}
	user.LastXPUpdate = now

	return &model.SyncResult{
		UserID:      user.ID,
		GithubLogin: login,
		OldXP:       oldXP,
		NewXP:       user.XP,
		OldWeeklyXP: oldWeekly,
		NewWeeklyXP: user.WeeklyXP,
		Level:       user.Level,
		Multiplier:  1.0,
		Provenance:  window.Provenance,
	}, nil
}

func (s *syncUC) applyProfile(user *model.User, snap *model.StatsSnapshot) {
	user.Bio = snap.Bio
	user.Location = snap.Location
	user.Followers = snap.Followers
	user.Following = snap.Following
	if snap.Name != "" && user.DisplayName == "" {
		user.DisplayName = snap.Name
	}
}

// weekWindow is [Monday 00:00, now) by default, or a trailing 7 days when
// configured.
func (s *syncUC) weekWindow(now time.Time) (time.Time, time.Time) {
	if s.cfg.TrailingWeek {
		return now.AddDate(0, 0, -7), now
	}
	return model.StartOfWeek(now), now
}

// SyncAll walks every known user in bounded batches with an inter-batch
// delay. The delay exists to stay under GitHub's rate limit, not for
// correctness; per-user failures never abort the run.
func (s *syncUC) SyncAll(ctx context.Context) (*BatchSummary, error) {
	defer logging.TraceDuration(s.log, "SyncUC.SyncAll")()
	start := s.now()

	runID := ulid.MustNew(ulid.Timestamp(start), ulid.DefaultEntropy()).String()
	log := s.log.With().Str("run_id", runID).Logger()

	if rl, err := s.gh.RateLimit(ctx); err == nil {
		metrics.SetRateRemaining(rl.Remaining)
		if rl.Exhausted(s.cfg.RateThreshold) {
			log.Warn().Int("remaining", rl.Remaining).Int("limit", rl.Limit).
				Time("reset_at", rl.ResetAt).Msg("aborting batch run, rate budget below threshold")
			return &BatchSummary{RunID: runID, Aborted: true, Duration: s.now().Sub(start)}, nil
		}
	}

	users, err := s.users.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{RunID: runID, Total: len(users)}
	var mu sync.Mutex

	for i := 0; i < len(users); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(users) {
			end = len(users)
		}

		var wg sync.WaitGroup
		for _, u := range users[i:end] {
			wg.Add(1)
			go func(u *model.User) {
				defer wg.Done()
				res, err := s.SyncUser(ctx, u.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					summary.Failed++
					log.Warn().Err(err).Str("user_id", u.ID).Msg("user sync failed")
				case res == nil:
					summary.Skipped++
				default:
					summary.Synced++
					if len(summary.Sample) < 3 {
						summary.Sample = append(summary.Sample, res)
					}
				}
			}(u)
		}
		wg.Wait()

		if end < len(users) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.jitteredDelay()):
			}
		}
	}

	summary.Duration = s.now().Sub(start)
	metrics.SetBatchOutcome("synced", summary.Synced)
	metrics.SetBatchOutcome("failed", summary.Failed)
	metrics.SetBatchOutcome("skipped", summary.Skipped)
	log.Info().Int("total", summary.Total).Int("synced", summary.Synced).
		Int("failed", summary.Failed).Int("skipped", summary.Skipped).
		Dur("duration", summary.Duration).Msg("batch sync finished")
	return summary, nil
}

func (s *syncUC) jitteredDelay() time.Duration {
	d := s.cfg.BatchDelay
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}
