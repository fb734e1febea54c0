package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `
id, email, github_account_id, github_login, display_name, monster, access_token, registered_at,
xp, level, weekly_xp, week_start_date, daily_xp, daily_xp_date,
total_commits, total_prs, total_stars, total_repos,
current_streak, longest_streak,
bio, location, followers, following,
first_synced_at, last_xp_update, all_time_rank, weekly_rank, rank_updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.GithubAccountID, &u.GithubLogin, &u.DisplayName, &u.Monster, &u.AccessToken, &u.RegisteredAt,
		&u.XP, &u.Level, &u.WeeklyXP, &u.WeekStartDate, &u.DailyXP, &u.DailyXPDate,
		&u.TotalCommits, &u.TotalPRs, &u.TotalStars, &u.TotalRepos,
		&u.CurrentStreak, &u.LongestStreak,
		&u.Bio, &u.Location, &u.Followers, &u.Following,
		&u.FirstSyncedAt, &u.LastXPUpdate, &u.AllTimeRank, &u.WeeklyRank, &u.RankUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scanning user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
ON CONFLICT (id) DO UPDATE SET
  email=$2, github_account_id=$3, github_login=$4, display_name=$5, monster=$6, access_token=$7,
  xp=$9, level=$10, weekly_xp=$11, week_start_date=$12, daily_xp=$13, daily_xp_date=$14,
  total_commits=$15, total_prs=$16, total_stars=$17, total_repos=$18,
  current_streak=$19, longest_streak=$20,
  bio=$21, location=$22, followers=$23, following=$24,
  first_synced_at=$25, last_xp_update=$26;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		u.ID, u.Email, u.GithubAccountID, u.GithubLogin, u.DisplayName, u.Monster, u.AccessToken, u.RegisteredAt,
		u.XP, u.Level, u.WeeklyXP, u.WeekStartDate, u.DailyXP, u.DailyXPDate,
		u.TotalCommits, u.TotalPRs, u.TotalStars, u.TotalRepos,
		u.CurrentStreak, u.LongestStreak,
		u.Bio, u.Location, u.Followers, u.Following,
		u.FirstSyncedAt, u.LastXPUpdate, u.AllTimeRank, u.WeeklyRank, u.RankUpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: saving user: %w", err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, q, id))
}

func (r *UserRepo) FindByGithubLogin(ctx context.Context, tx repository.Tx, login string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(github_login)=lower($1);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, q, login))
}

func (r *UserRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY registered_at ASC;`
	return r.list(ctx, tx, q)
}

// rankOrder is the deterministic leaderboard ordering: period XP descending,
// most recently synced first among ties, then id as the final stable key.
func rankOrder(period repository.LeaderboardPeriod) string {
	col := "xp"
	if period == repository.PeriodWeekly {
		col = "weekly_xp"
	}
	return col + " DESC, last_xp_update DESC, id ASC"
}

func (r *UserRepo) ListRanked(ctx context.Context, tx repository.Tx, period repository.LeaderboardPeriod, limit int) ([]*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY ` + rankOrder(period)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return r.list(ctx, tx, q+";")
}

func (r *UserRepo) list(ctx context.Context, tx repository.Tx, q string) ([]*model.User, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: counting users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) CountOutranking(ctx context.Context, tx repository.Tx, u *model.User, period repository.LeaderboardPeriod) (int, error) {
	col := "xp"
	val := u.XP
	if period == repository.PeriodWeekly {
		col = "weekly_xp"
		val = u.WeeklyXP
	}
	q := `
SELECT COUNT(*) FROM users
 WHERE ` + col + ` > $1
    OR (` + col + ` = $1 AND last_xp_update > $2)
    OR (` + col + ` = $1 AND last_xp_update = $2 AND id < $3);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, q, val, u.LastXPUpdate, u.ID).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: counting outranking users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) UpdateRanks(ctx context.Context, tx repository.Tx, period repository.LeaderboardPeriod, batch []repository.RankAssignment) (int, error) {
	col := "all_time_rank"
	if period == repository.PeriodWeekly {
		col = "weekly_rank"
	}
	q := `UPDATE users SET ` + col + `=$1, rank_updated_at=NOW() WHERE id=$2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	// Per-record failures reduce the returned count but do not abort the
	// batch; the caller derives the failure count from len(batch).
	updated := 0
	for _, a := range batch {
		if _, err := ex.Exec(ctx, q, a.Rank, a.UserID); err != nil {
			continue
		}
		updated++
	}
	return updated, nil
}
