//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/adapter"
	"gitmon-arena/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// MockUserRepo is an in-memory UserRepository. Individual methods can be
// overridden per test via the *Func fields; the default logic operates on the
// internal map.
type MockUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User

	SaveFunc              func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
	FindByGithubLoginFunc func(ctx context.Context, tx repository.Tx, login string) (*model.User, error)
	ListAllFunc           func(ctx context.Context, tx repository.Tx) ([]*model.User, error)
	UpdateRanksFunc       func(ctx context.Context, tx repository.Tx, period repository.LeaderboardPeriod, batch []repository.RankAssignment) (int, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByGithubLogin(ctx context.Context, tx repository.Tx, login string) (*model.User, error) {
	if m.FindByGithubLoginFunc != nil {
		return m.FindByGithubLoginFunc(ctx, tx, login)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.GithubLogin == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.User, 0, len(m.store))
	for _, u := range m.store {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func rankLess(a, b *model.User, period repository.LeaderboardPeriod) bool {
	av, bv := a.XP, b.XP
	if period == repository.PeriodWeekly {
		av, bv = a.WeeklyXP, b.WeeklyXP
	}
	if av != bv {
		return av > bv
	}
	if !a.LastXPUpdate.Equal(b.LastXPUpdate) {
		return a.LastXPUpdate.After(b.LastXPUpdate)
	}
	return a.ID < b.ID
}

func (m *MockUserRepo) ListRanked(ctx context.Context, tx repository.Tx, period repository.LeaderboardPeriod, limit int) ([]*model.User, error) {
	users, err := m.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return rankLess(users[i], users[j], period) })
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (m *MockUserRepo) CountOutranking(ctx context.Context, tx repository.Tx, u *model.User, period repository.LeaderboardPeriod) (int, error) {
	users, err := m.ListAll(ctx, tx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, other := range users {
		if other.ID == u.ID {
			continue
		}
		if rankLess(other, u, period) {
			n++
		}
	}
	return n, nil
}

func (m *MockUserRepo) UpdateRanks(ctx context.Context, tx repository.Tx, period repository.LeaderboardPeriod, batch []repository.RankAssignment) (int, error) {
	if m.UpdateRanksFunc != nil {
		return m.UpdateRanksFunc(ctx, tx, period, batch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range batch {
		u, ok := m.store[a.UserID]
		if !ok {
			continue
		}
		if period == repository.PeriodWeekly {
			u.WeeklyRank = a.Rank
		} else {
			u.AllTimeRank = a.Rank
		}
		u.RankUpdatedAt = time.Now()
		n++
	}
	return n, nil
}

// MockTxManager runs the callback without a real transaction.
type MockTxManager struct{}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// MockGitHub is a scriptable GitHubAdapter.
type MockGitHub struct {
	UserStatsFunc    func(ctx context.Context, username string) (*model.StatsSnapshot, error)
	WindowStatsFunc  func(ctx context.Context, username string, from, to time.Time) (*model.WindowStats, error)
	ProfileFunc      func(ctx context.Context, username string) (*model.Profile, error)
	ResolveLoginFunc func(ctx context.Context, accountID string) (string, error)
	RateLimitFunc    func(ctx context.Context) (model.RateLimitStatus, error)
}

var _ adapter.GitHubAdapter = (*MockGitHub)(nil)

func NewMockGitHub() *MockGitHub { return &MockGitHub{} }

func (m *MockGitHub) UserStats(ctx context.Context, username string) (*model.StatsSnapshot, error) {
	if m.UserStatsFunc != nil {
		return m.UserStatsFunc(ctx, username)
	}
	return &model.StatsSnapshot{Login: username, Provenance: model.ProvenanceAccurate}, nil
}

func (m *MockGitHub) WindowStats(ctx context.Context, username string, from, to time.Time) (*model.WindowStats, error) {
	if m.WindowStatsFunc != nil {
		return m.WindowStatsFunc(ctx, username, from, to)
	}
	return &model.WindowStats{From: from, To: to, Provenance: model.ProvenanceAccurate}, nil
}

func (m *MockGitHub) Profile(ctx context.Context, username string) (*model.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, username)
	}
	return &model.Profile{Login: username}, nil
}

func (m *MockGitHub) ResolveLogin(ctx context.Context, accountID string) (string, error) {
	if m.ResolveLoginFunc != nil {
		return m.ResolveLoginFunc(ctx, accountID)
	}
	return "", domain.ErrNotFound
}

func (m *MockGitHub) RateLimit(ctx context.Context) (model.RateLimitStatus, error) {
	if m.RateLimitFunc != nil {
		return m.RateLimitFunc(ctx)
	}
	return model.RateLimitStatus{Limit: 5000, Remaining: 5000}, nil
}

func (m *MockGitHub) WithToken(token string) adapter.GitHubAdapter { return m }
