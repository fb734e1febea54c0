package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/repository"
	"gitmon-arena/internal/usecase"

	"github.com/rs/zerolog"
)

type stubUserUC struct {
	GetByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	SetMonsterFunc func(ctx context.Context, id, monster string) (*model.User, error)
}

func (s *stubUserUC) RegisterOrFetch(ctx context.Context, accountID, login, email string) (*model.User, error) {
	return nil, domain.ErrInvalidArgument
}

func (s *stubUserUC) GetByID(ctx context.Context, id string) (*model.User, error) {
	if s.GetByIDFunc != nil {
		return s.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubUserUC) SetMonster(ctx context.Context, id, monster string) (*model.User, error) {
	if s.SetMonsterFunc != nil {
		return s.SetMonsterFunc(ctx, id, monster)
	}
	return nil, domain.ErrNotFound
}

func (s *stubUserUC) Count(ctx context.Context) (int, error) { return 0, nil }

type stubSyncUC struct {
	SyncUserFunc func(ctx context.Context, userID string) (*model.SyncResult, error)
	SyncAllFunc  func(ctx context.Context) (*usecase.BatchSummary, error)
}

func (s *stubSyncUC) SyncUser(ctx context.Context, userID string) (*model.SyncResult, error) {
	if s.SyncUserFunc != nil {
		return s.SyncUserFunc(ctx, userID)
	}
	return &model.SyncResult{UserID: userID}, nil
}

func (s *stubSyncUC) SyncAll(ctx context.Context) (*usecase.BatchSummary, error) {
	if s.SyncAllFunc != nil {
		return s.SyncAllFunc(ctx)
	}
	return &usecase.BatchSummary{RunID: "run", Total: 2, Synced: 2}, nil
}

type stubRankUC struct {
	LeaderboardFunc func(ctx context.Context, period repository.LeaderboardPeriod, limit int, requesterID string) ([]model.LeaderboardEntry, *model.LeaderboardEntry, error)
}

func (s *stubRankUC) UpdateAllRankings(ctx context.Context) (*usecase.RankingSummary, error) {
	return &usecase.RankingSummary{AllTimeRanked: 2, WeeklyRanked: 2}, nil
}

func (s *stubRankUC) Leaderboard(ctx context.Context, period repository.LeaderboardPeriod, limit int, requesterID string) ([]model.LeaderboardEntry, *model.LeaderboardEntry, error) {
	if s.LeaderboardFunc != nil {
		return s.LeaderboardFunc(ctx, period, limit, requesterID)
	}
	return []model.LeaderboardEntry{}, nil, nil
}

func newTestServer(userUC *stubUserUC, syncUC *stubSyncUC, rankUC *stubRankUC) (*Server, *AuthManager) {
	l := zerolog.Nop()
	auth := NewAuthManager("test-secret", time.Hour)
	if userUC == nil {
		userUC = &stubUserUC{}
	}
	if syncUC == nil {
		syncUC = &stubSyncUC{}
	}
	if rankUC == nil {
		rankUC = &stubRankUC{}
	}
	return NewServer(userUC, syncUC, rankUC, auth, "cron-secret", &l), auth
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(nil, nil, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRequireCronSecret(t *testing.T) {
	s, _ := newTestServer(nil, nil, nil)
	router := s.Router()

	t.Run("missing token is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/all", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong token is 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/all", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("correct token runs the batch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/all", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body struct {
			Sync struct {
				Synced int `json:"synced"`
			} `json:"sync"`
			Ranking struct {
				AllTimeRanked int `json:"all_time_ranked"`
			} `json:"ranking"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if body.Sync.Synced != 2 || body.Ranking.AllTimeRanked != 2 {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("unset secret rejects everything", func(t *testing.T) {
		l := zerolog.Nop()
		noSecret := NewServer(&stubUserUC{}, &stubSyncUC{}, &stubRankUC{}, NewAuthManager("x", time.Hour), "", &l)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/all", nil)
		req.Header.Set("Authorization", "Bearer anything")
		rec := httptest.NewRecorder()
		noSecret.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestHandleSyncUser(t *testing.T) {
	syncUC := &stubSyncUC{}
	s, auth := newTestServer(nil, syncUC, nil)
	router := s.Router()
	token, err := auth.Mint("u1")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	authedReq := func(userID string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/user/"+userID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	t.Run("requires a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/user/u1", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("only the owner may force a sync", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedReq("someone-else"))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("returns the sync result", func(t *testing.T) {
		syncUC.SyncUserFunc = func(ctx context.Context, userID string) (*model.SyncResult, error) {
			return &model.SyncResult{UserID: userID, NewXP: 360}, nil
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedReq("u1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"new_xp":360`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("a skipped sync is 200 with skipped=true", func(t *testing.T) {
		syncUC.SyncUserFunc = func(ctx context.Context, userID string) (*model.SyncResult, error) {
			return nil, nil
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedReq("u1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"skipped":true`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("a held lock maps to 409", func(t *testing.T) {
		syncUC.SyncUserFunc = func(ctx context.Context, userID string) (*model.SyncResult, error) {
			return nil, domain.ErrSyncInProgress
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedReq("u1"))
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}

func TestHandleLeaderboard(t *testing.T) {
	rankUC := &stubRankUC{}
	s, auth := newTestServer(nil, nil, rankUC)
	router := s.Router()

	rankUC.LeaderboardFunc = func(ctx context.Context, period repository.LeaderboardPeriod, limit int, requesterID string) ([]model.LeaderboardEntry, *model.LeaderboardEntry, error) {
		entries := []model.LeaderboardEntry{{Rank: 1, UserID: "top", XP: 900}}
		if requesterID != "" {
			return entries, &model.LeaderboardEntry{Rank: 42, UserID: requesterID}, nil
		}
		return entries, nil, nil
	}

	t.Run("anonymous request gets entries only", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?period=week&limit=10", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"period":"week"`) {
			t.Errorf("period missing: %s", body)
		}
		if strings.Contains(body, `"me"`) {
			t.Errorf("anonymous response must omit the me field: %s", body)
		}
	})

	t.Run("session token enriches with the own row", func(t *testing.T) {
		token, _ := auth.Mint("u1")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"rank":42`) {
			t.Errorf("own row missing: %s", rec.Body.String())
		}
	})

	t.Run("garbage token degrades to anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestHandleGetUser(t *testing.T) {
	userUC := &stubUserUC{}
	s, _ := newTestServer(userUC, nil, nil)
	router := s.Router()

	userUC.GetByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
		if id != "u1" {
			return nil, domain.ErrNotFound
		}
		return &model.User{ID: "u1", GithubLogin: "octocat", XP: 385, Level: 6}, nil
	}

	t.Run("known user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"xp":385`) || !strings.Contains(body, `"display_name":"octocat"`) {
			t.Errorf("body = %s", body)
		}
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandleSetMonster(t *testing.T) {
	userUC := &stubUserUC{}
	s, auth := newTestServer(userUC, nil, nil)
	router := s.Router()
	token, _ := auth.Mint("u1")

	userUC.SetMonsterFunc = func(ctx context.Context, id, monster string) (*model.User, error) {
		if monster == "" {
			return nil, domain.ErrInvalidArgument
		}
		return &model.User{ID: id, GithubLogin: "octocat", Monster: monster}, nil
	}

	put := func(userID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+userID+"/monster", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("updates the owner's monster", func(t *testing.T) {
		rec := put("u1", `{"monster":"Duckie"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"monster":"Duckie"`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("rejects another user's profile", func(t *testing.T) {
		if rec := put("u2", `{"monster":"Duckie"}`); rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("empty monster is 400", func(t *testing.T) {
		if rec := put("u1", `{"monster":""}`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		if rec := put("u1", `{`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestAuthManager(t *testing.T) {
	auth := NewAuthManager("s3cret", time.Hour)
	token, err := auth.Mint("u1")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	uid, err := auth.parse(token)
	if err != nil || uid != "u1" {
		t.Errorf("parse = %q, %v", uid, err)
	}

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		other := NewAuthManager("different", time.Hour)
		forged, _ := other.Mint("u1")
		if _, err := auth.parse(forged); err == nil {
			t.Error("expected signature failure")
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		short := NewAuthManager("s3cret", time.Nanosecond)
		expired, _ := short.Mint("u1")
		time.Sleep(10 * time.Millisecond)
		if _, err := auth.parse(expired); err == nil {
			t.Error("expected expiry failure")
		}
	})
}
