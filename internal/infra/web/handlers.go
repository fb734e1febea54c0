package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/repository"
	"gitmon-arena/internal/domain/xp"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLeaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		period := repository.PeriodAllTime
		if r.URL.Query().Get("period") == string(repository.PeriodWeekly) {
			period = repository.PeriodWeekly
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entries, own, err := s.rankUC.Leaderboard(ctx, period, limit, SessionUserID(ctx))
		if err != nil {
			http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Period  string                   `json:"period"`
			Entries []model.LeaderboardEntry `json:"entries"`
			Me      *model.LeaderboardEntry  `json:"me,omitempty"`
		}{string(period), entries, own})
	}
}

type userResponse struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	GithubLogin   string `json:"github_login"`
	Monster       string `json:"monster"`
	Bio           string `json:"bio,omitempty"`
	Location      string `json:"location,omitempty"`
	Followers     int    `json:"followers"`
	XP            int64  `json:"xp"`
	Level         int    `json:"level"`
	RankTitle     string `json:"rank_title"`
	WeeklyXP      int64  `json:"weekly_xp"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	AllTimeRank   int    `json:"all_time_rank"`
	WeeklyRank    int    `json:"weekly_rank"`
	TotalCommits  int    `json:"total_commits"`
	TotalPRs      int    `json:"total_prs"`
	TotalStars    int    `json:"total_stars"`
	TotalRepos    int    `json:"total_repos"`
}

func toUserResponse(u *model.User) userResponse {
	name := u.DisplayName
	if name == "" {
		name = u.GithubLogin
	}
	return userResponse{
		ID:            u.ID,
		DisplayName:   name,
		GithubLogin:   u.GithubLogin,
		Monster:       u.Monster,
		Bio:           u.Bio,
		Location:      u.Location,
		Followers:     u.Followers,
		XP:            u.XP,
		Level:         u.Level,
		RankTitle:     xp.RankTitle(u.Level),
		WeeklyXP:      u.WeeklyXP,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
		AllTimeRank:   u.AllTimeRank,
		WeeklyRank:    u.WeeklyRank,
		TotalCommits:  u.TotalCommits,
		TotalPRs:      u.TotalPRs,
		TotalStars:    u.TotalStars,
		TotalRepos:    u.TotalRepos,
	}
}

func (s *Server) handleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.userUC.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if err == domain.ErrNotFound {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to load user", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func (s *Server) handleSetMonster() http.HandlerFunc {
	type req struct {
		Monster string `json:"monster"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if SessionUserID(r.Context()) != id {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		u, err := s.userUC.SetMonster(r.Context(), id, body.Monster)
		if err != nil {
			if err == domain.ErrInvalidArgument {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to update monster", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// handleSyncUser is the manual force-sync used by onboarding completion.
// A skipped sync (no GitHub identity) is a 200 with skipped=true, not an error.
func (s *Server) handleSyncUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if SessionUserID(r.Context()) != id {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		res, err := s.syncUC.SyncUser(r.Context(), id)
		if err != nil {
			if err == domain.ErrNotFound {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			if err == domain.ErrSyncInProgress {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}
		if res == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"skipped": true})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handleSyncAll is the scheduled batch trigger. Partial failure is a 200 with
// per-item counts embedded; only a total failure is a 500.
func (s *Server) handleSyncAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.syncUC.SyncAll(r.Context())
		if err != nil {
			http.Error(w, "Batch sync failed", http.StatusInternalServerError)
			return
		}

		ranking, err := s.rankUC.UpdateAllRankings(r.Context())
		if err != nil {
			http.Error(w, "Ranking recalculation failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Sync    interface{} `json:"sync"`
			Ranking interface{} `json:"ranking"`
		}{summary, ranking})
	}
}
