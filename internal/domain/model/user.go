package model

import (
	"time"

	"gitmon-arena/internal/domain"

	"github.com/google/uuid"
)

// User is the aggregate root of the arena: one row per player, holding the
// cumulative score, the weekly window state and the cached GitHub profile.
// XP/level/counters are mutated only by the sync use case; rank fields only
// by the ranking use case.
type User struct {
	ID              string
	Email           string
	GithubAccountID string
	GithubLogin     string
	DisplayName     string
	Monster         string
	AccessToken     string
	RegisteredAt    time.Time

	XP            int64
	Level         int
	WeeklyXP      int64
	WeekStartDate time.Time
	DailyXP       int64
	DailyXPDate   time.Time

	TotalCommits int
	TotalPRs     int
	TotalStars   int
	TotalRepos   int

	CurrentStreak int
	LongestStreak int

	// Cached external profile fields, refreshed on every sync.
	Bio       string
	Location  string
	Followers int
	Following int

	FirstSyncedAt *time.Time
	LastXPUpdate  time.Time

	AllTimeRank   int
	WeeklyRank    int
	RankUpdatedAt time.Time
}

func NewUser(id, email, githubLogin string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" && githubLogin == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:            id,
		Email:         email,
		GithubLogin:   githubLogin,
		RegisteredAt:  now,
		WeekStartDate: StartOfWeek(now),
		DailyXPDate:   now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// FirstSync reports whether this user has never completed a lifetime sync.
// An explicit timestamp is used instead of inferring from a low XP total, so a
// legitimately low-scoring returning user is never re-seeded.
func (u *User) FirstSync() bool { return u.FirstSyncedAt == nil }

// StartOfWeek returns Monday 00:00 of the week containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 { // Sunday belongs to the week that started six days earlier
		wd = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(wd - 1))
}

// ResetWeekIfStale zeroes the weekly counter when the stored week start
// predates the current week's Monday. It is idempotent: a second call in the
// same week is a no-op, so concurrent readers may race it safely.
func (u *User) ResetWeekIfStale(now time.Time) bool {
	cur := StartOfWeek(now)
	if u.WeekStartDate.Before(cur) {
		u.WeeklyXP = 0
		u.WeekStartDate = cur
		return true
	}
	return false
}

// ResetDayIfStale zeroes the daily XP counter on date rollover.
func (u *User) ResetDayIfStale(now time.Time) bool {
	y1, m1, d1 := u.DailyXPDate.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		u.DailyXP = 0
		u.DailyXPDate = now
		return true
	}
	return false
}
