package xp

import "time"

// NextStreak advances a consecutive-active-days counter. A streak grows at
// most once per calendar day, survives a same-day re-sync unchanged, and
// breaks after a full inactive day.
func NextStreak(current int, activeToday bool, lastUpdate, now time.Time) int {
	if activeToday {
		if sameDay(lastUpdate, now) && current > 0 {
			return current
		}
		return current + 1
	}
	// No activity today: the streak only breaks once yesterday has fully
	// passed without contributions.
	if now.Sub(lastUpdate) > 48*time.Hour {
		return 0
	}
	return current
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
