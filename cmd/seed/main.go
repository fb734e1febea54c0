package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"gitmon-arena/internal/config"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/repository"
	"gitmon-arena/internal/domain/xp"
	pg "gitmon-arena/internal/infra/db/postgres"
)

// Seeds a handful of demo users so the leaderboard renders locally without
// hitting GitHub.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	users := pg.NewUserRepo(pool)

	n, err := users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("count users: %v", err)
	}
	if n > 0 {
		fmt.Printf("%d users already present. No changes.\n", n)
		return
	}

	seed := []struct {
		Login   string
		Monster string
		XP      int64
		Weekly  int64
		Streak  int
	}{
		{"octocat", "emberfox", 4200, 180, 12},
		{"hubber", "stonegolem", 1850, 95, 3},
		{"codewrangler", "sparkwhale", 760, 40, 45},
		{"nightcommitter", "voidmoth", 310, 0, 0},
	}

	now := time.Now()
	for _, s := range seed {
		u, err := model.NewUser("", s.Login+"@example.test", s.Login)
		if err != nil {
			log.Fatalf("new user %q: %v", s.Login, err)
		}
		u.Monster = s.Monster
		u.XP = s.XP
		u.WeeklyXP = s.Weekly
		u.Level = xp.Level(s.XP)
		u.CurrentStreak = s.Streak
		u.LongestStreak = s.Streak
		u.FirstSyncedAt = &now
		u.LastXPUpdate = now
		if err := users.Save(ctx, repository.NoTX, u); err != nil {
			log.Fatalf("save user %q: %v", s.Login, err)
		}
		fmt.Printf("seeded: %s (id=%s, xp=%d, level=%d)\n", s.Login, u.ID, u.XP, u.Level)
	}

	fmt.Println("Seeding complete.")
}
