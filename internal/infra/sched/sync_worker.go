package sched

import (
	"context"
	"time"

	"gitmon-arena/internal/usecase"

	"github.com/rs/zerolog"
)

// SyncWorker periodically syncs every user and then recomputes rankings, the
// in-process equivalent of the cron trigger. Ranking runs after the batch so
// the ordinals reflect fresh data; between the two, stale ranks are fine.
type SyncWorker struct {
	interval  time.Duration
	runBudget time.Duration
	syncUC    usecase.SyncUseCase
	rankUC    usecase.RankingUseCase
	log       *zerolog.Logger
}

func NewSyncWorker(interval, runBudget time.Duration, syncUC usecase.SyncUseCase, rankUC usecase.RankingUseCase, logger *zerolog.Logger) *SyncWorker {
	l := logger.With().Str("component", "SyncWorker").Logger()
	return &SyncWorker{
		interval:  interval,
		runBudget: runBudget,
		syncUC:    syncUC,
		rankUC:    rankUC,
		log:       &l,
	}
}

func (w *SyncWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sync worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sync worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.runBudget)
	defer cancel()

	summary, err := w.syncUC.SyncAll(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("scheduled sync run failed")
		return
	}
	if summary.Aborted {
		return
	}

	if _, err := w.rankUC.UpdateAllRankings(runCtx); err != nil {
		w.log.Error().Err(err).Msg("scheduled ranking recalculation failed")
	}
}
