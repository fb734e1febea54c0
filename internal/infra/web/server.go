package web

import (
	"net/http"
	"time"

	"gitmon-arena/internal/infra/logging"
	"gitmon-arena/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	userUC usecase.UserUseCase
	syncUC usecase.SyncUseCase
	rankUC usecase.RankingUseCase
	auth   *AuthManager
	cron   string
	log    *zerolog.Logger
}

func NewServer(
	userUC usecase.UserUseCase,
	syncUC usecase.SyncUseCase,
	rankUC usecase.RankingUseCase,
	auth *AuthManager,
	cronSecret string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		userUC: userUC,
		syncUC: syncUC,
		rankUC: rankUC,
		auth:   auth,
		cron:   cronSecret,
		log:    logger,
	}
}

// Router builds the full route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.traceID, s.requestLog, s.recover)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.auth.OptionalSession).Get("/leaderboard", s.handleLeaderboard())
		r.Get("/users/{id}", s.handleGetUser())

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireSession)
			r.Put("/users/{id}/monster", s.handleSetMonster())
			r.Post("/sync/user/{id}", s.handleSyncUser())
		})

		r.With(RequireCronSecret(s.cron)).Post("/sync/all", s.handleSyncAll())
	})
	return r
}

func (s *Server) traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logging.With(r.Context(), s.log)
		start := time.Now()
		ww := &respWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
