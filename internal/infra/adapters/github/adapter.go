package github

import (
	"context"
	"time"

	"gitmon-arena/internal/config"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/adapter"
	"gitmon-arena/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.GitHubAdapter = (*Adapter)(nil)

// Adapter is the composite statistics fetcher: it tries the accurate
// GraphQL-backed source first and degrades to the events-feed estimator when
// that fails. Results carry their provenance so callers can tell which path
// produced them.
type Adapter struct {
	cfg       config.GitHubConfig
	accurate  adapter.StatsSource
	estimated adapter.StatsSource
	rest      *restClient
	gql       *graphqlClient
	log       *zerolog.Logger
}

// NewAdapter builds the fetcher with the app-level credential. Use WithToken
// to derive a per-user authenticated variant.
func NewAdapter(cfg config.GitHubConfig, logger *zerolog.Logger) *Adapter {
	return newAdapterWithToken(cfg, cfg.Token, logger)
}

func newAdapterWithToken(cfg config.GitHubConfig, token string, logger *zerolog.Logger) *Adapter {
	l := logger.With().Str("component", "GitHubAdapter").Logger()
	rest := newRESTClient(cfg.APIURL, token, cfg.Timeout, &l)
	gql := newGraphQLClient(cfg.GraphQLURL, token, cfg.Timeout)
	return &Adapter{
		cfg:       cfg,
		accurate:  NewAccurateSource(rest, gql, cfg.MaxRepoPage, &l),
		estimated: NewEstimatedSource(rest, cfg.MaxRepoPage, &l),
		rest:      rest,
		gql:       gql,
		log:       &l,
	}
}

// WithToken returns an adapter using the given credential instead of the
// app-level one. An empty token returns the receiver unchanged.
func (a *Adapter) WithToken(token string) adapter.GitHubAdapter {
	if token == "" || token == a.rest.token {
		return a
	}
	return newAdapterWithToken(a.cfg, token, a.log)
}

func (a *Adapter) UserStats(ctx context.Context, username string) (*model.StatsSnapshot, error) {
	snap, err := a.accurate.UserStats(ctx, username)
	if err == nil {
		metrics.IncFetch("accurate", "ok")
		return snap, nil
	}
	a.log.Warn().Err(err).Str("login", username).Msg("accurate stats source failed, falling back to estimate")
	metrics.IncFetch("accurate", "error")

	snap, err = a.estimated.UserStats(ctx, username)
	if err != nil {
		metrics.IncFetch("estimated", "error")
		return nil, err
	}
	metrics.IncFetch("estimated", "ok")
	return snap, nil
}

func (a *Adapter) WindowStats(ctx context.Context, username string, from, to time.Time) (*model.WindowStats, error) {
	w, err := a.accurate.WindowStats(ctx, username, from, to)
	if err == nil {
		metrics.IncFetch("accurate", "ok")
		return w, nil
	}
	a.log.Warn().Err(err).Str("login", username).Msg("accurate window source failed, falling back to estimate")
	metrics.IncFetch("accurate", "error")

	w, err = a.estimated.WindowStats(ctx, username, from, to)
	if err != nil {
		metrics.IncFetch("estimated", "error")
		return nil, err
	}
	metrics.IncFetch("estimated", "ok")
	return w, nil
}

func (a *Adapter) Profile(ctx context.Context, username string) (*model.Profile, error) {
	p, err := a.rest.Profile(ctx, username)
	if err != nil {
		return nil, err
	}
	return &model.Profile{
		Login:       p.Login,
		Name:        p.Name,
		Bio:         p.Bio,
		Location:    p.Location,
		Followers:   p.Followers,
		Following:   p.Following,
		PublicRepos: p.PublicRepos,
		CreatedAt:   p.CreatedAt,
	}, nil
}

func (a *Adapter) ResolveLogin(ctx context.Context, accountID string) (string, error) {
	return a.rest.LoginByID(ctx, accountID)
}

func (a *Adapter) RateLimit(ctx context.Context) (model.RateLimitStatus, error) {
	return a.gql.rateLimit(ctx)
}
