package github

import (
	"context"
	"sort"
	"time"

	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// languageSampleSize bounds how many repositories contribute to the language
// set. Deriving languages from every repo would cost one API field per repo
// with no scoring value.
const languageSampleSize = 20

var _ adapter.StatsSource = (*AccurateSource)(nil)

// AccurateSource combines the REST profile/repository reads with per-year
// GraphQL contribution queries. It is the authoritative source; snapshots it
// produces are tagged ProvenanceAccurate.
type AccurateSource struct {
	rest     *restClient
	gql      *graphqlClient
	repoPage int
	log      *zerolog.Logger
}

func NewAccurateSource(rest *restClient, gql *graphqlClient, repoPage int, logger *zerolog.Logger) *AccurateSource {
	return &AccurateSource{rest: rest, gql: gql, repoPage: repoPage, log: logger}
}

func (s *AccurateSource) UserStats(ctx context.Context, username string) (*model.StatsSnapshot, error) {
	profile, err := s.rest.Profile(ctx, username)
	if err != nil {
		return nil, err
	}

	repos, err := s.rest.Repos(ctx, username, s.repoPage)
	if err != nil {
		return nil, err
	}
	stars, forks := 0, 0
	langSet := map[string]struct{}{}
	for i, r := range repos {
		stars += r.Stars
		forks += r.Forks
		if i < languageSampleSize && r.Language != "" {
			langSet[r.Language] = struct{}{}
		}
	}
	languages := make([]string, 0, len(langSet))
	for l := range langSet {
		languages = append(languages, l)
	}
	sort.Strings(languages)

	contribs, err := s.gql.lifetimeContributions(ctx, username, profile.CreatedAt, time.Now())
	if err != nil {
		return nil, err
	}

	return &model.StatsSnapshot{
		Login:        profile.Login,
		Name:         profile.Name,
		Bio:          profile.Bio,
		Location:     profile.Location,
		Followers:    profile.Followers,
		Following:    profile.Following,
		CreatedAt:    profile.CreatedAt,
		PublicRepos:  profile.PublicRepos,
		TotalStars:   stars,
		TotalForks:   forks,
		Languages:    languages,
		TotalCommits: contribs.Commits,
		TotalPRs:     contribs.PRs,
		TotalIssues:  contribs.Issues,
		TotalReviews: contribs.Reviews,
		Provenance:   model.ProvenanceAccurate,
		FetchedAt:    time.Now(),
	}, nil
}

func (s *AccurateSource) WindowStats(ctx context.Context, username string, from, to time.Time) (*model.WindowStats, error) {
	c, err := s.gql.contributionsInRange(ctx, username, from, to)
	if err != nil {
		return nil, err
	}
	return &model.WindowStats{
		From:       from,
		To:         to,
		Commits:    c.Commits,
		PRs:        c.PRs,
		Issues:     c.Issues,
		Reviews:    c.Reviews,
		Provenance: model.ProvenanceAccurate,
	}, nil
}
