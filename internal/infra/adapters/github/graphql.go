package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gitmon-arena/internal/domain/model"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// graphqlClient wraps the GitHub GraphQL v4 API for contribution counts and
// the rate-limit probe.
type graphqlClient struct {
	v4 *githubv4.Client
}

func newGraphQLClient(graphqlURL, token string, timeout time.Duration) *graphqlClient {
	var hc *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), src)
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = timeout
	return &graphqlClient{v4: githubv4.NewEnterpriseClient(graphqlURL, hc)}
}

type contributionCounts struct {
	Commits int
	PRs     int
	Issues  int
	Reviews int
}

// contributionsInRange queries contributionsCollection for one [from, to)
// window. The API rejects ranges longer than a year, so lifetime totals must
// be assembled by the caller from per-year slices.
func (g *graphqlClient) contributionsInRange(ctx context.Context, login string, from, to time.Time) (contributionCounts, error) {
	var q struct {
		User struct {
			ContributionsCollection struct {
				TotalCommitContributions            githubv4.Int
				TotalPullRequestContributions       githubv4.Int
				TotalIssueContributions             githubv4.Int
				TotalPullRequestReviewContributions githubv4.Int
			} `graphql:"contributionsCollection(from: $from, to: $to)"`
		} `graphql:"user(login: $login)"`
	}
	vars := map[string]interface{}{
		"login": githubv4.String(login),
		"from":  githubv4.DateTime{Time: from},
		"to":    githubv4.DateTime{Time: to},
	}
	if err := g.v4.Query(ctx, &q, vars); err != nil {
		return contributionCounts{}, fmt.Errorf("github: contributions query: %w", err)
	}
	cc := q.User.ContributionsCollection
	return contributionCounts{
		Commits: int(cc.TotalCommitContributions),
		PRs:     int(cc.TotalPullRequestContributions),
		Issues:  int(cc.TotalIssueContributions),
		Reviews: int(cc.TotalPullRequestReviewContributions),
	}, nil
}

// lifetimeContributions sums per-year windows from the account creation date
// to now. Querying year by year is what keeps multi-year contributors from
// being undercounted: a single query would silently clamp to one year.
func (g *graphqlClient) lifetimeContributions(ctx context.Context, login string, accountCreated time.Time, now time.Time) (contributionCounts, error) {
	var total contributionCounts
	for from := accountCreated; from.Before(now); from = from.AddDate(1, 0, 0) {
		to := from.AddDate(1, 0, 0)
		if to.After(now) {
			to = now
		}
		c, err := g.contributionsInRange(ctx, login, from, to)
		if err != nil {
			return contributionCounts{}, err
		}
		total.Commits += c.Commits
		total.PRs += c.PRs
		total.Issues += c.Issues
		total.Reviews += c.Reviews
	}
	return total, nil
}

func (g *graphqlClient) rateLimit(ctx context.Context) (model.RateLimitStatus, error) {
	var q struct {
		RateLimit struct {
			Limit     githubv4.Int
			Remaining githubv4.Int
			ResetAt   githubv4.DateTime
		}
	}
	if err := g.v4.Query(ctx, &q, nil); err != nil {
		return model.RateLimitStatus{}, fmt.Errorf("github: rate limit query: %w", err)
	}
	return model.RateLimitStatus{
		Limit:     int(q.RateLimit.Limit),
		Remaining: int(q.RateLimit.Remaining),
		ResetAt:   q.RateLimit.ResetAt.Time,
	}, nil
}
