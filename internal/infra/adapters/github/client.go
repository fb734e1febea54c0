// Package github implements the statistics fetcher against the GitHub
// REST and GraphQL APIs. The accurate source issues per-year GraphQL
// contribution queries; the estimated source derives lower-bound counts from
// the public events feed when GraphQL is unavailable.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// restClient wraps the subset of the GitHub REST v3 API the fetcher needs:
// profile lookup, repository listing, the public events feed and id-to-login
// resolution. Unauthenticated calls are permitted at GitHub's lower limits.
type restClient struct {
	baseURL string
	token   string
	hc      *http.Client
	log     *zerolog.Logger
}

func newRESTClient(baseURL, token string, timeout time.Duration, logger *zerolog.Logger) *restClient {
	return &restClient{
		baseURL: baseURL,
		token:   token,
		hc:      &http.Client{Timeout: timeout},
		log:     logger,
	}
}

func (c *restClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil && n < 50 {
			c.log.Warn().Int("remaining", n).Str("path", path).Msg("github rest quota running low")
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github: %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type profileDTO struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
}

type repoDTO struct {
	Name     string `json:"name"`
	Stars    int    `json:"stargazers_count"`
	Forks    int    `json:"forks_count"`
	Language string `json:"language"`
	Fork     bool   `json:"fork"`
}

type eventDTO struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Payload   struct {
		Size   int    `json:"size"`   // commits in a PushEvent
		Action string `json:"action"` // opened/closed for PR and issue events
	} `json:"payload"`
}

func (c *restClient) Profile(ctx context.Context, login string) (*profileDTO, error) {
	var p profileDTO
	if err := c.get(ctx, "/users/"+login, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Repos returns at most one page of repositories. The page bound keeps a
// prolific account from turning one sync into an unbounded API walk.
func (c *restClient) Repos(ctx context.Context, login string, perPage int) ([]repoDTO, error) {
	var repos []repoDTO
	path := fmt.Sprintf("/users/%s/repos?per_page=%d&sort=updated", login, perPage)
	if err := c.get(ctx, path, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// Events returns the most recent public events, newest first, capped at 100
// by the API itself.
func (c *restClient) Events(ctx context.Context, login string, perPage int) ([]eventDTO, error) {
	var events []eventDTO
	path := fmt.Sprintf("/users/%s/events/public?per_page=%d", login, perPage)
	if err := c.get(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// LoginByID resolves a numeric provider account id to the current login.
// Logins can be renamed; the id is the durable key.
func (c *restClient) LoginByID(ctx context.Context, accountID string) (string, error) {
	var p profileDTO
	if err := c.get(ctx, "/user/"+accountID, &p); err != nil {
		return "", err
	}
	return p.Login, nil
}
