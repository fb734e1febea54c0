package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GitHubConfig struct {
	// Token is the app-level fallback credential; per-user tokens stored on
	// the user row take precedence when present.
	Token       string        `yaml:"token"`
	APIURL      string        `yaml:"api_url"`     // default https://api.github.com
	GraphQLURL  string        `yaml:"graphql_url"` // default https://api.github.com/graphql
	Timeout     time.Duration `yaml:"timeout"`     // per-call timeout, default 60s
	MaxRepoPage int           `yaml:"max_repo_page"`
}

type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"`       // batch run cadence
	BatchSize     int           `yaml:"batch_size"`     // users per batch
	BatchDelay    time.Duration `yaml:"batch_delay"`    // pause between batches
	FullTimeout   time.Duration `yaml:"full_timeout"`   // bound on a whole batch run
	RateThreshold float64       `yaml:"rate_threshold"` // abort below this remaining fraction
	TrailingWeek  bool          `yaml:"trailing_week"`  // trailing 7 days vs calendar week-to-date
	CronSecret    string        `yaml:"cron_secret"`    // shared-secret bearer for /sync/all
	APIBudget     int           `yaml:"api_budget"`     // outbound github calls allowed per hour
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	GitHub   GitHubConfig   `yaml:"github"`
	Sync     SyncConfig     `yaml:"sync"`
	Web      WebConfig      `yaml:"web"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Runtime.Dev = dev

	// Secrets may be supplied via environment instead of the file.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Sync.CronSecret = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Web.JWTSecret = v
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.GitHub.GraphQLURL == "" {
		c.GitHub.GraphQLURL = "https://api.github.com/graphql"
	}
	if c.GitHub.Timeout <= 0 {
		c.GitHub.Timeout = 60 * time.Second
	}
	if c.GitHub.MaxRepoPage <= 0 {
		c.GitHub.MaxRepoPage = 100
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = time.Hour
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 10
	}
	if c.Sync.BatchDelay <= 0 {
		c.Sync.BatchDelay = time.Second
	}
	if c.Sync.FullTimeout <= 0 {
		c.Sync.FullTimeout = 5 * time.Minute
	}
	if c.Sync.RateThreshold <= 0 {
		c.Sync.RateThreshold = 0.2
	}
	if c.Sync.APIBudget <= 0 {
		c.Sync.APIBudget = 4000
	}
	if c.Web.Port <= 0 {
		c.Web.Port = 8080
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("config: database.url is required")
	}
	if c.Sync.CronSecret == "" && !c.Runtime.Dev {
		return errors.New("config: sync.cron_secret is required outside dev mode")
	}
	return nil
}
