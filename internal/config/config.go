// Package config provides centralized configuration loaded from environment
// variables, with an optional YAML policy file for leagues and timing
// offsets. Shared by cmd/collector and cmd/api.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Timing offset catalog
// --------------------------------------------------------------------------

// Offset is a named capture policy: how many hours before kickoff to fetch,
// and which markets.
type Offset struct {
	Name        string   `yaml:"name"`
	HoursBefore float64  `yaml:"hours_before"`
	Markets     []string `yaml:"markets"`
	Priority    string   `yaml:"priority"` // low, normal, high
}

// ScheduledTime returns the capture instant for a kickoff.
func (o Offset) ScheduledTime(kickoff time.Time) time.Time {
	return kickoff.UTC().Add(-time.Duration(o.HoursBefore * float64(time.Hour)))
}

var defaultMarkets = []string{"h2h", "spreads", "totals"}

// OffsetCatalog is the built-in set of capture offsets. A policy file can
// replace it entirely.
var OffsetCatalog = map[string]Offset{
	"opening":    {Name: "opening", HoursBefore: 168, Markets: defaultMarkets, Priority: "low"},
	"midweek":    {Name: "midweek", HoursBefore: 72, Markets: defaultMarkets, Priority: "normal"},
	"day_before": {Name: "day_before", HoursBefore: 24, Markets: defaultMarkets, Priority: "normal"},
	"closing":    {Name: "closing", HoursBefore: 1.5, Markets: defaultMarkets, Priority: "high"},
}

// OffsetPolicies are selectable subsets of the catalog.
var OffsetPolicies = map[string][]string{
	"all":          {"opening", "midweek", "day_before", "closing"},
	"open_close":   {"opening", "closing"},
	"closing_only": {"closing"},
	"daily":        {"day_before", "closing"},
}

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Provider
	OddsAPIKey        string
	OddsAPIBaseURL    string
	OddsRegion        string
	ProviderRPM       int // provider requests per minute, hard ceiling
	ProviderTimeout   time.Duration

	// Pipeline
	Leagues       []string
	Offsets       []Offset      // resolved from policy + catalog
	SlackWindow   time.Duration // due-now tolerance
	MaxBatchSize  int           // executed jobs per run
	LeaseTTL      time.Duration // running-job lease
	CleanupDays   int           // terminal row retention

	// Storage
	StorageBackend string // fs, s3, redis
	StoragePath    string // fs root
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
	RedisAddr      string
	RedisPassword  string

	// API server
	APIHost      string
	APIPort      int
	Environment  string // development, staging, production
	Debug        bool
	TriggerToken string // bearer token for the manual run endpoint

	// CORS
	CORSAllowOrigins []string

	// Rate limiting (HTTP surface)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults, then applies the YAML policy file named by PREKICK_CONFIG_FILE
// if set.
func Load() (*Config, error) {
	dbURL := envOr("PREKICK_DATABASE_URL", envOr("DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("PREKICK_DATABASE_URL or DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		OddsAPIKey:      envOr("ODDS_API_KEY", ""),
		OddsAPIBaseURL:  envOr("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
		OddsRegion:      envOr("ODDS_REGION", "eu"),
		ProviderRPM:     envInt("PROVIDER_REQUESTS_PER_MINUTE", 30),
		ProviderTimeout: time.Duration(envInt("PROVIDER_TIMEOUT_SECONDS", 30)) * time.Second,

		Leagues:      envList("PREKICK_LEAGUES", []string{"soccer_epl"}),
		SlackWindow:  time.Duration(envInt("SLACK_WINDOW_MINUTES", 5)) * time.Minute,
		MaxBatchSize: envInt("MAX_BATCH_SIZE", 25),
		LeaseTTL:     time.Duration(envInt("LEASE_TTL_MINUTES", 10)) * time.Minute,
		CleanupDays:  envInt("CLEANUP_DAYS", 30),

		StorageBackend: envOr("STORAGE_BACKEND", "fs"),
		StoragePath:    envOr("STORAGE_PATH", "./data"),
		S3Endpoint:     envOr("S3_ENDPOINT", ""),
		S3AccessKey:    envOr("S3_ACCESS_KEY", ""),
		S3SecretKey:    envOr("S3_SECRET_KEY", ""),
		S3Bucket:       envOr("S3_BUCKET", "prekick-snapshots"),
		S3UseSSL:       envBool("S3_USE_SSL", true),
		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  envOr("REDIS_PASSWORD", ""),

		APIHost:      envOr("API_HOST", "0.0.0.0"),
		APIPort:      envInt("API_PORT", envInt("PORT", 8000)),
		Environment:  envOr("ENVIRONMENT", "development"),
		Debug:        envBool("DEBUG", false),
		TriggerToken: envOr("PREKICK_TRIGGER_TOKEN", ""),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}

	offsets, err := ResolveOffsets(envOr("OFFSET_POLICY", "all"))
	if err != nil {
		return nil, err
	}
	cfg.Offsets = offsets

	if path := os.Getenv("PREKICK_CONFIG_FILE"); path != "" {
		if err := cfg.applyPolicyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ResolveOffsets expands a policy name (or a comma-separated list of offset
// names) into catalog entries, sorted by hours-before descending so earlier
// captures schedule first.
func ResolveOffsets(policy string) ([]Offset, error) {
	names, ok := OffsetPolicies[policy]
	if !ok {
		names = strings.Split(policy, ",")
	}
	var offsets []Offset
	for _, n := range names {
		n = strings.TrimSpace(n)
		o, ok := OffsetCatalog[n]
		if !ok {
			return nil, fmt.Errorf("unknown timing offset %q", n)
		}
		offsets = append(offsets, o)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("offset policy %q resolves to nothing", policy)
	}
	sort.Slice(offsets, func(i, k int) bool {
		return offsets[i].HoursBefore > offsets[k].HoursBefore
	})
	return offsets, nil
}

// OffsetByName returns the configured offset with the given name.
func (c *Config) OffsetByName(name string) (Offset, bool) {
	for _, o := range c.Offsets {
		if o.Name == name {
			return o, true
		}
	}
	return Offset{}, false
}

// HasLeague reports whether the league is configured for collection.
func (c *Config) HasLeague(league string) bool {
	for _, l := range c.Leagues {
		if l == league {
			return true
		}
	}
	return false
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// YAML policy file
// --------------------------------------------------------------------------

type policyFile struct {
	Leagues []string `yaml:"leagues"`
	Offsets []Offset `yaml:"offsets"`
}

// applyPolicyFile overrides leagues and offsets from a YAML file. Either
// section may be omitted to keep the env/catalog values.
func (c *Config) applyPolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if len(pf.Leagues) > 0 {
		c.Leagues = pf.Leagues
	}
	if len(pf.Offsets) > 0 {
		for i, o := range pf.Offsets {
			if o.Name == "" {
				return fmt.Errorf("policy file offset %d has no name", i)
			}
			if o.HoursBefore < 0 {
				return fmt.Errorf("offset %q: hours_before must be non-negative", o.Name)
			}
			if len(o.Markets) == 0 {
				pf.Offsets[i].Markets = defaultMarkets
			}
		}
		c.Offsets = pf.Offsets
	}
	return nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
