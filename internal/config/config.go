// Package config loads matchwatch settings from the environment, an optional
// .env file and an optional YAML watch file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"matchwatch/internal/storage"
	"matchwatch/internal/watcher"
)

// EnvPaths are tried in order; the first .env found is loaded
var EnvPaths = []string{".env", "../.env"}

// Config holds every matchwatch setting after env, watch file and flags are applied
type Config struct {
	// What to watch
	GroupURL  string   // league group page used for discovery
	Team      string   // team slug as it appears in match URLs
	MatchURLs []string // extra match URLs watched in addition to discovery

	// Scheduling
	CheckInterval time.Duration
	WakeInterval  time.Duration
	RunAtStart    bool
	Concurrency   int

	// State store
	StateDriver    string // file, sqlite, turso, postgres, s3
	StateDir       string // file driver directory, default sqlite location
	StateDSN       string // sqlite path, libsql URL or postgres connection string
	DatabaseURL    string // postgres fallback
	TursoURL       string
	TursoAuthToken string
	S3Bucket       string
	S3Prefix       string
	AWSRegion      string

	// Notification sinks
	DiscordWebhook string
	NotifyWSURL    string

	// League site client
	HTTPTimeout time.Duration
	UserAgent   string

	// Logging
	LogLevel    string
	LogPretty   bool
	ServiceName string
}

// WatchFile is the optional YAML file passed with --config
type WatchFile struct {
	GroupURL      string   `yaml:"group_url"`
	Team          string   `yaml:"team"`
	Matches       []string `yaml:"matches"`
	CheckInterval string   `yaml:"check_interval"`
}

// LoadDotEnv loads the first .env file found in EnvPaths and returns its path,
// or "" when none exists
func LoadDotEnv() string {
	for _, path := range EnvPaths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset. Malformed values are reported together.
func Load() (Config, error) {
	var errs []error
	p := &parser{errs: &errs}

	cfg := Config{
		GroupURL:  env("GROUP_URL", ""),
		Team:      env("TEAM", ""),
		MatchURLs: splitList(env("MATCH_URLS", "")),

		CheckInterval: p.duration("CHECK_INTERVAL", 2*time.Hour),
		WakeInterval:  p.duration("WAKE_INTERVAL", 30*time.Minute),
		RunAtStart:    p.boolean("RUN_AT_START", true),
		Concurrency:   p.integer("CONCURRENCY", 1),

		StateDriver:    strings.ToLower(env("STATE_DRIVER", storage.DriverFile)),
		StateDir:       env("STATE_DIR", storage.DefaultDir),
		StateDSN:       env("STATE_DSN", ""),
		DatabaseURL:    env("DATABASE_URL", ""),
		TursoURL:       env("TURSO_URL", ""),
		TursoAuthToken: env("TURSO_AUTH_TOKEN", ""),
		S3Bucket:       env("S3_BUCKET", ""),
		S3Prefix:       env("S3_PREFIX", ""),
		AWSRegion:      env("AWS_REGION", ""),

		DiscordWebhook: env("DISCORD_WEBHOOK", ""),
		NotifyWSURL:    env("NOTIFY_WS_URL", ""),

		HTTPTimeout: p.duration("HTTP_TIMEOUT", 30*time.Second),
		UserAgent:   env("USER_AGENT", ""),

		LogLevel:    env("LOG_LEVEL", "info"),
		LogPretty:   p.boolean("LOG_PRETTY", false),
		ServiceName: env("SERVICE_NAME", "matchwatch"),
	}

	return cfg, errors.Join(errs...)
}

// ApplyWatchFile overlays the non-empty fields of a YAML watch file
func (c *Config) ApplyWatchFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read watch file: %w", err)
	}

	var wf WatchFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return fmt.Errorf("failed to parse watch file %s: %w", path, err)
	}

	if wf.GroupURL != "" {
		c.GroupURL = wf.GroupURL
	}
	if wf.Team != "" {
		c.Team = wf.Team
	}
	for _, m := range wf.Matches {
		if m = strings.TrimSpace(m); m != "" {
			c.MatchURLs = append(c.MatchURLs, m)
		}
	}
	if wf.CheckInterval != "" {
		d, err := time.ParseDuration(wf.CheckInterval)
		if err != nil {
			return fmt.Errorf("invalid check_interval %q in %s: %w", wf.CheckInterval, path, err)
		}
		c.CheckInterval = d
	}
	return nil
}

// Validate reports missing or contradictory settings. requireTargets demands
// something to watch (a group and team, or explicit match URLs).
func (c *Config) Validate(requireTargets bool) error {
	var errs []error

	if requireTargets && len(c.MatchURLs) == 0 && (c.GroupURL == "" || c.Team == "") {
		errs = append(errs, errors.New("nothing to watch: set GROUP_URL and TEAM, or MATCH_URLS"))
	}
	if (c.GroupURL == "") != (c.Team == "") {
		errs = append(errs, errors.New("GROUP_URL and TEAM must be set together"))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("CHECK_INTERVAL must be positive, got %s", c.CheckInterval))
	}
	if c.WakeInterval <= 0 {
		errs = append(errs, fmt.Errorf("WAKE_INTERVAL must be positive, got %s", c.WakeInterval))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency))
	}

	switch c.StateDriver {
	case storage.DriverFile, storage.DriverSQLite:
	case storage.DriverTurso:
		if c.TursoURL == "" && c.StateDSN == "" {
			errs = append(errs, errors.New("turso state driver needs TURSO_URL"))
		}
	case storage.DriverPostgres:
		if c.StateDSN == "" && c.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres state driver needs STATE_DSN or DATABASE_URL"))
		}
	case storage.DriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 state driver needs S3_BUCKET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STATE_DRIVER %q", c.StateDriver))
	}

	return errors.Join(errs...)
}

// StorageOptions maps the state settings onto storage.Options
func (c *Config) StorageOptions() storage.Options {
	opts := storage.Options{
		Driver:    c.StateDriver,
		Dir:       c.StateDir,
		DSN:       c.StateDSN,
		AuthToken: c.TursoAuthToken,
		Bucket:    c.S3Bucket,
		Prefix:    c.S3Prefix,
		Region:    c.AWSRegion,
	}

	switch c.StateDriver {
	case storage.DriverSQLite:
		if opts.DSN == "" {
			opts.DSN = filepath.Join(c.StateDir, "matchwatch.db")
		}
	case storage.DriverTurso:
		if c.TursoURL != "" {
			opts.DSN = c.TursoURL
		}
	case storage.DriverPostgres:
		if opts.DSN == "" {
			opts.DSN = c.DatabaseURL
		}
	}
	return opts
}

// WatcherConfig returns the scheduling settings for the driver
func (c *Config) WatcherConfig() watcher.Config {
	return watcher.Config{
		CheckInterval: c.CheckInterval,
		WakeInterval:  c.WakeInterval,
		RunAtStart:    c.RunAtStart,
		Concurrency:   c.Concurrency,
	}
}

func env(key, def string) string {
	// Remove quotes if present (from .env parsing)
	v := strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"")
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects conversion errors instead of failing on the first
type parser struct {
	errs *[]error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid duration env %s=%q: %w", key, v, err))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v := env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid int env %s=%q: %w", key, v, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := env(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid bool env %s=%q: %w", key, v, err))
		return def
	}
	return b
}
