// Package config loads workledger settings from defaults, a JSONC file and
// WORKLEDGER_* environment variables, in that order.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/alexanderramin/workledger/internal/contributor"
	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/prefetch"
	"github.com/alexanderramin/workledger/internal/remote"
)

var (
	ErrConfigInvalid  = errors.New("invalid config")
	ErrConfigNotFound = errors.New("config file not found")
)

const envPrefix = "WORKLEDGER"

type LedgerConfig struct {
	BaseURL    string `json:"base_url"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	TimeoutMs  int    `json:"timeout_ms,omitempty"`
	MaxRetries int    `json:"max_retries"`
}

type JiraConfig struct {
	BaseURL         string   `json:"base_url"`
	Email           string   `json:"email"`
	Token           string   `json:"token,omitempty"`
	Configured      bool     `json:"configured"`
	TimeoutMs       int      `json:"timeout_ms,omitempty"`
	DetailTimeoutMs int      `json:"detail_timeout_ms,omitempty"`
	MaxRetries      int      `json:"max_retries"`
	MaxResults      int      `json:"max_results"`
	DoneStatuses    []string `json:"done_statuses,omitempty"`
}

type PrefetchConfig struct {
	Concurrency   int `json:"concurrency"`
	CooldownSec   int `json:"cooldown_sec"`
	KeyTimeoutSec int `json:"key_timeout_sec"`
}

type PositionConfig struct {
	DailyHours  float64  `json:"daily_hours"`
	WeekendDays []string `json:"weekend_days"`
}

// Config holds all workledger settings.
type Config struct {
	Ledger   LedgerConfig   `json:"ledger"`
	Jira     JiraConfig     `json:"jira"`
	Prefetch PrefetchConfig `json:"prefetch"`
	Position PositionConfig `json:"position"`
	DBPath   string         `json:"db_path,omitempty"`
	Addr     string         `json:"addr,omitempty"`
	LogCalls bool           `json:"log_calls"`

	// Path is the file the config was loaded from, and where state changes are patched.
	Path string `json:"-"`
}

func DefaultConfig() Config {
	ledger := remote.DefaultLedgerConfig()
	jira := remote.DefaultJiraConfig()
	return Config{
		Ledger: LedgerConfig{
			TimeoutMs:  ledger.TimeoutMs,
			MaxRetries: ledger.MaxRetries,
		},
		Jira: JiraConfig{
			TimeoutMs:       jira.TimeoutMs,
			DetailTimeoutMs: jira.OpTimeouts[remote.OpJiraItemDetails],
			MaxRetries:      jira.MaxRetries,
			MaxResults:      200,
			DoneStatuses:    append([]string(nil), domain.DefaultDoneStatuses...),
		},
		Prefetch: PrefetchConfig{
			Concurrency:   prefetch.DefaultConcurrency,
			CooldownSec:   int(prefetch.DefaultCooldown / time.Second),
			KeyTimeoutSec: int(prefetch.DefaultKeyTimeout / time.Second),
		},
		Position: PositionConfig{
			DailyHours:  10,
			WeekendDays: []string{"friday", "saturday"},
		},
		Addr: "127.0.0.1:7420",
	}
}

// DefaultPath returns WORKLEDGER_CONFIG, or ~/.workledger/config.json.
func DefaultPath() (string, error) {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".workledger", "config.json"), nil
}

// Load reads the config at DefaultPath. A missing file is not an error.
func Load() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(path, false)
}

// LoadFrom layers the JSONC file at path over the defaults and then applies
// environment overrides. With mustExist a missing file is an error.
func LoadFrom(path string, mustExist bool) (Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := parseInto(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
		}
	case os.IsNotExist(err) && !mustExist:
	case os.IsNotExist(err):
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	default:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(path), "workledger.db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parseInto decodes JSONC onto cfg; fields absent from data keep their
// current values.
func parseInto(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envPrefix + "_LEDGER_URL"); v != "" {
		c.Ledger.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "_JIRA_URL"); v != "" {
		c.Jira.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "_LEDGER_USERNAME"); v != "" {
		c.Ledger.Username = v
	}
	if v := os.Getenv(envPrefix + "_LEDGER_PASSWORD"); v != "" {
		c.Ledger.Password = v
	}
	if v := os.Getenv(envPrefix + "_JIRA_EMAIL"); v != "" {
		c.Jira.Email = v
	}
	if v := os.Getenv(envPrefix + "_JIRA_TOKEN"); v != "" {
		c.Jira.Token = v
		c.Jira.Configured = true
	}
	if v := os.Getenv(envPrefix + "_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(envPrefix + "_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(envPrefix + "_LOG_CALLS"); v != "" {
		c.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv(envPrefix + "_PREFETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Prefetch.Concurrency = n
		}
	}
}

// Validate checks value ranges. Missing credentials are not an error; the
// commands that need them report it.
func (c Config) Validate() error {
	if c.Prefetch.Concurrency < 1 {
		return fmt.Errorf("%w: prefetch.concurrency must be at least 1", ErrConfigInvalid)
	}
	if c.Jira.MaxResults < 1 {
		return fmt.Errorf("%w: jira.max_results must be at least 1", ErrConfigInvalid)
	}
	if c.Position.DailyHours <= 0 {
		return fmt.Errorf("%w: position.daily_hours must be positive", ErrConfigInvalid)
	}
	if _, err := parseWeekdays(c.Position.WeekendDays); err != nil {
		return err
	}
	return nil
}

// LedgerRemote returns the ledger client settings. WORKLEDGER_LEDGER_URL,
// _TIMEOUT_MS and _MAX_RETRIES override the file.
func (c Config) LedgerRemote() remote.Config {
	rc := remote.DefaultLedgerConfig()
	rc.BaseURL = c.Ledger.BaseURL
	if c.Ledger.TimeoutMs > 0 {
		rc.TimeoutMs = c.Ledger.TimeoutMs
	}
	rc.MaxRetries = c.Ledger.MaxRetries
	rc.ApplyEnv(envPrefix + "_LEDGER")
	return rc
}

// JiraRemote returns the Jira client settings. WORKLEDGER_JIRA_URL,
// _TIMEOUT_MS and _MAX_RETRIES override the file.
func (c Config) JiraRemote() remote.Config {
	rc := remote.DefaultJiraConfig()
	rc.BaseURL = c.Jira.BaseURL
	if c.Jira.TimeoutMs > 0 {
		rc.TimeoutMs = c.Jira.TimeoutMs
	}
	rc.MaxRetries = c.Jira.MaxRetries
	rc.SetOpTimeout(remote.OpJiraItemDetails, c.Jira.DetailTimeoutMs)
	rc.ApplyEnv(envPrefix + "_JIRA")
	return rc
}

// PositionPolicy returns the position policy. The weekdays were checked by
// Validate.
func (c Config) PositionPolicy() contributor.Policy {
	days, _ := parseWeekdays(c.Position.WeekendDays)
	done := c.Jira.DoneStatuses
	if len(done) == 0 {
		done = domain.DefaultDoneStatuses
	}
	return contributor.Policy{
		DailyHours:   c.Position.DailyHours,
		WeekendDays:  days,
		DoneStatuses: done,
	}
}

// PrefetchOptions returns scheduler options; the caller sets the logger.
func (c Config) PrefetchOptions() prefetch.Options {
	return prefetch.Options{
		Concurrency: c.Prefetch.Concurrency,
		Cooldown:    time.Duration(c.Prefetch.CooldownSec) * time.Second,
		KeyTimeout:  time.Duration(c.Prefetch.KeyTimeoutSec) * time.Second,
	}
}

// SetJiraConfigured rewrites only jira.configured in the file at path,
// keeping comments and every other member as written. A missing file is
// created holding just that flag.
func SetJiraConfigured(path string, configured bool) error {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		data = []byte("{}\n")
	case err != nil:
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	v, err := hujson.Parse(data)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	if v.Find("/jira") == nil {
		if err := v.Patch([]byte(`[{"op": "add", "path": "/jira", "value": {}}]`)); err != nil {
			return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
		}
	}
	patch := fmt.Sprintf(`[{"op": "add", "path": "/jira/configured", "value": %t}]`, configured)
	if err := v.Patch([]byte(patch)); err != nil {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(v.Pack())); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdays[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrConfigInvalid, n)
		}
		out = append(out, d)
	}
	return out, nil
}
