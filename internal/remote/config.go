package remote

import (
	"os"
	"strconv"
	"time"
)

// Op identifies a remote operation for timeouts and call events.
type Op string

const (
	OpGetReports      Op = "get_reports"
	OpGetWorkLogs     Op = "get_work_logs"
	OpLogWork         Op = "log_work"
	OpDeleteLog       Op = "delete_log"
	OpLogin           Op = "login"
	OpJiraWorkItems   Op = "jira_work_items"
	OpJiraItemDetails Op = "jira_item_details"
)

// Config holds the connection settings shared by the remote clients.
type Config struct {
	Service    string
	BaseURL    string
	TimeoutMs  int
	MaxRetries int
	OpTimeouts map[Op]int // per-op override in milliseconds, used if > 0
}

// DefaultLedgerConfig returns ledger defaults. Writes get longer than reads.
func DefaultLedgerConfig() Config {
	return Config{
		Service:    "ledger",
		TimeoutMs:  15000,
		MaxRetries: 1,
		OpTimeouts: map[Op]int{
			OpGetReports:  20000,
			OpGetWorkLogs: 10000,
			OpLogWork:     20000,
			OpDeleteLog:   15000,
			OpLogin:       15000,
		},
	}
}

// DefaultJiraConfig returns Jira defaults. Full detail fetches page through
// worklogs and are given the longest budget.
func DefaultJiraConfig() Config {
	return Config{
		Service:    "jira",
		TimeoutMs:  20000,
		MaxRetries: 1,
		OpTimeouts: map[Op]int{
			OpJiraWorkItems:   20000,
			OpJiraItemDetails: 60000,
		},
	}
}

// OpTimeout returns the effective timeout for op.
func (c Config) OpTimeout(op Op) time.Duration {
	if ms, ok := c.OpTimeouts[op]; ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ApplyEnv overrides timeout and retry settings from environment variables
// prefixed with prefix (e.g. "WORKLEDGER_JIRA").
func (c *Config) ApplyEnv(prefix string) {
	if v := os.Getenv(prefix + "_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(prefix + "_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutMs = n
		}
	}
	if v := os.Getenv(prefix + "_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxRetries = n
		}
	}
}

// SetOpTimeout overrides one op's timeout; non-positive values are ignored.
func (c *Config) SetOpTimeout(op Op, ms int) {
	if ms <= 0 {
		return
	}
	if c.OpTimeouts == nil {
		c.OpTimeouts = make(map[Op]int)
	}
	c.OpTimeouts[op] = ms
}
