package config

import (
	"context"
	"sync"
)

// JiraState tracks whether Jira credentials are usable and persists the
// flag when they stop working.
type JiraState struct {
	mu  sync.Mutex
	cfg *Config
}

func NewJiraState(cfg *Config) *JiraState {
	return &JiraState{cfg: cfg}
}

// Configured reports whether Jira is marked usable and has credentials.
func (s *JiraState) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.cfg.Jira
	return j.Configured && j.BaseURL != "" && j.Email != "" && j.Token != ""
}

// MarkUnconfigured clears the configured flag and patches it into the config
// file. Nothing else in the file changes, so credentials supplied only by the
// environment are never written out.
func (s *JiraState) MarkUnconfigured(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Jira.Configured {
		return nil
	}
	s.cfg.Jira.Configured = false
	if s.cfg.Path == "" {
		return nil
	}
	return SetJiraConfigured(s.cfg.Path, false)
}
