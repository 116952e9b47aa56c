// Package ledger is the HTTP client for the time-tracking ledger. The ledger
// reports durations per day and only accepts full-day replace writes.
package ledger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
)

// authRequiredCode is the body-level sentinel some ledger endpoints return
// with a 200 status once the session token has expired.
const authRequiredCode = "AUTH_REQUIRED"

// Credentials authenticate a ledger session.
type Credentials struct {
	Username string
	Password string
}

// Client talks to the ledger REST API.
type Client struct {
	rc    *remote.Client
	creds Credentials

	mu    sync.RWMutex
	token string
}

// NewClient creates a ledger client. The session token is obtained lazily by
// Reauthenticate.
func NewClient(cfg remote.Config, creds Credentials, observer remote.Observer) *Client {
	c := &Client{creds: creds}
	c.rc = remote.NewClient(cfg, observer,
		remote.WithAuth(c.authorize),
		remote.WithAuthError(remote.ErrAuthRequired),
	)
	return c
}

func (c *Client) authorize(r *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
}

type envelope struct {
	Error string `json:"error,omitempty"`
}

func (e envelope) err() error {
	if e.Error == authRequiredCode {
		return remote.ErrAuthRequired
	}
	if e.Error != "" {
		return fmt.Errorf("%w: %s", remote.ErrStatus, e.Error)
	}
	return nil
}

type wireEntry struct {
	TaskID          int    `json:"taskId"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	HoursHHMM       string `json:"hoursHHMM"`
	Comment         string `json:"comment"`
	ReportingFrom   string `json:"reportingFrom"`
	ProjectInstance string `json:"projectInstance,omitempty"`
}

type reportsResponse struct {
	envelope
	Days []struct {
		Date    string      `json:"date"`
		Reports []wireEntry `json:"reports"`
	} `json:"days"`
}

type workLogsResponse struct {
	envelope
	WorkLogs []wireEntry `json:"workLogs"`
}

type loginResponse struct {
	envelope
	Token string `json:"token"`
}

type logWorkRequest struct {
	Date     string                `json:"date"`
	WorkLogs []domain.PayloadEntry `json:"workLogs"`
}

// Reauthenticate logs in with the configured credentials and replaces the
// session token.
func (c *Client) Reauthenticate(ctx context.Context) error {
	var resp loginResponse
	err := c.rc.Do(ctx, remote.Request{
		Op:     remote.OpLogin,
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Body:   map[string]string{"username": c.creds.Username, "password": c.creds.Password},
		Out:    &resp,
	})
	if err != nil {
		return fmt.Errorf("ledger login: %w", err)
	}
	if err := resp.err(); err != nil {
		return fmt.Errorf("ledger login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("ledger login: %w: empty token", remote.ErrInvalidResponse)
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// Logout drops the session token.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// GetReports returns the abstract entries for every day in [startDate, endDate].
func (c *Client) GetReports(ctx context.Context, startDate, endDate string) (*domain.MonthlyReport, error) {
	var resp reportsResponse
	err := c.rc.Do(ctx, remote.Request{
		Op:     remote.OpGetReports,
		Method: http.MethodGet,
		Path:   "/api/reports",
		Query:  url.Values{"startDate": {startDate}, "endDate": {endDate}},
		Out:    &resp,
	})
	if err == nil {
		err = resp.err()
	}
	if err != nil {
		return nil, fmt.Errorf("get reports %s..%s: %w", startDate, endDate, err)
	}

	report := &domain.MonthlyReport{Days: make([]domain.DayReport, 0, len(resp.Days))}
	for _, d := range resp.Days {
		day := domain.DayReport{Date: d.Date, Reports: make([]domain.AbstractLogEntry, 0, len(d.Reports))}
		for _, r := range d.Reports {
			day.Reports = append(day.Reports, domain.AbstractLogEntry{
				TaskID:          r.TaskID,
				HoursHHMM:       r.HoursHHMM,
				Comment:         r.Comment,
				ReportingFrom:   r.ReportingFrom,
				ProjectInstance: r.ProjectInstance,
			})
		}
		report.Days = append(report.Days, day)
	}
	return report, nil
}

// GetWorkLogs returns the detailed, clock-timed entries for one date.
func (c *Client) GetWorkLogs(ctx context.Context, date string) ([]domain.DetailedLogEntry, error) {
	var resp workLogsResponse
	err := c.rc.Do(ctx, remote.Request{
		Op:     remote.OpGetWorkLogs,
		Method: http.MethodGet,
		Path:   "/api/worklogs",
		Query:  url.Values{"date": {date}},
		Out:    &resp,
	})
	if err == nil {
		err = resp.err()
	}
	if err != nil {
		return nil, fmt.Errorf("get work logs %s: %w", date, err)
	}

	out := make([]domain.DetailedLogEntry, 0, len(resp.WorkLogs))
	for _, w := range resp.WorkLogs {
		out = append(out, domain.DetailedLogEntry{
			TaskID:          w.TaskID,
			From:            w.From,
			To:              w.To,
			HoursHHMM:       w.HoursHHMM,
			Comment:         w.Comment,
			ReportingFrom:   w.ReportingFrom,
			ProjectInstance: w.ProjectInstance,
		})
	}
	return out, nil
}

// LogWork replaces the full set of entries for payload.DateKey.
func (c *Client) LogWork(ctx context.Context, payload domain.DayPayload) error {
	entries := payload.Entries
	if entries == nil {
		entries = []domain.PayloadEntry{}
	}
	var resp envelope
	err := c.rc.Do(ctx, remote.Request{
		Op:     remote.OpLogWork,
		Method: http.MethodPost,
		Path:   "/api/worklogs",
		Body:   logWorkRequest{Date: payload.DateKey, WorkLogs: entries},
		Out:    &resp,
	})
	if err == nil {
		err = resp.err()
	}
	if err != nil {
		return fmt.Errorf("log work %s: %w", payload.DateKey, err)
	}
	return nil
}

// DeleteLog clears every entry for date.
func (c *Client) DeleteLog(ctx context.Context, date string) error {
	var resp envelope
	err := c.rc.Do(ctx, remote.Request{
		Op:     remote.OpDeleteLog,
		Method: http.MethodDelete,
		Path:   "/api/worklogs",
		Query:  url.Values{"date": {date}},
		Out:    &resp,
	})
	if err == nil {
		err = resp.err()
	}
	if err != nil {
		return fmt.Errorf("delete log %s: %w", date, err)
	}
	return nil
}
