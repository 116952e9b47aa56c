// Package jira fetches epic work items and worklogs from the Jira REST API.
package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
)

// DefaultMaxResults caps a single epic search. A result at or above the cap
// is flagged partial.
const DefaultMaxResults = 200

const (
	lightFields = "summary,timespent,timeoriginalestimate,assignee,status,parent"
	fullFields  = lightFields + ",worklog"
)

// startedLayouts are tried in order. Jira Cloud sends the first; some Server
// and Data Center installs send RFC 3339.
var startedLayouts = []string{"2006-01-02T15:04:05.000-0700", time.RFC3339}

// Credentials authenticate against Jira Cloud with an API token.
type Credentials struct {
	Email string
	Token string
}

// Client talks to Jira.
type Client struct {
	rc         *remote.Client
	maxResults int
	logger     *slog.Logger
}

// NewClient creates a Jira client. maxResults <= 0 uses DefaultMaxResults.
func NewClient(cfg remote.Config, creds Credentials, maxResults int, observer remote.Observer) *Client {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Client{
		rc: remote.NewClient(cfg, observer,
			remote.WithAuth(func(r *http.Request) {
				r.SetBasicAuth(creds.Email, creds.Token)
			}),
			remote.WithAuthError(remote.ErrJiraAuthRequired),
		),
		maxResults: maxResults,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger that reports skipped worklogs.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

type searchResponse struct {
	Total  int     `json:"total"`
	Issues []issue `json:"issues"`
}

type issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary              string `json:"summary"`
		TimeSpent            int    `json:"timespent"`
		TimeOriginalEstimate int    `json:"timeoriginalestimate"`
		Assignee             *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Status *struct {
			Name string `json:"name"`
		} `json:"status"`
		Parent *struct {
			Key string `json:"key"`
		} `json:"parent"`
		Worklog *worklogPage `json:"worklog"`
	} `json:"fields"`
}

type worklogPage struct {
	Total    int `json:"total"`
	Worklogs []struct {
		Author struct {
			DisplayName string `json:"displayName"`
		} `json:"author"`
		Started          string `json:"started"`
		TimeSpentSeconds int    `json:"timeSpentSeconds"`
	} `json:"worklogs"`
}

// Fetch loads an epic at the requested granularity.
func (c *Client) Fetch(ctx context.Context, epicKey string, level domain.Granularity) (domain.DetailEntry, error) {
	if level == domain.GranularityFull {
		return c.WorkItemDetails(ctx, epicKey)
	}
	return c.WorkItems(ctx, epicKey)
}

// WorkItems is the light fetch: tasks and subtasks without worklogs.
func (c *Client) WorkItems(ctx context.Context, epicKey string) (domain.DetailEntry, error) {
	resp, err := c.search(ctx, remote.OpJiraWorkItems, epicKey, lightFields)
	if err != nil {
		return domain.DetailEntry{}, err
	}
	return domain.DetailEntry{
		Items:   nest(epicKey, resp.Issues, false, c.logger),
		Partial: c.partial(resp),
	}, nil
}

// WorkItemDetails is the full fetch: tasks, subtasks and every worklog. Issues
// whose embedded worklog page is truncated are completed with a per-issue
// worklog request.
func (c *Client) WorkItemDetails(ctx context.Context, epicKey string) (domain.DetailEntry, error) {
	resp, err := c.search(ctx, remote.OpJiraItemDetails, epicKey, fullFields)
	if err != nil {
		return domain.DetailEntry{}, err
	}
	for i := range resp.Issues {
		wl := resp.Issues[i].Fields.Worklog
		if wl == nil || wl.Total <= len(wl.Worklogs) {
			continue
		}
		page, err := c.issueWorklogs(ctx, resp.Issues[i].Key)
		if err != nil {
			return domain.DetailEntry{}, err
		}
		resp.Issues[i].Fields.Worklog = page
	}
	return domain.DetailEntry{
		Items:   nest(epicKey, resp.Issues, true, c.logger),
		Partial: c.partial(resp),
	}, nil
}

func (c *Client) partial(resp searchResponse) bool {
	return resp.Total > len(resp.Issues) || len(resp.Issues) >= c.maxResults
}

func (c *Client) search(ctx context.Context, op remote.Op, epicKey, fields string) (searchResponse, error) {
	var resp searchResponse
	jql := fmt.Sprintf(`parent = %[1]s OR "Epic Link" = %[1]s OR parent in (childIssuesOf(%[1]s)) ORDER BY key ASC`, epicKey)
	err := c.rc.Do(ctx, remote.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   "/rest/api/2/search",
		Query: url.Values{
			"jql":        {jql},
			"fields":     {fields},
			"maxResults": {strconv.Itoa(c.maxResults)},
		},
		Out: &resp,
	})
	if err != nil {
		return searchResponse{}, fmt.Errorf("jira search %s: %w", epicKey, err)
	}
	return resp, nil
}

func (c *Client) issueWorklogs(ctx context.Context, issueKey string) (*worklogPage, error) {
	var page worklogPage
	err := c.rc.Do(ctx, remote.Request{
		Op:     remote.OpJiraItemDetails,
		Method: http.MethodGet,
		Path:   "/rest/api/2/issue/" + url.PathEscape(issueKey) + "/worklog",
		Out:    &page,
	})
	if err != nil {
		return nil, fmt.Errorf("jira worklogs %s: %w", issueKey, err)
	}
	return &page, nil
}

// nest converts issues to work items, attaching each issue whose parent is
// another returned issue as that issue's subtask. Order follows the search
// result.
func nest(epicKey string, issues []issue, withWorklogs bool, logger *slog.Logger) []domain.WorkItem {
	byKey := make(map[string]int, len(issues))
	for i, is := range issues {
		byKey[is.Key] = i
	}

	children := make(map[string][]string)
	var roots []string
	for _, is := range issues {
		parent := ""
		if is.Fields.Parent != nil {
			parent = is.Fields.Parent.Key
		}
		if _, ok := byKey[parent]; ok && !strings.EqualFold(parent, epicKey) && parent != is.Key {
			children[parent] = append(children[parent], is.Key)
			continue
		}
		roots = append(roots, is.Key)
	}

	var build func(key string, depth int) domain.WorkItem
	build = func(key string, depth int) domain.WorkItem {
		item := toWorkItem(issues[byKey[key]], withWorklogs, logger)
		if depth > 8 {
			return item
		}
		for _, ck := range children[key] {
			item.Subtasks = append(item.Subtasks, build(ck, depth+1))
		}
		return item
	}

	items := make([]domain.WorkItem, 0, len(roots))
	for _, k := range roots {
		items = append(items, build(k, 0))
	}
	return items
}

func toWorkItem(is issue, withWorklogs bool, logger *slog.Logger) domain.WorkItem {
	f := is.Fields
	item := domain.WorkItem{
		Key:             is.Key,
		Summary:         f.Summary,
		TimeSpent:       f.TimeSpent,
		EstimateSeconds: f.TimeOriginalEstimate,
	}
	if f.Assignee != nil {
		item.AssigneeName = f.Assignee.DisplayName
	}
	if f.Status != nil {
		item.StatusName = f.Status.Name
	}
	if !withWorklogs {
		return item
	}
	item.WorklogsLoaded = true
	if f.Worklog == nil {
		return item
	}
	for _, wl := range f.Worklog.Worklogs {
		started, err := parseStarted(wl.Started)
		if err != nil {
			logger.Warn("skipping worklog", "issue", is.Key, "author", wl.Author.DisplayName, "err", err)
			continue
		}
		item.Worklogs = append(item.Worklogs, domain.Worklog{
			AuthorName: wl.Author.DisplayName,
			Started:    started,
			Seconds:    wl.TimeSpentSeconds,
		})
	}
	return item
}

// parseStarted reads a worklog start time. An empty value yields the zero
// time, which counts toward all-time totals but never toward a month.
func parseStarted(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range startedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("worklog start %q matches no known layout", s)
}
