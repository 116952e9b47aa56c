package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epicSearchBody = `{"total":3,"issues":[
	{"key":"APP-1","fields":{"summary":"Login","timespent":7200,"timeoriginalestimate":14400,
		"assignee":{"displayName":"Ana"},"status":{"name":"In Progress"},"parent":{"key":"EPIC-1"},
		"worklog":{"total":1,"worklogs":[{"author":{"displayName":"Ana"},"started":"2026-03-02T09:00:00.000+0000","timeSpentSeconds":7200}]}}},
	{"key":"APP-2","fields":{"summary":"Login form","timespent":3600,
		"assignee":{"displayName":"Ben"},"status":{"name":"Done"},"parent":{"key":"APP-1"},
		"worklog":{"total":1,"worklogs":[{"author":{"displayName":"Ben"},"started":"2026-03-03T10:00:00.000+0000","timeSpentSeconds":3600}]}}},
	{"key":"APP-3","fields":{"summary":"Logout","status":{"name":"To Do"},"parent":{"key":"EPIC-1"}}}
]}`

func newTestClient(t *testing.T, maxResults int, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := remote.DefaultJiraConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 0
	return NewClient(cfg, Credentials{Email: "ana@example.test", Token: "t"}, maxResults, remote.NoopObserver{})
}

func TestClient_WorkItems_LightNestsSubtasks(t *testing.T) {
	c := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ana@example.test", user)
		assert.Equal(t, "t", pass)
		assert.Equal(t, lightFields, r.URL.Query().Get("fields"))
		assert.Equal(t, "200", r.URL.Query().Get("maxResults"))
		assert.Contains(t, r.URL.Query().Get("jql"), "EPIC-1")
		w.Write([]byte(epicSearchBody))
	}))

	entry, err := c.WorkItems(context.Background(), "EPIC-1")
	require.NoError(t, err)

	require.Len(t, entry.Items, 2)
	assert.Equal(t, "APP-1", entry.Items[0].Key)
	require.Len(t, entry.Items[0].Subtasks, 1)
	assert.Equal(t, "APP-2", entry.Items[0].Subtasks[0].Key)
	assert.Equal(t, "APP-3", entry.Items[1].Key)
	assert.False(t, entry.Partial)
	assert.False(t, entry.Complete(), "light fetch must not satisfy a full request")
	assert.Empty(t, entry.Items[0].Worklogs)
}

func TestClient_WorkItemDetails_LoadsWorklogs(t *testing.T) {
	c := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fullFields, r.URL.Query().Get("fields"))
		w.Write([]byte(epicSearchBody))
	}))

	entry, err := c.Fetch(context.Background(), "EPIC-1", domain.GranularityFull)
	require.NoError(t, err)

	assert.True(t, entry.Complete())
	require.Len(t, entry.Items[0].Worklogs, 1)
	wl := entry.Items[0].Worklogs[0]
	assert.Equal(t, "Ana", wl.AuthorName)
	assert.Equal(t, 7200, wl.Seconds)
	assert.Equal(t, 2026, wl.Started.Year())
	assert.Equal(t, 2, wl.Started.Day())
	assert.True(t, entry.Items[1].WorklogsLoaded, "issue with no worklog field still counts as loaded")
}

func TestClient_WorkItemDetails_FetchesTruncatedWorklogs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":1,"issues":[{"key":"APP-1","fields":{"parent":{"key":"EPIC-1"},
			"worklog":{"total":2,"worklogs":[{"author":{"displayName":"Ana"},"timeSpentSeconds":60}]}}}]}`))
	})
	mux.HandleFunc("/rest/api/2/issue/APP-1/worklog", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":2,"worklogs":[
			{"author":{"displayName":"Ana"},"timeSpentSeconds":60},
			{"author":{"displayName":"Ben"},"timeSpentSeconds":120}]}`))
	})
	c := newTestClient(t, 0, mux)

	entry, err := c.WorkItemDetails(context.Background(), "EPIC-1")
	require.NoError(t, err)
	require.Len(t, entry.Items, 1)
	assert.Len(t, entry.Items[0].Worklogs, 2)
}

func TestClient_PartialWhenCapped(t *testing.T) {
	c := newTestClient(t, 2, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var issues []string
		for i := 1; i <= 2; i++ {
			issues = append(issues, fmt.Sprintf(`{"key":"APP-%d","fields":{"parent":{"key":"EPIC-1"}}}`, i))
		}
		fmt.Fprintf(w, `{"total":2,"issues":[%s]}`, strings.Join(issues, ","))
	}))

	entry, err := c.WorkItems(context.Background(), "EPIC-1")
	require.NoError(t, err)
	assert.True(t, entry.Partial)
}

func TestClient_PartialWhenTotalExceedsReturned(t *testing.T) {
	c := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":5,"issues":[{"key":"APP-1","fields":{}}]}`))
	}))

	entry, err := c.WorkItems(context.Background(), "EPIC-1")
	require.NoError(t, err)
	assert.True(t, entry.Partial)
}

func TestClient_AuthFailureMapsToJiraSentinel(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			c := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			_, err := c.WorkItems(context.Background(), "EPIC-1")
			assert.ErrorIs(t, err, remote.ErrJiraAuthRequired)
		})
	}
}

func TestClient_WorkItemDetails_StartedLayouts(t *testing.T) {
	c := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":1,"issues":[{"key":"APP-1","fields":{"parent":{"key":"EPIC-1"},
			"worklog":{"total":3,"worklogs":[
				{"author":{"displayName":"Ana"},"started":"2026-03-02T09:00:00.000+0000","timeSpentSeconds":60},
				{"author":{"displayName":"Ben"},"started":"2026-03-04T09:00:00Z","timeSpentSeconds":120},
				{"author":{"displayName":"Cy"},"started":"yesterday","timeSpentSeconds":180}]}}}]}`))
	}))

	entry, err := c.WorkItemDetails(context.Background(), "EPIC-1")
	require.NoError(t, err)
	require.Len(t, entry.Items, 1)

	wls := entry.Items[0].Worklogs
	require.Len(t, wls, 2, "unparseable start is skipped")
	assert.Equal(t, "Ana", wls[0].AuthorName)
	assert.Equal(t, "Ben", wls[1].AuthorName)
	assert.Equal(t, 4, wls[1].Started.Day())
}

func TestParseStarted(t *testing.T) {
	got, err := parseStarted("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseStarted("2026/03/02")
	assert.Error(t, err)
}
