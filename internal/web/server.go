// Package web serves a small local JSON API over the Jira services for
// status widgets and scripts.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/alexanderramin/workledger/internal/repository"
	"github.com/alexanderramin/workledger/internal/service"
)

const requestTimeout = 2 * time.Minute

// Server handles HTTP requests.
type Server struct {
	Router  *chi.Mux
	jira    service.JiraService
	notices *service.NoticeBoard
	logger  *slog.Logger
	now     func() time.Time
}

func NewServer(jira service.JiraService, notices *service.NoticeBoard, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{jira: jira, notices: notices, logger: logger, now: time.Now}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/prefetch", s.getPrefetch)
		r.Post("/prefetch", s.startPrefetch)
		r.Get("/epics", s.listEpics)
		r.Route("/epics/{key}", func(r chi.Router) {
			r.Get("/contributors", s.getContributors)
			r.Get("/position", s.getPosition)
			r.Post("/refresh", s.refreshEpic)
		})
		r.Get("/notices", s.listNotices)
		r.Delete("/notices/{id}", s.dismissNotice)
	})

	s.Router = r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.InfoContext(r.Context(), "http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"service":   "workledger",
	})
}

type prefetchEntryJSON struct {
	Status        domain.PrefetchStatus `json:"status"`
	Tasks         int                   `json:"tasks"`
	Subtasks      int                   `json:"subtasks"`
	ElapsedMs     int64                 `json:"elapsedMs"`
	Error         string                `json:"error,omitempty"`
	TimedOut      bool                  `json:"timedOut"`
	CooldownUntil *time.Time            `json:"cooldownUntil,omitempty"`
}

type progressJSON struct {
	Total          int                          `json:"total"`
	Done           int                          `json:"done"`
	Failed         int                          `json:"failed"`
	TimedOut       int                          `json:"timedOut"`
	Loading        int                          `json:"loading"`
	Pending        int                          `json:"pending"`
	RetryAvailable bool                         `json:"retryAvailable"`
	Entries        map[string]prefetchEntryJSON `json:"entries"`
}

func (s *Server) getPrefetch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.progress())
}

func (s *Server) progress() progressJSON {
	p := s.jira.PrefetchProgress()
	out := progressJSON{
		Total:          p.Total,
		Done:           p.Done,
		Failed:         p.Failed,
		TimedOut:       p.TimedOut,
		Loading:        p.Loading,
		Pending:        p.Pending,
		RetryAvailable: p.RetryAvailable,
		Entries:        make(map[string]prefetchEntryJSON),
	}
	for key, e := range s.jira.PrefetchEntries() {
		out.Entries[key] = prefetchEntryJSON{
			Status:        e.Status,
			Tasks:         e.Tasks,
			Subtasks:      e.Subtasks,
			ElapsedMs:     e.Elapsed.Milliseconds(),
			Error:         e.Error,
			TimedOut:      e.TimedOut,
			CooldownUntil: e.CooldownUntil,
		}
	}
	return out
}

func (s *Server) startPrefetch(w http.ResponseWriter, r *http.Request) {
	n, err := s.jira.PrefetchAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"scheduled": n,
		"progress":  s.progress(),
	})
}

type mappingJSON struct {
	Customer  string    `json:"customer"`
	EpicKey   string    `json:"epicKey"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) listEpics(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.jira.Epics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]mappingJSON, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, mappingJSON{Customer: m.Customer, EpicKey: m.EpicKey, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

type contributorJSON struct {
	Name    string  `json:"name"`
	Seconds int     `json:"seconds"`
	Hours   float64 `json:"hours"`
}

func (s *Server) refreshEpic(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	entry, err := s.jira.RefreshEpic(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, subtasks := domain.CountItems(entry.Items)
	writeJSON(w, http.StatusOK, map[string]any{
		"epicKey":  key,
		"tasks":    tasks,
		"subtasks": subtasks,
		"partial":  entry.Partial,
	})
}

func (s *Server) getContributors(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	full := r.URL.Query().Get("full") == "true"

	report, err := s.jira.Contributors(r.Context(), key, full)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	people := make([]contributorJSON, 0, len(report.Contributors))
	for _, c := range report.Contributors {
		people = append(people, contributorJSON{
			Name:    c.Name,
			Seconds: c.Seconds,
			Hours:   domain.HoursFromMinutes(c.Seconds / 60),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"epicKey":      report.EpicKey,
		"contributors": people,
		"fromWorklogs": report.FromWorklogs,
		"partial":      report.Partial,
	})
}

type positionJSON struct {
	EpicKey         string         `json:"epicKey"`
	MonthKey        string         `json:"monthKey"`
	Frozen          bool           `json:"frozen"`
	ComputedAt      time.Time      `json:"computedAt"`
	TotalSeconds    int            `json:"totalSeconds"`
	SecondsByPerson map[string]int `json:"secondsByPerson"`
	Percents        map[string]int `json:"percents"`
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jira.Position(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNoContent, nil)
		return
	}
	writeJSON(w, http.StatusOK, positionJSON{
		EpicKey:         snap.EpicKey,
		MonthKey:        snap.MonthKey,
		Frozen:          snap.Frozen,
		ComputedAt:      snap.ComputedAt,
		TotalSeconds:    snap.TotalSeconds,
		SecondsByPerson: snap.SecondsByPerson,
		Percents:        snap.Percents,
	})
}

type noticeJSON struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Scope     string    `json:"scope,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) listNotices(w http.ResponseWriter, r *http.Request) {
	list, err := s.notices.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]noticeJSON, 0, len(list))
	for _, n := range list {
		out = append(out, noticeJSON(n))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) dismissNotice(w http.ResponseWriter, r *http.Request) {
	ok, err := s.notices.Dismiss(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notice not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrJiraNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidMapping), errors.Is(err, service.ErrInvalidEntry):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrStale):
		status = http.StatusConflict
	case remote.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case errors.Is(err, remote.ErrUnavailable), errors.Is(err, remote.ErrStatus):
		status = http.StatusBadGateway
	}

	msg := service.HumanMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
