package remote

import (
	"context"
	"io"
	"log/slog"
)

// CallEvent records metadata about a single remote invocation.
type CallEvent struct {
	Service   string
	Op        Op
	LatencyMs int64
	Attempts  int
	Success   bool
	ErrorCode string
}

// Observer receives events about remote calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events as structured log records.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"service", event.Service,
		"op", string(event.Op),
		"latency_ms", event.LatencyMs,
		"attempts", event.Attempts,
	}
	if !event.Success {
		attrs = append(attrs, "error_code", event.ErrorCode)
		o.logger.Log(context.Background(), slog.LevelWarn, "remote_call", attrs...)
		return
	}
	o.logger.Info("remote_call", attrs...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
