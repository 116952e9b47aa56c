package service

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/alexanderramin/workledger/internal/remote"
)

// UseCaseEvent describes one finished service call.
type UseCaseEvent struct {
	Name     string
	Duration time.Duration
	Success  bool
	Err      error
	// ErrorCode is the remote failure class, empty on success or for local
	// errors.
	ErrorCode string
	Fields    map[string]any
}

type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver logs events through logger. Remote timeouts and
// outages are warnings; every other failure is an error.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
	)
	for _, k := range slices.Sorted(maps.Keys(event.Fields)) {
		attrs = append(attrs, k, event.Fields[k])
	}
	if event.Success {
		o.logger.InfoContext(ctx, "service_use_case", attrs...)
		return
	}

	attrs = append(attrs, "error", event.Err.Error())
	level := slog.LevelError
	if event.ErrorCode != "" {
		attrs = append(attrs, "error_code", event.ErrorCode)
		if event.ErrorCode == "TIMEOUT" || event.ErrorCode == "UNAVAILABLE" {
			level = slog.LevelWarn
		}
	}
	o.logger.Log(ctx, level, "service_use_case", attrs...)
}

type fanOutObserver []UseCaseObserver

func (f fanOutObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	for _, obs := range f {
		obs.ObserveUseCase(ctx, event)
	}
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	var live fanOutObserver
	for _, obs := range observers {
		if obs != nil {
			live = append(live, obs)
		}
	}
	switch len(live) {
	case 0:
		return NoopUseCaseObserver{}
	case 1:
		return live[0]
	default:
		return live
	}
}

// observe reports one finished use case. Call it from a defer with the
// named error result.
func observe(ctx context.Context, obs UseCaseObserver, name string, startedAt time.Time, fields map[string]any, err error) {
	event := UseCaseEvent{
		Name:     name,
		Duration: time.Since(startedAt),
		Success:  err == nil,
		Err:      err,
		Fields:   fields,
	}
	if code := remote.ErrorCode(err); code != "UNKNOWN" {
		event.ErrorCode = code
	}
	obs.ObserveUseCase(ctx, event)
}
