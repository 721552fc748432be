package notifier

import (
	"context"
	"errors"
	"log/slog"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"time"
)

// MultiSink : доставляет событие во все приемники, ошибки объединяются
type MultiSink struct {
	sinks []ports.SecurityEventSink
}

func NewMultiSink(sinks ...ports.SecurityEventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Publish(ctx context.Context, event model.SecurityEvent) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncSink : доставляет событие в фоне, не задерживая ответ клиенту.
// Контекст запроса отвязывается от отмены, время доставки ограничено timeout.
type AsyncSink struct {
	sink    ports.SecurityEventSink
	timeout time.Duration
}

func NewAsyncSink(sink ports.SecurityEventSink, timeout time.Duration) *AsyncSink {
	return &AsyncSink{sink: sink, timeout: timeout}
}

func (a *AsyncSink) Publish(ctx context.Context, event model.SecurityEvent) error {
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()
		if err := a.sink.Publish(ctx, event); err != nil {
			slog.Error("ошибка доставки события безопасности", slog.String("type", string(event.Type)), slog.Any("error", err))
		}
	}()
	return nil
}
