package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "pkce-auth-server"

// Instrumentation : метрики и трейсер сервера. Без установленного провайдера otel работает как noop.
type Instrumentation struct {
	tracer trace.Tracer

	authorizationsIssued metric.Int64Counter
	tokensIssued         metric.Int64Counter
	grantFailures        metric.Int64Counter
	tokensRevoked        metric.Int64Counter
	reuseDetected        metric.Int64Counter
}

// New : nil провайдеры заменяются глобальными из otel
func New(meterProvider metric.MeterProvider, tracerProvider trace.TracerProvider) (*Instrumentation, error) {
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	meter := meterProvider.Meter(scopeName)

	inst := &Instrumentation{tracer: tracerProvider.Tracer(scopeName)}
	var err error

	if inst.authorizationsIssued, err = meter.Int64Counter(
		"oauth.authorization.codes_issued",
		metric.WithDescription("Number of authorization codes issued"),
		metric.WithUnit("{code}"),
	); err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика codes_issued: %w", err)
	}

	if inst.tokensIssued, err = meter.Int64Counter(
		"oauth.token.issued",
		metric.WithDescription("Number of token pairs issued by grant type"),
		metric.WithUnit("{pair}"),
	); err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика token.issued: %w", err)
	}

	if inst.grantFailures, err = meter.Int64Counter(
		"oauth.grant.failures",
		metric.WithDescription("Number of rejected grants by error code"),
		metric.WithUnit("{grant}"),
	); err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика grant.failures: %w", err)
	}

	if inst.tokensRevoked, err = meter.Int64Counter(
		"oauth.token.revoked",
		metric.WithDescription("Number of tokens revoked"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика token.revoked: %w", err)
	}

	if inst.reuseDetected, err = meter.Int64Counter(
		"oauth.refresh_token.reuse_detected",
		metric.WithDescription("Number of refresh token reuse attempts"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика reuse_detected: %w", err)
	}

	return inst, nil
}

func (i *Instrumentation) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, name)
}

func (i *Instrumentation) RecordAuthorizationCode(ctx context.Context, clientID string) {
	i.authorizationsIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

func (i *Instrumentation) RecordTokensIssued(ctx context.Context, grantType string) {
	i.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("grant_type", grantType)))
}

func (i *Instrumentation) RecordGrantFailure(ctx context.Context, grantType, code string) {
	i.grantFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("grant_type", grantType),
		attribute.String("error", code),
	))
}

func (i *Instrumentation) RecordTokensRevoked(ctx context.Context, count int) {
	i.tokensRevoked.Add(ctx, int64(count))
}

func (i *Instrumentation) RecordReuseDetected(ctx context.Context) {
	i.reuseDetected.Add(ctx, 1)
}
