package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's OTel counters. All Record methods are safe on a
// nil receiver so callers can run without a meter provider.
type Metrics struct {
	issued           metric.Int64Counter
	dispatchFailures metric.Int64Counter
	verifyAttempts   metric.Int64Counter
	swept            metric.Int64Counter
}

// NewMetrics registers the engine counters on the given provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("lead-console.otp")
	issued, err := meter.Int64Counter("otp.challenges.issued",
		metric.WithDescription("Challenges issued and dispatched"))
	if err != nil {
		return nil, err
	}
	dispatchFailures, err := meter.Int64Counter("otp.dispatch.failures",
		metric.WithDescription("Challenge messages that failed to send"))
	if err != nil {
		return nil, err
	}
	verifyAttempts, err := meter.Int64Counter("otp.verify.attempts",
		metric.WithDescription("Verify calls by outcome"))
	if err != nil {
		return nil, err
	}
	swept, err := meter.Int64Counter("otp.challenges.swept",
		metric.WithDescription("Expired challenges removed by sweeps"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		issued:           issued,
		dispatchFailures: dispatchFailures,
		verifyAttempts:   verifyAttempts,
		swept:            swept,
	}, nil
}

// RecordIssued counts a successfully issued and dispatched challenge.
func (m *Metrics) RecordIssued(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose)))
}

// RecordDispatchFailure counts a challenge whose message could not be sent.
func (m *Metrics) RecordDispatchFailure(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.dispatchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose)))
}

// RecordVerify counts one verify call with its outcome.
func (m *Metrics) RecordVerify(ctx context.Context, purpose, outcome string) {
	if m == nil {
		return
	}
	m.verifyAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("outcome", outcome),
	))
}

// RecordSwept counts challenges removed by an expiry sweep.
func (m *Metrics) RecordSwept(ctx context.Context, purpose string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(ctx, int64(n), metric.WithAttributes(attribute.String("purpose", purpose)))
}
