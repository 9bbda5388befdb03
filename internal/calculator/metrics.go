package calculator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metric instruments, initialized once via InitMetrics().
var (
	inputsCounter   metric.Int64Counter
	unknownCounter  metric.Int64Counter
	replayHistogram metric.Float64Histogram
	errorCounter    metric.Int64Counter
	resultGauge     metric.Float64Gauge
	sessionsCounter metric.Int64Counter
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	inputsCounter, err = meter.Int64Counter("calculator.inputs.total",
		metric.WithDescription("Total number of inputs appended to calculator logs"),
		metric.WithUnit("{input}"),
	)
	if err != nil {
		return fmt.Errorf("creating inputs counter: %w", err)
	}

	unknownCounter, err = meter.Int64Counter("calculator.unknown_tokens.total",
		metric.WithDescription("Operation symbols not found in the registry"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return fmt.Errorf("creating unknown token counter: %w", err)
	}

	replayHistogram, err = meter.Float64Histogram("calculator.replay.duration",
		metric.WithDescription("Duration of input log replays in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating replay histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The most recent finite calculator result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	sessionsCounter, err = meter.Int64Counter("calculator.sessions.created.total",
		metric.WithDescription("Total number of calculator sessions created"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating sessions counter: %w", err)
	}

	return nil
}
