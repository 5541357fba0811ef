// Package telemetry wires the pipeline executor to OpenTelemetry: one span
// per stage execution and a counter tracking cumulative stage duration. Both
// are no-ops until a caller configures a real SDK; this module never
// requires one to run.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/orneryd/corpusgraph/internal/pipeline"

var (
	tracer        = otel.Tracer(instrumentationName)
	meter         = otel.Meter(instrumentationName)
	stageDuration metric.Int64Counter
)

func init() {
	var err error
	stageDuration, err = meter.Int64Counter(
		"corpusgraph_stage_duration_seconds",
		metric.WithDescription("Cumulative wall-clock seconds spent executing pipeline stages, by stage kind."),
	)
	if err != nil {
		// The no-op meter never errs; a real SDK misconfiguration would, in
		// which case recording becomes a no-op rather than a crash.
		stageDuration = noopCounter{}
	}
}

// noopCounter satisfies metric.Int64Counter when meter.Int64Counter fails;
// it exists only so init() has somewhere safe to fall back to.
type noopCounter struct{ metric.Int64Counter }

// StartStage starts a span named "<kind>:<label>" (e.g. "import:/corpus/a")
// and returns a function to call when the stage completes; it closes the
// span and records the elapsed duration under the stage kind.
func StartStage(ctx context.Context, kind, label string) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, kind+":"+label, trace.WithAttributes())
	start := time.Now()
	return ctx, func() {
		elapsed := time.Since(start)
		stageDuration.Add(ctx, int64(elapsed.Seconds()), metric.WithAttributes(attribute.String("kind", kind)))
		span.End()
	}
}
