package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsaops/jsaingest/internal/catalog"
	"github.com/jsaops/jsaingest/internal/jcmt"
)

const catalogScopeName = "github.com/jsaops/jsaingest/catalog"

// InstrumentedQuerier wraps catalog.Querier with OTel tracing and metrics.
// Every lookup gets a span and is counted in jsa.catalog.* metrics.
// Use WrapQuerier to create one; it returns the original querier unchanged
// when telemetry is disabled.
type InstrumentedQuerier struct {
	inner  catalog.Querier
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapQuerier returns q decorated with OTel instrumentation.
// When telemetry is disabled, q is returned as-is with zero overhead.
func WrapQuerier(q catalog.Querier) catalog.Querier {
	if !Enabled() {
		return q
	}
	m := Meter(catalogScopeName)
	ops, _ := m.Int64Counter("jsa.catalog.queries",
		metric.WithDescription("Total archive catalog queries executed"),
	)
	dur, _ := m.Float64Histogram("jsa.catalog.query.duration",
		metric.WithDescription("Catalog query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("jsa.catalog.errors",
		metric.WithDescription("Total catalog query errors"),
	)
	return &InstrumentedQuerier{
		inner:  q,
		tracer: Tracer(catalogScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named catalog lookup.
func (q *InstrumentedQuerier) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := q.tracer.Start(ctx, "catalog."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	q.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (q *InstrumentedQuerier) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	q.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		q.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (q *InstrumentedQuerier) ObservationPlanes(ctx context.Context, collection, observationID string) ([]catalog.MemberPlane, error) {
	attrs := []attribute.KeyValue{
		attribute.String("jsa.collection", collection),
		attribute.String("jsa.observation_id", observationID),
	}
	ctx, span, t := q.op(ctx, "ObservationPlanes", attrs...)
	rows, err := q.inner.ObservationPlanes(ctx, collection, observationID)
	if err == nil {
		span.SetAttributes(attribute.Int("jsa.result.count", len(rows)))
	}
	q.done(ctx, span, t, err, attrs...)
	return rows, err
}

func (q *InstrumentedQuerier) PlanesLikeObservationID(ctx context.Context, pattern string) ([]catalog.MemberPlane, error) {
	attrs := []attribute.KeyValue{attribute.String("jsa.pattern", pattern)}
	ctx, span, t := q.op(ctx, "PlanesLikeObservationID", attrs...)
	rows, err := q.inner.PlanesLikeObservationID(ctx, pattern)
	if err == nil {
		span.SetAttributes(attribute.Int("jsa.result.count", len(rows)))
	}
	q.done(ctx, span, t, err, attrs...)
	return rows, err
}

func (q *InstrumentedQuerier) CollectionsWithObservationID(ctx context.Context, observationID string) ([]string, error) {
	attrs := []attribute.KeyValue{attribute.String("jsa.observation_id", observationID)}
	ctx, span, t := q.op(ctx, "CollectionsWithObservationID", attrs...)
	collections, err := q.inner.CollectionsWithObservationID(ctx, observationID)
	q.done(ctx, span, t, err, attrs...)
	return collections, err
}

func (q *InstrumentedQuerier) ArtifactsForFileID(ctx context.Context, fileID string) ([]catalog.ArtifactPlane, error) {
	attrs := []attribute.KeyValue{attribute.String("jsa.file_id", fileID)}
	ctx, span, t := q.op(ctx, "ArtifactsForFileID", attrs...)
	rows, err := q.inner.ArtifactsForFileID(ctx, fileID)
	if err == nil {
		span.SetAttributes(attribute.Int("jsa.result.count", len(rows)))
	}
	q.done(ctx, span, t, err, attrs...)
	return rows, err
}

func (q *InstrumentedQuerier) RunLineage(ctx context.Context, runID string) ([]catalog.LineagePlane, error) {
	attrs := []attribute.KeyValue{attribute.String("jsa.run_id", runID)}
	ctx, span, t := q.op(ctx, "RunLineage", attrs...)
	rows, err := q.inner.RunLineage(ctx, runID)
	if err == nil {
		span.SetAttributes(attribute.Int("jsa.result.count", len(rows)))
	}
	q.done(ctx, span, t, err, attrs...)
	return rows, err
}

func (q *InstrumentedQuerier) HeterodyneSubsystems(ctx context.Context, backend, observationID string) ([]jcmt.Subsystem, error) {
	attrs := []attribute.KeyValue{
		attribute.String("jsa.backend", backend),
		attribute.String("jsa.observation_id", observationID),
	}
	ctx, span, t := q.op(ctx, "HeterodyneSubsystems", attrs...)
	subsystems, err := q.inner.HeterodyneSubsystems(ctx, backend, observationID)
	q.done(ctx, span, t, err, attrs...)
	return subsystems, err
}

func (q *InstrumentedQuerier) ProposalInfo(ctx context.Context, projectID string) (catalog.Proposal, error) {
	attrs := []attribute.KeyValue{attribute.String("jsa.project", projectID)}
	ctx, span, t := q.op(ctx, "ProposalInfo", attrs...)
	proposal, err := q.inner.ProposalInfo(ctx, projectID)
	q.done(ctx, span, t, err, attrs...)
	return proposal, err
}
