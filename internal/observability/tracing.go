package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartServiceSpan starts an internal span named component.operation
func StartServiceSpan(ctx context.Context, component, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("service.component", component),
		attribute.String("service.operation", operation),
	)
	return StartSpan(ctx, fmt.Sprintf("%s.%s", component, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartClientSpan starts a span for a call to an external system (drive, object store, catalog)
func StartClientSpan(ctx context.Context, system, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("peer.service", system),
		attribute.String("rpc.method", operation),
	)
	return StartSpan(ctx, fmt.Sprintf("%s %s", system, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SyncMetrics holds the media sync counters
type SyncMetrics struct {
	files         metric.Int64Counter
	runs          metric.Int64Counter
	bytesUploaded metric.Int64Counter
	runDuration   metric.Float64Histogram
}

// NewSyncMetrics creates the sync metric instruments on the global meter
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	files, err := meter.Int64Counter(
		"mediasync.files",
		metric.WithDescription("Files processed by the media sync job, by outcome"),
		metric.WithUnit("{files}"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"mediasync.runs",
		metric.WithDescription("Media sync runs, by terminal status"),
		metric.WithUnit("{runs}"),
	)
	if err != nil {
		return nil, err
	}

	bytesUploaded, err := meter.Int64Counter(
		"mediasync.bytes.uploaded",
		metric.WithDescription("Bytes uploaded to the object store"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"mediasync.run.duration",
		metric.WithDescription("Wall-clock duration of a media sync run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		files:         files,
		runs:          runs,
		bytesUploaded: bytesUploaded,
		runDuration:   runDuration,
	}, nil
}

// RecordFile counts one file outcome: synced, skipped or errored
func (m *SyncMetrics) RecordFile(ctx context.Context, category, outcome string) {
	if m == nil {
		return
	}
	m.files.Add(ctx, 1, metric.WithAttributes(
		Category(category),
		attribute.String("outcome", outcome),
	))
}

// RecordUpload adds uploaded bytes
func (m *SyncMetrics) RecordUpload(ctx context.Context, size int64) {
	if m == nil {
		return
	}
	m.bytesUploaded.Add(ctx, size)
}

// RecordRun counts a finished run and its duration
func (m *SyncMetrics) RecordRun(ctx context.Context, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, seconds, attrs)
}
