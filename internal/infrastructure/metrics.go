package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "cellprep/internal/errors"
)

// PipelineMetrics are the instruments shared by both pipelines.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	rowsAggregated   metric.Int64Counter
	entriesExtracted metric.Int64Counter
	sheetsWritten    metric.Int64Counter
	filesWritten     metric.Int64Counter
	pipelineErrors   metric.Int64Counter
	stageDuration    metric.Float64Histogram
	heapAlloc        metric.Int64Gauge
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.rowsAggregated, err = meter.Int64Counter(
		"cellprep_rows_aggregated",
		metric.WithDescription("Proteomics data rows folded into the totals"),
	); err != nil {
		return nil, err
	}

	if m.entriesExtracted, err = meter.Int64Counter(
		"cellprep_entries_extracted",
		metric.WithDescription("Name/count entries extracted from simulation output"),
	); err != nil {
		return nil, err
	}

	if m.sheetsWritten, err = meter.Int64Counter(
		"cellprep_sheets_written",
		metric.WithDescription("Workbook sheets written"),
	); err != nil {
		return nil, err
	}

	if m.filesWritten, err = meter.Int64Counter(
		"cellprep_files_written",
		metric.WithDescription("Output files committed to their final path"),
	); err != nil {
		return nil, err
	}

	if m.pipelineErrors, err = meter.Int64Counter(
		"cellprep_pipeline_errors",
		metric.WithDescription("Pipeline stage failures by stage and error type"),
	); err != nil {
		return nil, err
	}

	if m.stageDuration, err = meter.Float64Histogram(
		"cellprep_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.heapAlloc, err = meter.Int64Gauge(
		"cellprep_heap_alloc_bytes",
		metric.WithDescription("Heap bytes allocated at the end of the run"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// AddRows counts aggregated spreadsheet rows.
func (m *PipelineMetrics) AddRows(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.rowsAggregated.Add(ctx, int64(n))
}

// AddEntries counts entries extracted from one compartment.
func (m *PipelineMetrics) AddEntries(ctx context.Context, n int, compartment string) {
	if m == nil {
		return
	}
	m.entriesExtracted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("compartment", compartment)))
}

// AddSheets counts worksheets written.
func (m *PipelineMetrics) AddSheets(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.sheetsWritten.Add(ctx, int64(n))
}

// AddFile counts one output file of the given kind.
func (m *PipelineMetrics) AddFile(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.filesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRuntime samples the Go heap once.
func (m *PipelineMetrics) RecordRuntime(ctx context.Context) {
	if m == nil {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.heapAlloc.Record(ctx, int64(ms.HeapAlloc))
}

func (m *PipelineMetrics) recordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
	if err != nil {
		errType := string(apperrors.TypeOf(err))
		if errType == "" {
			errType = "UNKNOWN"
		}
		m.pipelineErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("error_type", errType),
		))
	}
}

// Observer wraps pipeline stages in a span and a duration sample.
type Observer struct {
	tracer  trace.Tracer
	metrics *PipelineMetrics
}

// NewObserver creates an observer; a nil tracer falls back to a no-op one.
func NewObserver(tracer trace.Tracer, metrics *PipelineMetrics) *Observer {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(MeterName)
	}
	return &Observer{tracer: tracer, metrics: metrics}
}

// NopObserver records nothing.
func NopObserver() *Observer {
	return NewObserver(nil, nil)
}

// Metrics returns the observer's instruments, possibly nil.
func (o *Observer) Metrics() *PipelineMetrics {
	if o == nil {
		return nil
	}
	return o.metrics
}

// Stage starts a span named stage. The returned func ends it, recording err
// on the span and in the error counter.
func (o *Observer) Stage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if o == nil {
		o = NopObserver()
	}
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, stage, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		o.metrics.recordStage(ctx, stage, time.Since(start), err)
	}
}
