package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// otelTracer binds Tracer/Span directly to an OpenTelemetry trace.Tracer,
// the same otel.Tracer(...) call the teacher's Clue binding wraps.
type otelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer returns a Tracer backed by the named OpenTelemetry tracer.
func NewOTelTracer(instrumentationName string) Tracer {
	return &otelTracer{tracer: otel.Tracer(instrumentationName)}
}

func (t *otelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, &otelSpan{span: span}
}

func (t *otelTracer) Span(ctx context.Context) Span {
	return &otelSpan{span: trace.SpanFromContext(ctx)}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *otelSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// otelMetrics binds Metrics to an OpenTelemetry meter, creating instruments
// lazily and caching them by name.
type otelMetrics struct {
	meter      metric.Meter
	mu         chan struct{}
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewOTelMetrics returns a Metrics recorder backed by the named OpenTelemetry
// meter.
func NewOTelMetrics(instrumentationName string) Metrics {
	return &otelMetrics{
		meter:      otel.Meter(instrumentationName),
		mu:         make(chan struct{}, 1),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func (m *otelMetrics) lock()   { m.mu <- struct{}{} }
func (m *otelMetrics) unlock() { <-m.mu }

func (m *otelMetrics) IncCounter(name string, value float64, tags ...string) {
	m.lock()
	counter, ok := m.counters[name]
	if !ok {
		counter, _ = m.meter.Float64Counter(name)
		m.counters[name] = counter
	}
	m.unlock()
	counter.Add(context.Background(), value, metric.WithAttributes(tagsToAttributes(tags)...))
}

func (m *otelMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	m.lock()
	hist, ok := m.histograms[name]
	if !ok {
		hist, _ = m.meter.Float64Histogram(name, metric.WithUnit("ms"))
		m.histograms[name] = hist
	}
	m.unlock()
	hist.Record(context.Background(), float64(duration.Milliseconds()), metric.WithAttributes(tagsToAttributes(tags)...))
}

func (m *otelMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.lock()
	gauge, ok := m.gauges[name]
	if !ok {
		gauge, _ = m.meter.Float64Gauge(name)
		m.gauges[name] = gauge
	}
	m.unlock()
	gauge.Record(context.Background(), value, metric.WithAttributes(tagsToAttributes(tags)...))
}
