package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xqueue/xmetrics"

	metricOperationTotal    = "xqueue.operation.total"
	metricOperationDuration = "xqueue.operation.duration"

	keyComponent = "component"
	keyOperation = "operation"
	keyQueue     = "queue"
	keyStatus    = "status"
)

type otelConfig struct {
	name   string
	tracer trace.TracerProvider
	meter  metric.MeterProvider
}

// Option 配置 NewOTelObserver。
type Option func(*otelConfig)

// WithInstrumentationName 设置 tracer 与 meter 的名称，空值忽略。
func WithInstrumentationName(name string) Option {
	return func(c *otelConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithTracerProvider 替换全局 TracerProvider，nil 忽略。
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(c *otelConfig) {
		if p != nil {
			c.tracer = p
		}
	}
}

// WithMeterProvider 替换全局 MeterProvider，nil 忽略。
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(c *otelConfig) {
		if p != nil {
			c.meter = p
		}
	}
}

// NewOTelObserver 返回把每次操作记为一个 span、一次计数和一次耗时的 Observer。
// 指标维度为 component/operation/queue/status。
func NewOTelObserver(opts ...Option) (Observer, error) {
	c := otelConfig{
		name:   defaultInstrumentationName,
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	meter := c.meter.Meter(c.name)
	total, err := meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("queue lifecycle operations"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInstrument, metricOperationTotal, err)
	}
	duration, err := meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("queue lifecycle operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInstrument, metricOperationDuration, err)
	}
	return &otelObserver{tracer: c.tracer.Tracer(c.name), total: total, duration: duration}, nil
}

type otelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	dims := []attribute.KeyValue{
		attribute.String(keyComponent, orUnknown(opts.Component)),
		attribute.String(keyOperation, orUnknown(opts.Operation)),
	}
	if opts.Queue != "" {
		dims = append(dims, attribute.String(keyQueue, opts.Queue))
	}

	kind := trace.SpanKindInternal
	if opts.Kind == KindProducer {
		kind = trace.SpanKindProducer
	}
	name := orUnknown(opts.Component) + "." + orUnknown(opts.Operation)
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(dims...),
		trace.WithAttributes(convert(opts.Attrs)...),
	)
	return ctx, &otelSpan{o: o, span: span, ctx: ctx, dims: dims, start: time.Now()}
}

type otelSpan struct {
	o     *otelObserver
	span  trace.Span
	ctx   context.Context
	dims  []attribute.KeyValue
	start time.Time
	once  sync.Once
}

// End 只有第一次调用生效。
func (s *otelSpan) End(r Result) {
	s.once.Do(func() { s.end(r) })
}

func (s *otelSpan) end(r Result) {
	status := r.status()
	if r.Err != nil {
		s.span.RecordError(r.Err)
	}
	switch status {
	case StatusError:
		desc := "operation failed"
		if r.Err != nil {
			desc = r.Err.Error()
		}
		s.span.SetStatus(codes.Error, desc)
	case StatusRefused:
	default:
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.SetAttributes(attribute.String(keyStatus, string(status)))
	s.span.SetAttributes(convert(r.Attrs)...)
	s.span.End()

	// 调用方 ctx 可能已取消，指标照常记录。
	ctx := context.WithoutCancel(s.ctx)
	set := metric.WithAttributes(append(s.dims, attribute.String(keyStatus, string(status)))...)
	s.o.total.Add(ctx, 1, set)
	s.o.duration.Record(ctx, time.Since(s.start).Seconds(), set)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func convert(attrs []Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		var kv attribute.KeyValue
		switch v := a.Value.(type) {
		case string:
			kv = attribute.String(a.Key, v)
		case bool:
			kv = attribute.Bool(a.Key, v)
		case int:
			kv = attribute.Int(a.Key, v)
		case int64:
			kv = attribute.Int64(a.Key, v)
		case float64:
			kv = attribute.Float64(a.Key, v)
		case time.Duration:
			kv = attribute.String(a.Key, v.String())
		default:
			kv = attribute.String(a.Key, fmt.Sprint(v))
		}
		out = append(out, kv)
	}
	return out
}
