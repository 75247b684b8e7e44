package xmetrics

import (
	"context"
	"strconv"
)

// Kind 区分跨度是否代表 producer 的调度。
type Kind int

const (
	KindInternal Kind = iota
	KindProducer
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindProducer:
		return "Producer"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Status 是一次生命周期操作的结论。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
	// StatusRefused 表示 loader 仍活跃导致 close 被拒绝，不算失败。
	StatusRefused Status = "refused"
	// StatusNoop 表示操作未改变状态，例如重复 initialize。
	StatusNoop Status = "noop"
)

// Attr 是附加在跨度上的键值。
type Attr struct {
	Key   string
	Value any
}

func String(key, value string) Attr { return Attr{Key: key, Value: value} }
func Bool(key string, value bool) Attr { return Attr{Key: key, Value: value} }
func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

// SpanOptions 描述要观测的操作。
// Queue 同时进入跨度属性和指标维度，其余 Attrs 只进入跨度。
type SpanOptions struct {
	Component string
	Operation string
	Queue     string
	Kind      Kind
	Attrs     []Attr
}

// Result 在跨度结束时给出，Status 为空时由 Err 推导。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

func (r Result) status() Status {
	switch {
	case r.Status != "":
		return r.Status
	case r.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

// Span 是一次进行中的观测。
type Span interface {
	End(result Result)
}

// Observer 为生命周期操作创建跨度。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 什么也不记录。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 什么也不记录。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 通过 observer 开始跨度，返回值总是非 nil。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	spanCtx, span := observer.Start(ctx, opts)
	if spanCtx == nil {
		spanCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return spanCtx, span
}
