package xcycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

// 缺省值。
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultGrace        = 5 * time.Second
)

// Option 配置一次周期。
type Option func(*options)

type options struct {
	executor     xqueue.Executor
	stopper      Stopper
	pollInterval time.Duration
	grace        time.Duration
	newID        func() string
	logger       xlog.Logger
}

func defaultOptions() options {
	return options{
		pollInterval: DefaultPollInterval,
		grace:        DefaultGrace,
		newID:        uuid.NewString,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	return o
}

// WithExecutor 在 executor 上运行 producer，默认使用独立 goroutine。
func WithExecutor(executor xqueue.Executor) Option {
	return func(o *options) {
		o.executor = executor
	}
}

// WithStopper 设置 ctx 结束时用于强制停止 loader 的 Stopper。
func WithStopper(stopper Stopper) Option {
	return func(o *options) {
		o.stopper = stopper
	}
}

// WithPollInterval 设置 Close 轮询间隔，非正值被忽略。
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithGrace 设置强制停止后等待关闭的时间，非正值被忽略。
func WithGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.grace = d
		}
	}
}

// WithProcessID 设置进程 ID 生成函数，默认 uuid.NewString。
func WithProcessID(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithLogger 设置 Logger，默认 xlog.Default()。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
