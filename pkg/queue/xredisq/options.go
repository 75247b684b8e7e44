package xredisq

import (
	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
	"github.com/omeyang/xqueue/pkg/resilience/xbreaker"
	"github.com/omeyang/xqueue/pkg/resilience/xlimit"
	"github.com/omeyang/xqueue/pkg/resilience/xretry"
)

// 缺省值。
const (
	DefaultPrefix    = "xqueue:"
	DefaultBatchSize = 100
)

// Option 配置 Queue。
type Option func(*options)

type options struct {
	prefix      string
	key         string
	batchSize   int
	keepOnClose bool
	retryer     *xretry.Retryer
	breaker     *xbreaker.Breaker
	limiter     xlimit.Limiter
	logger      xlog.Logger
	managerOps  []xqueue.Option
}

func defaultOptions() options {
	return options{
		prefix:    DefaultPrefix,
		batchSize: DefaultBatchSize,
	}
}

// WithPrefix 设置列表键前缀，键为 prefix+队列名。
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithKey 直接指定列表键，优先于 WithPrefix。
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithBatchSize 设置每次 RPUSH 的条目数。
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithKeepOnClose 关闭时保留列表。
func WithKeepOnClose(keep bool) Option {
	return func(o *options) {
		o.keepOnClose = keep
	}
}

// WithRetryer 设置写入重试策略。默认 xretry.New()。
func WithRetryer(r *xretry.Retryer) Option {
	return func(o *options) {
		if r != nil {
			o.retryer = r
		}
	}
}

// WithBreaker 让每次 RPUSH 经过熔断器，熔断打开时不再重试。
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(o *options) {
		o.breaker = b
	}
}

// WithRateLimiter 在每个批次写入前按条目数申请许可，键为列表键。
// limiter 的突发容量应不小于批次大小。
func WithRateLimiter(l xlimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithLogger 设置 Logger，并同时传给 NewManager 创建的 Manager。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithManagerOptions 追加 NewManager 创建 Manager 时使用的选项。
func WithManagerOptions(opts ...xqueue.Option) Option {
	return func(o *options) {
		o.managerOps = append(o.managerOps, opts...)
	}
}
