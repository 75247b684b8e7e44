package xqueue

import (
	"github.com/omeyang/xqueue/pkg/observability/xlog"
	"github.com/omeyang/xqueue/pkg/observability/xmetrics"
	"github.com/omeyang/xqueue/pkg/util/xnameset"
)

// Option 配置 Manager。
type Option func(*options)

type options struct {
	logger   xlog.Logger
	observer xmetrics.Observer
	registry *xnameset.Set
}

func defaultOptions() options {
	return options{
		observer: xmetrics.NoopObserver{},
	}
}

// WithLogger 设置接收生命周期告警（重复初始化、关闭被拒绝等）的 Logger。
// 默认使用 xlog.Default()。nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观测器，每个生命周期操作记录一个跨度。默认不观测。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithRegistry 设置队列名占用集合。默认使用进程级的 xnameset.Default()。
// 只有共享同一个 Set 的 Manager 之间才互相约束队列名唯一性。
func WithRegistry(registry *xnameset.Set) Option {
	return func(o *options) {
		if registry != nil {
			o.registry = registry
		}
	}
}
