package xpool

import "github.com/omeyang/xqueue/pkg/observability/xlog"

// Option 配置 Pool。
type Option func(*options)

type options struct {
	logger       xlog.Logger
	name         string
	logTaskValue bool
}

// WithLogger 设置记录 panic 与关闭信息的 Logger，nil 忽略，缺省为 xlog.Default()。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 给 pool 命名，作为日志的 pool 属性。
// 多个队列共用执行器时便于区分。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogTaskValue 让 panic 日志带上 task 的值，缺省只记录其类型。
func WithLogTaskValue() Option {
	return func(o *options) {
		o.logTaskValue = true
	}
}
