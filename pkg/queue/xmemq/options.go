package xmemq

import (
	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

// DefaultCapacity 是 channel 的缺省容量。
const DefaultCapacity = 1024

// Option 配置 Queue。
type Option func(*options)

type options struct {
	capacity   int
	logger     xlog.Logger
	managerOps []xqueue.Option
}

// WithCapacity 设置 channel 容量，0 表示无缓冲。
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithLogger 设置 loader 使用的 Logger，并同时传给 NewManager 创建的 Manager。
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
