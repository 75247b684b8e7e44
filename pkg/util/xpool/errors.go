package xpool

import "errors"

var (
	// ErrNilHandler 表示 New 的 handler 为 nil。
	ErrNilHandler = errors.New("xpool: nil handler")

	// ErrInvalidWorkers 表示 worker 数量超出 [1, 65536]。
	ErrInvalidWorkers = errors.New("xpool: invalid worker count")

	// ErrInvalidQueueSize 表示队列大小超出 [1, 16777216]。
	ErrInvalidQueueSize = errors.New("xpool: invalid queue size")

	// ErrQueueFull 表示任务队列已满，任务未被接受。
	ErrQueueFull = errors.New("xpool: queue is full")

	// ErrPoolStopped 表示 pool 已关闭。
	ErrPoolStopped = errors.New("xpool: pool is stopped")

	// ErrNilContext 表示 Shutdown 传入 nil context。
	ErrNilContext = errors.New("xpool: nil context")
)
