package xmemq

import "errors"

var (
	// ErrNilSource 表示 Source 为 nil。
	ErrNilSource = errors.New("xmemq: nil source")

	// ErrInvalidCapacity 表示 channel 容量为负数。
	ErrInvalidCapacity = errors.New("xmemq: invalid capacity")

	// ErrClosed 表示当前代已经关闭，条目被丢弃。
	ErrClosed = errors.New("xmemq: queue closed")
)
