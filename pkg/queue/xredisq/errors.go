package xredisq

import "errors"

var (
	// ErrNilClient 表示 Redis 客户端为 nil。
	ErrNilClient = errors.New("xredisq: nil redis client")

	// ErrNilSource 表示 Source 为 nil。
	ErrNilSource = errors.New("xredisq: nil source")

	// ErrInvalidBatchSize 表示批量大小小于 1。
	ErrInvalidBatchSize = errors.New("xredisq: invalid batch size")

	// ErrEmpty 表示 Pop 超时内没有条目。
	ErrEmpty = errors.New("xredisq: queue empty")
)
