package xnameset

import "errors"

// ErrInvalidShardCount 表示分片数无效（必须为 2 的幂且不超过上限）。
var ErrInvalidShardCount = errors.New("xnameset: invalid shard count")
