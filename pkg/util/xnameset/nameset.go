package xnameset

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Set 是并发安全的名称占用集合。
// 零值不可用，请使用 New 或 Default。
type Set struct {
	shards []shard
	mask   uint64
	count  atomic.Int64
}

type shard struct {
	mu    sync.Mutex
	names map[string]struct{}
}

var (
	defaultSet  *Set
	defaultOnce sync.Once
)

// Default 返回进程级的共享 Set，首次调用时创建。
func Default() *Set {
	defaultOnce.Do(func() {
		defaultSet = newSet(defaultOptions())
	})
	return defaultSet
}

// New 创建独立的 Set。
// 配置无效时返回错误（如分片数不是 2 的幂）。
func New(opts ...Option) (*Set, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return newSet(o), nil
}

func newSet(o options) *Set {
	shards := make([]shard, o.shardCount)
	for i := range shards {
		shards[i].names = make(map[string]struct{})
	}
	return &Set{
		shards: shards,
		// shardCount 已验证为 [1, 65536] 内的 2 的幂，转换安全。
		mask: uint64(o.shardCount - 1),
	}
}

func (s *Set) shardFor(name string) *shard {
	return &s.shards[xxhash.Sum64String(name)&s.mask]
}

// Reserve 尝试占用 name。
// name 此前空闲并被本次调用占用时返回 true；已被占用或 name 为空时返回 false。
func (s *Set) Reserve(name string) bool {
	if name == "" {
		return false
	}
	sh := s.shardFor(name)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, taken := sh.names[name]; taken {
		return false
	}
	sh.names[name] = struct{}{}
	s.count.Add(1)
	return true
}

// Release 释放 name，幂等。
// 返回 name 在调用前是否处于占用状态。
func (s *Set) Release(name string) bool {
	if name == "" {
		return false
	}
	sh := s.shardFor(name)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, taken := sh.names[name]; !taken {
		return false
	}
	delete(sh.names, name)
	s.count.Add(-1)
	return true
}

// Contains 报告 name 当前是否被占用（瞬时快照）。
func (s *Set) Contains(name string) bool {
	sh := s.shardFor(name)
	sh.mu.Lock()
	_, taken := sh.names[name]
	sh.mu.Unlock()
	return taken
}

// Len 返回当前被占用的名称数量（单次原子读取）。
func (s *Set) Len() int {
	return int(max(s.count.Load(), 0))
}

// Names 返回当前被占用名称的有序快照，仅用于调试和展示。
// 不保证跨分片原子性。
func (s *Set) Names() []string {
	names := make([]string, 0, s.Len())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for name := range sh.names {
			names = append(names, name)
		}
		sh.mu.Unlock()
	}
	slices.Sort(names)
	return names
}
