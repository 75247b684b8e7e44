package xlimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNilClient 表示 Redis 客户端为 nil。
	ErrNilClient = errors.New("xlimit: nil redis client")

	// ErrInvalidRate 表示速率配置无效。
	ErrInvalidRate = errors.New("xlimit: invalid rate")

	// ErrExceedsBurst 表示单次请求数量超过突发容量，永远无法获得许可。
	ErrExceedsBurst = errors.New("xlimit: request exceeds burst")
)

// DefaultPrefix 是限流键的缺省前缀。
const DefaultPrefix = "xlimit:"

// Limiter 限制某个键上的操作速率。
type Limiter interface {
	// Wait 阻塞直到获得 n 个许可或 ctx 结束。
	Wait(ctx context.Context, key string, n int) error
}

// Rate 描述每 Period 允许 Limit 次操作，突发上限 Burst。
type Rate struct {
	Limit  int
	Burst  int
	Period time.Duration
}

// PerSecond 返回每秒 n 次、突发 n 次的速率。
func PerSecond(n int) Rate {
	return Rate{Limit: n, Burst: n, Period: time.Second}
}

func (r Rate) validate() error {
	if r.Limit <= 0 || r.Burst <= 0 || r.Period <= 0 {
		return fmt.Errorf("%w: limit=%d burst=%d period=%s", ErrInvalidRate, r.Limit, r.Burst, r.Period)
	}
	return nil
}

// Result 是一次 Allow 的结果。
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Option 配置 RedisLimiter。
type Option func(*RedisLimiter)

// WithPrefix 设置限流键前缀。
func WithPrefix(prefix string) Option {
	return func(l *RedisLimiter) {
		l.prefix = prefix
	}
}

// RedisLimiter 是基于 Redis 的分布式限流器。
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedis 创建限流器。
func NewRedis(client redis.UniversalClient, rate Rate, opts ...Option) (*RedisLimiter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := rate.validate(); err != nil {
		return nil, err
	}
	l := &RedisLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit:   redis_rate.Limit{Rate: rate.Limit, Burst: rate.Burst, Period: rate.Period},
		prefix:  DefaultPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Allow 尝试获取 n 个许可，不阻塞。
func (l *RedisLimiter) Allow(ctx context.Context, key string, n int) (Result, error) {
	if n > l.limit.Burst {
		return Result{}, fmt.Errorf("%w: n=%d burst=%d", ErrExceedsBurst, n, l.limit.Burst)
	}
	res, err := l.limiter.AllowN(ctx, l.prefix+key, l.limit, n)
	if err != nil {
		return Result{}, fmt.Errorf("xlimit: allow %q: %w", key, err)
	}
	return Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// Wait 实现 Limiter。
func (l *RedisLimiter) Wait(ctx context.Context, key string, n int) error {
	for {
		res, err := l.Allow(ctx, key, n)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}
		timer := time.NewTimer(max(res.RetryAfter, time.Millisecond))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset 清除键上的限流状态。
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.limiter.Reset(ctx, l.prefix+key)
}
