package xretry

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Retryer 执行有界重试。零值不可用，使用 New 创建。并发安全。
type Retryer struct {
	attempts int
	backoff  Backoff
	onRetry  func(attempt int, err error)
}

// Option 配置 Retryer。
type Option func(*Retryer)

// WithAttempts 设置总尝试次数（含首次），小于 1 视为 1。
func WithAttempts(n int) Option {
	return func(r *Retryer) {
		r.attempts = max(n, 1)
	}
}

// WithBackoff 设置退避策略，nil 被忽略。
func WithBackoff(b Backoff) Option {
	return func(r *Retryer) {
		if b != nil {
			r.backoff = b
		}
	}
}

// WithOnRetry 设置每次失败后、等待前的回调，attempt 从 1 开始。
func WithOnRetry(f func(attempt int, err error)) Option {
	return func(r *Retryer) {
		r.onRetry = f
	}
}

// New 创建 Retryer，默认 3 次尝试、指数退避。
func New(opts ...Option) *Retryer {
	r := &Retryer{
		attempts: 3,
		backoff:  NewExponentialBackoff(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Attempts 返回总尝试次数。
func (r *Retryer) Attempts() int {
	return r.attempts
}

// Do 执行 fn 直到成功、次数耗尽、遇到 PermanentError 或 ctx 结束，返回最后一次错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(r.attempts)),
		retry.RetryIf(IsRetryable),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.NextDelay(int(n))
		}),
		retry.LastErrorOnly(true),
	}
	if r.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(int(n)+1, err)
		}))
	}
	return retry.New(opts...).Do(func() error {
		return fn(ctx)
	})
}
