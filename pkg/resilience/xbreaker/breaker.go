package xbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State 是熔断器状态。
type State = gobreaker.State

// 熔断器状态。
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Counts 是当前统计窗口的计数。
type Counts = gobreaker.Counts

// Option 配置 Breaker。
type Option func(*gobreaker.Settings)

// WithConsecutiveFailures 设置触发熔断的连续失败次数，默认 5。0 被忽略。
func WithConsecutiveFailures(n uint32) Option {
	return func(st *gobreaker.Settings) {
		if n > 0 {
			st.ReadyToTrip = func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= n
			}
		}
	}
}

// WithOpenTimeout 设置 Open 到 HalfOpen 的等待时间，默认 30s。
func WithOpenTimeout(d time.Duration) Option {
	return func(st *gobreaker.Settings) {
		if d > 0 {
			st.Timeout = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态放行的请求数，默认 1。
func WithMaxRequests(n uint32) Option {
	return func(st *gobreaker.Settings) {
		if n > 0 {
			st.MaxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(st *gobreaker.Settings) {
		st.OnStateChange = fn
	}
}

// Breaker 包装 gobreaker 的熔断器。
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// New 创建熔断器，name 用于错误信息和回调。
func New(name string, opts ...Option) *Breaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&st)
		}
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Name 返回熔断器名称。
func (b *Breaker) Name() string {
	return b.name
}

// State 返回当前状态。
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts 返回当前统计计数。
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}

// Do 在熔断器保护下执行 fn。熔断器拒绝时 fn 不执行，返回 *BreakerError。
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if err != nil && isRejection(err) {
		return &BreakerError{Err: err, Name: b.name, State: b.cb.State()}
	}
	return err
}
