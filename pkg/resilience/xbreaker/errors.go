package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xqueue/pkg/resilience/xretry"
)

var (
	// ErrNilFunc 表示 Do 传入 nil 函数。
	ErrNilFunc = errors.New("xbreaker: nil function")

	// ErrOpen 表示熔断器拒绝了请求（Open 或 HalfOpen 请求过多）。
	ErrOpen = errors.New("xbreaker: circuit open")
)

// BreakerError 是熔断器拒绝请求时返回的错误。
// errors.Is(err, ErrOpen) 为 true，且对 xretry 不可重试。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

// Error 实现 error 接口。
func (e *BreakerError) Error() string {
	return fmt.Sprintf("breaker %s (%s): %v", e.Name, e.State, e.Err)
}

// Is 支持 errors.Is(err, ErrOpen)。
func (e *BreakerError) Is(target error) bool {
	return target == ErrOpen
}

// Unwrap 返回 gobreaker 的原始错误和 xretry 的不可重试标记。
func (e *BreakerError) Unwrap() []error {
	return []error{e.Err, xretry.Permanent(e.Err)}
}

func isRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
