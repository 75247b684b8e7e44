package xretry

import "errors"

var (
	// ErrNilContext 表示 Do 传入 nil context。
	ErrNilContext = errors.New("xretry: nil context")

	// ErrNilFunc 表示 Do 传入 nil 函数。
	ErrNilFunc = errors.New("xretry: nil function")
)

// PermanentError 标记不应重试的错误。
type PermanentError struct {
	Err error
}

// Permanent 包装 err 为不可重试错误，nil 返回 nil。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsRetryable 报告 err 是否应重试：nil 和 PermanentError 不重试，其余重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *PermanentError
	return !errors.As(err, &pe)
}
