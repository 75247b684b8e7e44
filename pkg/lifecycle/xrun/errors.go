package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 匹配所有因信号结束的 Group 原因。
	ErrSignal = errors.New("xrun: received signal")

	// ErrNilFunc 表示传入了 nil 服务。
	ErrNilFunc = errors.New("xrun: nil service func")
)

// SignalError 是收到信号时 Group 的取消原因，errors.As 可取出具体信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("xrun: received signal %v", e.Signal)
}

func (e *SignalError) Is(target error) bool { return target == ErrSignal }

func (e *SignalError) Unwrap() error { return ErrSignal }
