package xqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrNilHooks 表示 New 传入的 Hooks 为 nil。
	ErrNilHooks = errors.New("xqueue: nil hooks")

	// ErrEmptyQueueName 表示 Hooks.QueueName() 返回空字符串。
	ErrEmptyQueueName = errors.New("xqueue: empty queue name")

	// ErrDuplicateQueue 表示队列名已被另一个已初始化的 Manager 占用。
	// 具体错误类型为 *DuplicateQueueError。
	ErrDuplicateQueue = errors.New("xqueue: duplicate queue")

	// ErrMisconfigured 表示初始化钩子执行后 Hooks.Loader() 仍返回 nil。
	// 具体错误类型为 *MisconfiguredError。
	ErrMisconfigured = errors.New("xqueue: misconfigured queue")

	// ErrNotInitialized 表示在 Initialize 之前调用了 StartProducer。
	ErrNotInitialized = errors.New("xqueue: queue manager not initialized")

	// ErrAlreadyStarted 表示 producer 已经启动过。
	ErrAlreadyStarted = errors.New("xqueue: queue producer already started")

	// ErrSubmitFailed 表示 Executor 拒绝了 producer 任务。
	ErrSubmitFailed = errors.New("xqueue: executor rejected producer")

	// ErrCloseHook 表示 OnClose 钩子失败；此时关闭流程已经完成。
	ErrCloseHook = errors.New("xqueue: close hook failed")
)

// DuplicateQueueError 在队列名已被占用时由 Initialize 返回。
// 使用 errors.Is(err, ErrDuplicateQueue) 判断。
type DuplicateQueueError struct {
	Queue string
}

func (e *DuplicateQueueError) Error() string {
	return fmt.Sprintf("xqueue: queue %q is already in use; close the manager holding it first", e.Queue)
}

// Is 支持 errors.Is(err, ErrDuplicateQueue)。
func (e *DuplicateQueueError) Is(target error) bool {
	return target == ErrDuplicateQueue
}

// Unwrap 返回 ErrDuplicateQueue。
func (e *DuplicateQueueError) Unwrap() error {
	return ErrDuplicateQueue
}

// MisconfiguredError 在 Hooks.Loader() 返回 nil 时由 Initialize 返回。
// 使用 errors.Is(err, ErrMisconfigured) 判断。
type MisconfiguredError struct {
	Queue string
	// Hooks 是 Hooks 实现的类型名。
	Hooks string
}

func (e *MisconfiguredError) Error() string {
	return fmt.Sprintf("xqueue: %s.Loader() returned nil for queue %q; it must return a Loader", e.Hooks, e.Queue)
}

// Is 支持 errors.Is(err, ErrMisconfigured)。
func (e *MisconfiguredError) Is(target error) bool {
	return target == ErrMisconfigured
}

// Unwrap 返回 ErrMisconfigured。
func (e *MisconfiguredError) Unwrap() error {
	return ErrMisconfigured
}
