package xcycle

import "errors"

var (
	// ErrNilManager 表示 Manager 为 nil。
	ErrNilManager = errors.New("xcycle: nil manager")

	// ErrCloseTimeout 表示强制停止后宽限期内仍未能关闭队列。
	ErrCloseTimeout = errors.New("xcycle: queue did not close within grace period")

	// ErrSchedulerStopped 表示 Scheduler 已停止，不能再添加任务。
	ErrSchedulerStopped = errors.New("xcycle: scheduler stopped")
)
