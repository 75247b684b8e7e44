package xpool

// NewExecutor 创建执行 func() 任务的 Pool，可直接作为 xqueue.Executor 使用。
//
// 每个 producer 在运行期间独占一个 worker，workers 应不少于同时运行的队列数。
func NewExecutor(workers, queueSize int, opts ...Option) (*Pool[func()], error) {
	return New(workers, queueSize, runTask, opts...)
}

func runTask(task func()) {
	if task != nil {
		task()
	}
}
