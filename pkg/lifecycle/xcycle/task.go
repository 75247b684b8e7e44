package xcycle

import (
	"context"
	"runtime/pprof"
	"sync/atomic"

	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
)

const (
	taskPending int32 = iota
	taskRunning
	taskSkipped
)

// producerTask 跟踪一次周期提交的 producer 任务。
// Close 只看 Loader.IsActive，任务排队期间 loader 尚未 Begin，
// 周期必须等任务结束（或确认它不会再运行）才能开始关闭。
type producerTask struct {
	state atomic.Int32
	done  chan struct{}
}

func newProducerTask() *producerTask {
	return &producerTask{done: make(chan struct{})}
}

// executor 包装 next，nil 时在带 pprof 标签的独立 goroutine 上运行。
func (t *producerTask) executor(next xqueue.Executor, producer string) xqueue.Executor {
	return xqueue.ExecutorFunc(func(task func()) error {
		run := func() {
			if !t.state.CompareAndSwap(taskPending, taskRunning) {
				return
			}
			defer close(t.done)
			task()
		}
		if next == nil {
			labels := pprof.Labels(xqueue.ProducerLabel, producer)
			go pprof.Do(context.Background(), labels, func(context.Context) { run() })
			return nil
		}
		return next.Submit(run)
	})
}

// skip 让尚未开始的任务不再运行，任务已开始时返回 false。
func (t *producerTask) skip() bool {
	return t.state.CompareAndSwap(taskPending, taskSkipped)
}
