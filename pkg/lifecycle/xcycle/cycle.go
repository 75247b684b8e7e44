package xcycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

// Manager 是周期驱动所需的 *xqueue.Manager 方法集。
type Manager interface {
	QueueName() string
	ProducerName() string
	Initialize(ctx context.Context, processID string) error
	StartProducerOn(ctx context.Context, executor xqueue.Executor) error
	Close(ctx context.Context, processID string) error
	IsInitialized() bool
}

var _ Manager = (*xqueue.Manager)(nil)

// Stopper 强制停止正在运行的 loader，如 xmemq.Queue 和 xredisq.Queue。
type Stopper interface {
	FailFast() bool
}

// Result 描述一次周期。
type Result struct {
	Queue     string
	ProcessID string
	Started   time.Time
	Finished  time.Time
	// Forced 表示 ctx 在 loader 完成前结束，loader 被强制停止。
	Forced bool
}

// Duration 返回周期耗时。
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Run 执行一次完整周期：Initialize、启动 producer、等待 producer 任务结束、Close。
//
// ctx 结束时，仍在排队的 producer 任务被取消；已开始的任务通过 Stopper.FailFast
// （若配置）强制停止。宽限期内仍未关闭返回 ErrCloseTimeout。
// OnClose 钩子失败时关闭流程已完成，返回该错误。
func Run(ctx context.Context, m Manager, opts ...Option) (res Result, err error) {
	if m == nil {
		return Result{}, ErrNilManager
	}
	o := buildOptions(opts)
	res = Result{Queue: m.QueueName(), ProcessID: o.newID(), Started: time.Now()}
	log := o.logger.With(xlog.Component("xcycle"), xlog.Queue(res.Queue), xlog.ProcessID(res.ProcessID))
	defer func() { res.Finished = time.Now() }()

	if err = m.Initialize(ctx, res.ProcessID); err != nil {
		return res, err
	}
	task := newProducerTask()
	if err = m.StartProducerOn(ctx, task.executor(o.executor, m.ProducerName())); err != nil {
		// producer 没有启动，loader 不活跃，Close 不会被拒绝。
		if closeErr := m.Close(context.WithoutCancel(ctx), res.ProcessID); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return res, err
	}
	log.Debug(ctx, "cycle started")

	select {
	case <-task.done:
		err = waitClosed(ctx, m, res.ProcessID, o.pollInterval)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		log.Info(ctx, "cycle finished", xlog.Duration(time.Since(res.Started)))
		return res, nil
	}
	if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
		return res, err
	}

	res.Forced = true
	skipped := task.skip()
	log.Warn(ctx, "cycle interrupted, forcing loader to stop", xlog.Err(err), slog.Bool("skipped", skipped))

	graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.grace)
	defer cancel()
	if !skipped {
		if err = waitStopped(graceCtx, task, o.stopper, o.pollInterval); err == nil {
			err = waitClosed(graceCtx, m, res.ProcessID, o.pollInterval)
		}
	} else {
		err = waitClosed(graceCtx, m, res.ProcessID, o.pollInterval)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w: %s: %w", ErrCloseTimeout, res.Queue, ctx.Err())
		}
		return res, err
	}
	return res, ctx.Err()
}

// waitStopped 等待已开始的 producer 任务结束。
// loader 可能还没进入 Begin，FailFast 会按轮询间隔重试直到生效。
func waitStopped(ctx context.Context, task *producerTask, stopper Stopper, interval time.Duration) error {
	stopped := stopper == nil
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !stopped {
			stopped = stopper.FailFast()
		}
		select {
		case <-task.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitClosed 反复 Close 直到 Manager 不再处于初始化状态，或 ctx 结束。
func waitClosed(ctx context.Context, m Manager, processID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := m.Close(ctx, processID); err != nil {
			return err
		}
		if !m.IsInitialized() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
