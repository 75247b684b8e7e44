package xcycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

// EntryID 标识 Scheduler 中的一个周期任务。
type EntryID = cron.EntryID

// SchedulerOption 配置 Scheduler。
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	logger   xlog.Logger
	location *time.Location
	onResult func(Result, error)
}

// WithSchedulerLogger 设置 Scheduler 的 Logger。
func WithSchedulerLogger(logger xlog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLocation 设置 cron 表达式使用的时区，默认 time.Local。
func WithLocation(loc *time.Location) SchedulerOption {
	return func(o *schedulerOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithOnResult 设置每次周期结束后的回调。
func WithOnResult(fn func(Result, error)) SchedulerOption {
	return func(o *schedulerOptions) {
		o.onResult = fn
	}
}

// Scheduler 按 cron 表达式周期性地重建队列。
//
// 同一任务上一次周期仍在运行时，本次触发被跳过。
// Stop 取消运行中的周期（loader 被强制停止）并等待它们结束。
type Scheduler struct {
	cron   *cron.Cron
	opts   schedulerOptions
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stopped  bool
	triggers sync.WaitGroup
}

// NewScheduler 创建 Scheduler，调用 Start 后开始调度。
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	o := schedulerOptions{location: time.Local}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	o.logger = o.logger.With(xlog.Component("xcycle.scheduler"))

	cl := cronLogger{logger: o.logger}
	c := cron.New(
		cron.WithLocation(o.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: c, opts: o, ctx: ctx, cancel: cancel}
}

// ValidateSchedule 检查 cron 表达式（标准五段格式或 @every 等描述符）。
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("xcycle: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add 注册一个周期任务，opts 透传给每次 Run。
func (s *Scheduler) Add(spec string, m Manager, opts ...Option) (EntryID, error) {
	if m == nil {
		return 0, ErrNilManager
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0, ErrSchedulerStopped
	}
	opts = append([]Option{WithLogger(s.opts.logger)}, opts...)
	id, err := s.cron.AddJob(spec, cron.FuncJob(func() {
		res, err := Run(s.ctx, m, opts...)
		s.report(res, err)
	}))
	if err != nil {
		return 0, fmt.Errorf("xcycle: invalid schedule %q: %w", spec, err)
	}
	s.opts.logger.Info(s.ctx, "cycle scheduled", xlog.Queue(m.QueueName()), slog.String("schedule", spec))
	return id, nil
}

// Trigger 立即在后台执行一次已注册的任务，跳过规则照常生效。
func (s *Scheduler) Trigger(id EntryID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return false
	}
	s.triggers.Go(entry.WrappedJob.Run)
	return true
}

// Start 开始调度，重复调用无效。
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度，取消运行中的周期并等待其结束，ctx 限制等待时间。
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.triggers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) report(res Result, err error) {
	if s.opts.onResult != nil {
		s.opts.onResult(res, err)
	}
	if err == nil || (res.Forced && errors.Is(err, context.Canceled)) {
		return
	}
	s.opts.logger.Error(s.ctx, "cycle failed",
		xlog.Queue(res.Queue), xlog.ProcessID(res.ProcessID), xlog.Err(err))
}

// cronLogger 把 cron 的日志接入 xlog。
type cronLogger struct {
	logger xlog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	attrs := kvAttrs(keysAndValues)
	if msg == "skip" {
		c.logger.Info(context.Background(), "cycle skipped, previous run still active", attrs...)
		return
	}
	c.logger.Debug(context.Background(), "cron: "+msg, attrs...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	attrs := append(kvAttrs(keysAndValues), xlog.Err(err))
	c.logger.Error(context.Background(), "cron: "+msg, attrs...)
}

func kvAttrs(kv []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			attrs = append(attrs, slog.Any("!BADKEY", kv[i]))
			break
		}
		attrs = append(attrs, slog.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return attrs
}
