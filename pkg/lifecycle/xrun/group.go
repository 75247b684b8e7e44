package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

// Group 基于 errgroup + context 管理多个服务的并发运行和协调关闭。
//
// 任一服务返回错误或 Cancel 被调用时，所有服务收到取消信号。
// Go、GoWithName、Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
	logger   xlog.Logger
}

// NewGroup 创建 Group，返回的 context 在任一服务出错时被取消。
// nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
		logger:   options.logger.With(xlog.Component("xrun"), slog.String("group", options.name)),
	}, egCtx
}

// Go 在新 goroutine 中运行 fn，fn 返回错误时取消其他服务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，额外记录服务的启停日志。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		log := g.logger.With(slog.String("service", name))
		log.Debug(g.ctx, "service starting")
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(g.ctx, "service exited with error", xlog.Err(err))
		} else {
			log.Debug(g.ctx, "service stopped")
		}
		return err
	})
}

// Wait 等待所有服务结束，返回第一个错误。
//
// 由 Cancel(cause) 或信号触发的取消返回 cause（如 *SignalError），
// 没有显式 cause 的普通取消返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.logger.Debug(g.ctx, "all services stopped")

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() == nil {
			// context.Canceled 来自服务内部。
			return err
		}
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return nil
	}
	if err == nil && g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return err
}

// Cancel 取消所有服务，cause 由 Wait 返回。cause 不应包装 context.Canceled。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// Run 运行服务并监听默认信号，收到信号时返回 *SignalError。
// 所有服务正常返回后信号监听随之结束。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 与 Run 相同，支持配置选项。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		g.Go(func(ctx context.Context) error {
			defer wg.Done()
			if svc == nil {
				return ErrNilFunc
			}
			return svc(ctx)
		})
	}
	if !g.opts.noSignalHandler {
		servicesDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(servicesDone)
		}()
		g.Go(func(ctx context.Context) error {
			return g.watchSignals(ctx, servicesDone)
		})
	}
	return g.Wait()
}

func (g *Group) watchSignals(ctx context.Context, servicesDone <-chan struct{}) error {
	signals := g.opts.signals
	if len(signals) == 0 {
		signals = DefaultSignals()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-g.opts.signalSource:
	case sig = <-sigCh:
	case <-servicesDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	g.logger.Info(ctx, "received signal", slog.String("signal", sig.String()))
	g.cancel(&SignalError{Signal: sig})
	return nil
}
