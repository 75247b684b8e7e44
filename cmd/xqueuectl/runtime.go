package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xqueue/pkg/config/xconf"
	"github.com/omeyang/xqueue/pkg/lifecycle/xcycle"
	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/lifecycle/xrun"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
	"github.com/omeyang/xqueue/pkg/observability/xmetrics"
	"github.com/omeyang/xqueue/pkg/queue/xmemq"
	"github.com/omeyang/xqueue/pkg/queue/xredisq"
	"github.com/omeyang/xqueue/pkg/queue/xsource"
	"github.com/omeyang/xqueue/pkg/resilience/xbreaker"
	"github.com/omeyang/xqueue/pkg/resilience/xlimit"
	"github.com/omeyang/xqueue/pkg/resilience/xretry"
	"github.com/omeyang/xqueue/pkg/util/xnameset"
	"github.com/omeyang/xqueue/pkg/util/xpool"
)

// queueRuntime 是一个已装配的队列。
type queueRuntime struct {
	settings xconf.QueueSettings
	manager  *xqueue.Manager
	stopper  xcycle.Stopper
}

// runtime 持有一次 run 命令装配出的全部资源。
type runtime struct {
	settings *xconf.Settings
	logger   xlog.LoggerWithLevel
	closeLog func() error
	executor *xpool.Pool[func()]
	redis    redis.UniversalClient
	breaker  *xbreaker.Breaker
	limiter  *xlimit.RedisLimiter
	queues   []*queueRuntime
}

// newRuntime 按配置装配日志、执行器、redis 客户端与每个队列的管理器。
func newRuntime(s *xconf.Settings, logOut io.Writer) (_ *runtime, err error) {
	rt := &runtime{settings: s}
	defer func() {
		if err != nil {
			_ = rt.Close(context.Background())
		}
	}()

	if err = rt.buildLogger(logOut); err != nil {
		return nil, err
	}
	if s.Executor.Workers > 0 {
		rt.executor, err = xpool.NewExecutor(s.Executor.Workers, s.Executor.QueueSize,
			xpool.WithLogger(rt.logger), xpool.WithName("producers"))
		if err != nil {
			return nil, fmt.Errorf("build executor: %w", err)
		}
	}

	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xqueuectl"))
	if err != nil {
		return nil, fmt.Errorf("build observer: %w", err)
	}
	registry, err := xnameset.New()
	if err != nil {
		return nil, err
	}
	managerOpts := []xqueue.Option{
		xqueue.WithLogger(rt.logger),
		xqueue.WithObserver(observer),
		xqueue.WithRegistry(registry),
	}

	for _, qs := range s.Queues {
		q, err := rt.buildQueue(qs, managerOpts)
		if err != nil {
			return nil, fmt.Errorf("build queue %q: %w", qs.Name, err)
		}
		rt.queues = append(rt.queues, q)
	}
	return rt, nil
}

func (rt *runtime) buildLogger(out io.Writer) error {
	ls := rt.settings.Log
	b := xlog.New().
		SetOutput(out).
		SetLevelString(ls.Level).
		SetFormat(ls.Format).
		SetAttrs(slog.String("app", "xqueuectl"))
	if ls.File != "" {
		b = b.SetRotation(ls.File,
			xlog.RotateMaxSize(ls.MaxSizeMB),
			xlog.RotateMaxBackups(ls.MaxBackups),
			xlog.RotateMaxAge(ls.MaxAgeDays),
			xlog.RotateCompress(ls.Compress),
		)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	rt.logger, rt.closeLog = logger, cleanup
	return nil
}

func (rt *runtime) redisClient() redis.UniversalClient {
	if rt.redis == nil {
		rs := rt.settings.Redis
		rt.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{rs.Addr},
			Password: rs.Password,
			DB:       rs.DB,
		})
	}
	return rt.redis
}

// buildRedisGuards 创建 redis 队列共享的熔断器与限流器，只创建一次。
func (rt *runtime) buildRedisGuards() error {
	rs := rt.settings.Redis
	if rs.BreakerFailures > 0 && rt.breaker == nil {
		rt.breaker = xbreaker.New("redis",
			xbreaker.WithConsecutiveFailures(uint32(rs.BreakerFailures)),
			xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
				rt.logger.Warn(context.Background(), "circuit breaker state changed",
					slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
			}),
		)
	}
	if rs.RateLimit > 0 && rt.limiter == nil {
		// 突发容量不小于批次大小，否则单个批次永远拿不到许可。
		rate := xlimit.Rate{Limit: rs.RateLimit, Burst: max(rs.RateLimit, xredisq.DefaultBatchSize), Period: time.Second}
		limiter, err := xlimit.NewRedis(rt.redisClient(), rate)
		if err != nil {
			return err
		}
		rt.limiter = limiter
	}
	return nil
}

func (rt *runtime) buildQueue(qs xconf.QueueSettings, managerOpts []xqueue.Option) (*queueRuntime, error) {
	source := xsource.Lines(qs.Source)
	switch qs.Backend {
	case xconf.BackendMemory:
		q, m, err := xmemq.NewManager(qs.Name, source,
			xmemq.WithCapacity(qs.Capacity),
			xmemq.WithLogger(rt.logger),
			xmemq.WithManagerOptions(managerOpts...),
		)
		if err != nil {
			return nil, err
		}
		return &queueRuntime{settings: qs, manager: m, stopper: q}, nil
	case xconf.BackendRedis:
		rs := rt.settings.Redis
		if err := rt.buildRedisGuards(); err != nil {
			return nil, err
		}
		opts := []xredisq.Option{
			xredisq.WithPrefix(rs.Prefix),
			xredisq.WithKeepOnClose(qs.KeepOnClose),
			xredisq.WithRetryer(xretry.New(xretry.WithAttempts(rs.PushAttempts))),
			xredisq.WithLogger(rt.logger),
			xredisq.WithManagerOptions(managerOpts...),
		}
		if qs.Key != "" {
			opts = append(opts, xredisq.WithKey(qs.Key))
		}
		if rt.breaker != nil {
			opts = append(opts, xredisq.WithBreaker(rt.breaker))
		}
		if rt.limiter != nil {
			opts = append(opts, xredisq.WithRateLimiter(rt.limiter))
		}
		q, m, err := xredisq.NewManager(rt.redisClient(), qs.Name, source, opts...)
		if err != nil {
			return nil, err
		}
		return &queueRuntime{settings: qs, manager: m, stopper: q}, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", xconf.ErrInvalidSettings, qs.Backend)
	}
}

func (rt *runtime) cycleOptions(q *queueRuntime) []xcycle.Option {
	opts := []xcycle.Option{
		xcycle.WithLogger(rt.logger),
		xcycle.WithStopper(q.stopper),
		xcycle.WithPollInterval(rt.settings.Cycle.PollInterval),
		xcycle.WithGrace(rt.settings.Cycle.ShutdownGrace),
	}
	if rt.executor != nil {
		opts = append(opts, xcycle.WithExecutor(rt.executor))
	}
	return opts
}

// runCycle 执行一个受 cycle.timeout 约束的周期。
func (rt *runtime) runCycle(ctx context.Context, q *queueRuntime) error {
	ctx, cancel := context.WithTimeout(ctx, rt.settings.Cycle.Timeout)
	defer cancel()
	_, err := xcycle.Run(ctx, q.manager, rt.cycleOptions(q)...)
	return err
}

// runOnce 并发地为每个队列运行一个周期，任一失败会强制停止其他周期。
func (rt *runtime) runOnce(ctx context.Context) error {
	services := make([]func(context.Context) error, 0, len(rt.queues))
	for _, q := range rt.queues {
		services = append(services, func(ctx context.Context) error {
			return rt.runCycle(ctx, q)
		})
	}
	return xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithName("xqueuectl-once"), xrun.WithLogger(rt.logger)}, services...)
}

// serve 调度带 schedule 的队列，没有 schedule 的队列在启动时运行一次，
// 同时监视配置文件以热更新日志级别，直到收到信号或 ctx 结束。
func (rt *runtime) serve(ctx context.Context, cfg xconf.Config) error {
	scheduler := xcycle.NewScheduler(xcycle.WithSchedulerLogger(rt.logger))
	services := []func(context.Context) error{
		func(ctx context.Context) error {
			scheduler.Start()
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*rt.settings.Cycle.ShutdownGrace)
			defer cancel()
			return scheduler.Stop(stopCtx)
		},
		func(ctx context.Context) error {
			return rt.watchConfig(ctx, cfg)
		},
	}

	for _, q := range rt.queues {
		if q.settings.Schedule == "" {
			services = append(services, func(ctx context.Context) error {
				err := rt.runCycle(ctx, q)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			continue
		}
		if _, err := scheduler.Add(q.settings.Schedule, q.manager, rt.cycleOptions(q)...); err != nil {
			_ = scheduler.Stop(context.Background())
			return err
		}
	}

	rt.logger.Info(ctx, "xqueuectl started", slog.Int("queues", len(rt.queues)))
	return xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithName("xqueuectl"), xrun.WithLogger(rt.logger)}, services...)
}

// watchConfig 在配置文件变化时重新加载并应用日志级别。
// 配置不可重载时只等待 ctx 结束。
func (rt *runtime) watchConfig(ctx context.Context, cfg xconf.Config) error {
	w, err := xconf.Watch(cfg, func(cfg xconf.Config, err error) {
		if err != nil {
			rt.logger.Warn(ctx, "config reload failed, keeping previous settings", xlog.Err(err))
			return
		}
		s, err := xconf.LoadSettings(cfg)
		if err != nil {
			rt.logger.Warn(ctx, "reloaded config is invalid, keeping previous settings", xlog.Err(err))
			return
		}
		level, err := xlog.ParseLevel(s.Log.Level)
		if err != nil {
			rt.logger.Warn(ctx, "reloaded log level is invalid", xlog.Err(err))
			return
		}
		if level != rt.logger.GetLevel() {
			rt.logger.SetLevel(level)
			rt.logger.Info(ctx, "log level reloaded", slog.String("level", s.Log.Level))
		}
	})
	if err != nil {
		if errors.Is(err, xconf.ErrNotReloadable) {
			<-ctx.Done()
			return nil
		}
		return err
	}
	<-ctx.Done()
	return w.Close()
}

// Close 释放执行器、redis 客户端与日志文件。
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.executor != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, rt.executor.Shutdown(shutdownCtx))
		cancel()
	}
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	if rt.closeLog != nil {
		errs = append(errs, rt.closeLog())
	}
	return errors.Join(errs...)
}
