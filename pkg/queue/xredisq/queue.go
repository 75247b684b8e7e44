package xredisq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
	"github.com/omeyang/xqueue/pkg/queue/xsource"
	"github.com/omeyang/xqueue/pkg/resilience/xretry"
)

var _ xqueue.Hooks = (*Queue)(nil)

// Queue 是 Redis 列表队列，实现 xqueue.Hooks。
type Queue struct {
	client redis.UniversalClient
	name   string
	key    string
	source xsource.Source[string]
	opts   options
	loader *loader
}

// New 创建 Queue。
func New(client redis.UniversalClient, name string, source xsource.Source[string], opts ...Option) (*Queue, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if source == nil {
		return nil, ErrNilSource
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.batchSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, o.batchSize)
	}
	if o.retryer == nil {
		o.retryer = xretry.New()
	}
	key := o.key
	if key == "" {
		key = o.prefix + name
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	o.logger = o.logger.With(xlog.Component("xredisq"), xlog.Queue(name), slog.String("key", key))

	q := &Queue{client: client, name: name, key: key, source: source, opts: o}
	q.loader = &loader{q: q}
	return q, nil
}

// NewManager 创建 Queue 和管理它的 Manager。
func NewManager(client redis.UniversalClient, name string, source xsource.Source[string], opts ...Option) (*Queue, *xqueue.Manager, error) {
	q, err := New(client, name, source, opts...)
	if err != nil {
		return nil, nil, err
	}
	mopts := append([]xqueue.Option{xqueue.WithLogger(q.opts.logger)}, q.opts.managerOps...)
	m, err := xqueue.New(q, mopts...)
	if err != nil {
		return nil, nil, err
	}
	return q, m, nil
}

// QueueName 实现 xqueue.Hooks。
func (q *Queue) QueueName() string {
	return q.name
}

// Loader 实现 xqueue.Hooks。
func (q *Queue) Loader() xqueue.Loader {
	return q.loader
}

// Key 返回列表键。
func (q *Queue) Key() string {
	return q.key
}

// OnInitialize 检查连接并清除遗留条目。
func (q *Queue) OnInitialize(ctx context.Context, processID string) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("xredisq: ping: %w", err)
	}
	stale, err := q.client.Del(ctx, q.key).Result()
	if err != nil {
		return fmt.Errorf("xredisq: clear %s: %w", q.key, err)
	}
	q.opts.logger.Debug(ctx, "redis queue initialized", xlog.ProcessID(processID), slog.Bool("cleared", stale > 0))
	return nil
}

// OnClose 删除列表，WithKeepOnClose 时保留。
func (q *Queue) OnClose(ctx context.Context, processID string) error {
	if q.opts.keepOnClose {
		q.opts.logger.Debug(ctx, "redis queue kept on close", xlog.ProcessID(processID))
		return nil
	}
	if err := q.client.Del(ctx, q.key).Err(); err != nil {
		return fmt.Errorf("xredisq: delete %s: %w", q.key, err)
	}
	return nil
}

// Pop 阻塞最多 timeout 取出一个条目，超时返回 ErrEmpty。
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("xredisq: pop %s: %w", q.key, err)
	}
	// BLPOP 返回 [key, value]。
	return res[1], nil
}

// Len 返回列表长度。
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("xredisq: len %s: %w", q.key, err)
	}
	return n, nil
}

// Pushed 返回 loader 累计写入的条目数。
func (q *Queue) Pushed() int64 {
	return q.loader.pushed.Load()
}

// FailFast 要求正在运行的 loader 停止，返回是否有运行在进行中。
func (q *Queue) FailFast() bool {
	return q.loader.FailFast()
}

type loader struct {
	xqueue.Activity
	q      *Queue
	pushed atomic.Int64
}

func (l *loader) Run(ctx context.Context) {
	log := l.q.opts.logger
	ran := l.Do(ctx, func(ctx context.Context, stop <-chan struct{}) {
		batch := make([]any, 0, l.q.opts.batchSize)
		var pushed int64
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := l.push(ctx, batch); err != nil {
				return err
			}
			pushed += int64(len(batch))
			l.pushed.Add(int64(len(batch)))
			batch = batch[:0]
			return nil
		}

		err := l.q.source(ctx, func(v string) error {
			select {
			case <-stop:
				return xsource.ErrStopped
			default:
			}
			batch = append(batch, v)
			if len(batch) < cap(batch) {
				return nil
			}
			return flush()
		})
		if err == nil {
			err = flush()
		}

		n := slog.Int64("entries", pushed)
		switch {
		case err == nil:
			log.Info(ctx, "redis queue loaded", n)
		case errors.Is(err, xsource.ErrStopped), l.FailedFast():
			log.Warn(ctx, "redis queue loader stopped", n)
		default:
			log.Error(ctx, "redis queue loader failed", n, xlog.Err(err))
		}
	})
	if !ran {
		log.Warn(ctx, "redis queue loader already running")
	}
}

func (l *loader) push(ctx context.Context, batch []any) error {
	if lim := l.q.opts.limiter; lim != nil {
		if err := lim.Wait(ctx, l.q.key, len(batch)); err != nil {
			return err
		}
	}
	rpush := func(ctx context.Context) error {
		return l.q.client.RPush(ctx, l.q.key, batch...).Err()
	}
	return l.q.opts.retryer.Do(ctx, func(ctx context.Context) error {
		if b := l.q.opts.breaker; b != nil {
			return b.Do(ctx, rpush)
		}
		return rpush(ctx)
	})
}
