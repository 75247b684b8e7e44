package xmemq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/observability/xlog"
	"github.com/omeyang/xqueue/pkg/queue/xsource"
)

var _ xqueue.Hooks = (*Queue[string])(nil)

// generation 是一次初始化对应的 channel。
type generation[T any] struct {
	mu      sync.RWMutex
	entries chan T
	done    chan struct{}
	closed  bool
	once    sync.Once
}

func newGeneration[T any](capacity int) *generation[T] {
	return &generation[T]{
		entries: make(chan T, capacity),
		done:    make(chan struct{}),
	}
}

// send 写入一个条目，在 stop 或本代关闭时放弃。
func (g *generation[T]) send(v T, stop <-chan struct{}) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrClosed
	}
	select {
	case g.entries <- v:
		return nil
	case <-stop:
		return xsource.ErrStopped
	case <-g.done:
		return ErrClosed
	}
}

// close 先唤醒阻塞的 send，再在没有 send 进行时关闭 channel。
func (g *generation[T]) close() {
	g.once.Do(func() {
		close(g.done)
		g.mu.Lock()
		g.closed = true
		close(g.entries)
		g.mu.Unlock()
	})
}

// Queue 是内存队列，实现 xqueue.Hooks。
type Queue[T any] struct {
	name   string
	source xsource.Source[T]
	opts   options
	loader *loader[T]

	gen atomic.Pointer[generation[T]]
}

// New 创建 Queue。name 为空时由 xqueue.New 报错。
func New[T any](name string, source xsource.Source[T], opts ...Option) (*Queue[T], error) {
	if source == nil {
		return nil, ErrNilSource
	}
	o := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, o.capacity)
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	o.logger = o.logger.With(xlog.Component("xmemq"), xlog.Queue(name))

	q := &Queue[T]{name: name, source: source, opts: o}
	q.loader = &loader[T]{q: q}
	return q, nil
}

// NewManager 创建 Queue 和管理它的 Manager。
func NewManager[T any](name string, source xsource.Source[T], opts ...Option) (*Queue[T], *xqueue.Manager, error) {
	q, err := New(name, source, opts...)
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
func (q *Queue[T]) QueueName() string {
	return q.name
}

// Loader 实现 xqueue.Hooks。
func (q *Queue[T]) Loader() xqueue.Loader {
	return q.loader
}

// OnInitialize 创建新的一代 channel。
func (q *Queue[T]) OnInitialize(ctx context.Context, processID string) error {
	if old := q.gen.Swap(newGeneration[T](q.opts.capacity)); old != nil {
		old.close()
	}
	q.opts.logger.Debug(ctx, "memory queue allocated",
		xlog.ProcessID(processID), slog.Int("capacity", q.opts.capacity))
	return nil
}

// OnClose 关闭当前一代 channel。
func (q *Queue[T]) OnClose(ctx context.Context, processID string) error {
	if g := q.gen.Swap(nil); g != nil {
		g.close()
	}
	q.opts.logger.Debug(ctx, "memory queue closed", xlog.ProcessID(processID))
	return nil
}

// Entries 返回当前一代的条目 channel，关闭后被关闭。未初始化时返回 nil。
func (q *Queue[T]) Entries() <-chan T {
	if g := q.gen.Load(); g != nil {
		return g.entries
	}
	return nil
}

// Len 返回当前缓冲中的条目数。
func (q *Queue[T]) Len() int {
	if g := q.gen.Load(); g != nil {
		return len(g.entries)
	}
	return 0
}

// Emitted 返回 loader 累计写入的条目数。
func (q *Queue[T]) Emitted() int64 {
	return q.loader.emitted.Load()
}

// FailFast 要求正在运行的 loader 停止，返回是否有运行在进行中。
func (q *Queue[T]) FailFast() bool {
	return q.loader.FailFast()
}

// loader 把 Source 的条目写入当前一代。
type loader[T any] struct {
	xqueue.Activity
	q       *Queue[T]
	emitted atomic.Int64
}

func (l *loader[T]) Run(ctx context.Context) {
	log := l.q.opts.logger
	ran := l.Do(ctx, func(ctx context.Context, stop <-chan struct{}) {
		g := l.q.gen.Load()
		if g == nil {
			log.Warn(ctx, "memory queue loader started without an initialized queue")
			return
		}
		var n int64
		err := l.q.source(ctx, func(v T) error {
			if err := g.send(v, stop); err != nil {
				return err
			}
			n++
			l.emitted.Add(1)
			return nil
		})
		switch {
		case err == nil:
			log.Info(ctx, "memory queue loaded", slog.Int64("entries", n))
		case errors.Is(err, xsource.ErrStopped), errors.Is(err, context.Canceled) && l.FailedFast():
			log.Warn(ctx, "memory queue loader stopped", slog.Int64("entries", n))
		default:
			log.Error(ctx, "memory queue loader failed", slog.Int64("entries", n), xlog.Err(err))
		}
	})
	if !ran {
		log.Warn(ctx, "memory queue loader already running")
	}
}
