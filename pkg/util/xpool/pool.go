package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

var _ io.Closer = (*Pool[int])(nil)

// Pool 是泛型 worker pool，用于异步执行任务，支持优雅关闭和 panic 恢复。
type Pool[T any] struct {
	workers   int
	queueSize int
	handler   func(T)
	opts      options

	mu      sync.RWMutex
	stopped bool
	queue   chan T

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// New 创建并启动 Pool。
//
// workers 取值 [1, 65536]，queueSize 取值 [1, 16777216]，handler 不能为 nil。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.name != "" {
		o.logger = o.logger.With(slog.String("pool", o.name))
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		handler:   handler,
		opts:      o,
		queue:     make(chan T, queueSize),
		done:      make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

// worker 只从 queue 读取任务直到其关闭，保证关闭时队列中的任务被处理完。
func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			attrs := []slog.Attr{
				slog.String("panic", fmt.Sprint(r)),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.String(xlog.KeyStack, string(debug.Stack())),
			}
			if p.opts.logTaskValue {
				attrs = append(attrs, slog.String("task", fmt.Sprintf("%+v", task)))
			}
			p.opts.logger.Error(context.Background(), "xpool: worker panic recovered", attrs...)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。队列满返回 ErrQueueFull，已关闭返回 ErrPoolStopped。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 停止接收新任务并等待所有任务处理完成。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收新任务，等待队列耗尽或 ctx 结束。
// ctx 结束时返回 ctx.Err()，残留 worker 继续在后台处理，可通过 Done 等待。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 在所有 worker 退出后关闭。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量。
func (p *Pool[T]) Workers() int {
	return p.workers
}

// QueueSize 返回队列容量。
func (p *Pool[T]) QueueSize() int {
	return p.queueSize
}
