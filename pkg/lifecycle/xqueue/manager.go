package xqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omeyang/xqueue/pkg/observability/xlog"
	"github.com/omeyang/xqueue/pkg/observability/xmetrics"
	"github.com/omeyang/xqueue/pkg/util/xnameset"
)

const (
	componentName = "xqueue"

	opInitialize    = "initialize"
	opClose         = "close"
	opStartProducer = "start_producer"
)

// Manager 管理单个队列的生命周期。并发安全。
//
// 所有生命周期方法在同一个实例锁下互斥执行，
// 队列名的跨实例唯一性由注册的 xnameset.Set 保证。
type Manager struct {
	mu sync.Mutex

	hooks        Hooks
	queueName    string
	hooksType    string
	producerName string

	registry *xnameset.Set
	logger   xlog.Logger
	observer xmetrics.Observer

	initialized     bool
	producerStarted bool
}

// New 创建 Manager。hooks 为 nil 返回 ErrNilHooks，
// hooks.QueueName() 为空返回 ErrEmptyQueueName。
func New(hooks Hooks, opts ...Option) (*Manager, error) {
	if isNil(hooks) {
		return nil, ErrNilHooks
	}
	name := hooks.QueueName()
	if name == "" {
		return nil, ErrEmptyQueueName
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.registry == nil {
		o.registry = xnameset.Default()
	}

	hooksType := typeName(hooks)
	return &Manager{
		hooks:        hooks,
		queueName:    name,
		hooksType:    hooksType,
		producerName: hooksType + "-" + name,
		registry:     o.registry,
		logger:       o.logger.With(xlog.Component(componentName), xlog.Queue(name)),
		observer:     o.observer,
	}, nil
}

// QueueName 返回队列名。
func (m *Manager) QueueName() string {
	return m.queueName
}

// ProducerName 返回 producer 的确定性名称 "<Hooks 类型>-<队列名>"。
func (m *Manager) ProducerName() string {
	return m.producerName
}

// Initialize 占用队列名、执行 OnInitialize 钩子并校验 Loader。
//
//   - 已初始化：记录告警并返回 nil，状态不变
//   - 队列名已被占用：返回 *DuplicateQueueError
//   - 钩子失败：释放队列名，返回包装后的钩子错误
//   - Loader() 为 nil：调用 OnClose 撤销钩子的副作用，释放队列名，返回 *MisconfiguredError
func (m *Manager) Initialize(ctx context.Context, processID string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.startSpan(ctx, opInitialize, xmetrics.KindInternal)
	var status xmetrics.Status
	defer func() { span.End(xmetrics.Result{Status: status, Err: err}) }()

	if m.initialized {
		status = xmetrics.StatusNoop
		m.logger.Warn(ctx, "queue manager was already started", xlog.ProcessID(processID))
		return nil
	}

	if !m.registry.Reserve(m.queueName) {
		return &DuplicateQueueError{Queue: m.queueName}
	}
	// 任何失败（包括钩子 panic）都回滚占用，避免名称泄漏。
	committed := false
	defer func() {
		if !committed {
			m.registry.Release(m.queueName)
		}
	}()

	if hookErr := m.hooks.OnInitialize(ctx, processID); hookErr != nil {
		return fmt.Errorf("xqueue: initialize queue %q: %w", m.queueName, hookErr)
	}
	if isNil(m.hooks.Loader()) {
		// OnInitialize 已成功，由 OnClose 撤销它分配的资源。
		if hookErr := m.runOnClose(ctx, processID); hookErr != nil {
			m.logger.Error(ctx, "queue close hook failed while rolling back initialize",
				xlog.ProcessID(processID), xlog.Err(hookErr))
		}
		return &MisconfiguredError{Queue: m.queueName, Hooks: m.hooksType}
	}

	committed = true
	m.initialized = true
	m.logger.Info(ctx, "queue manager initialized", xlog.ProcessID(processID))
	return nil
}

// Close 在 loader 不活跃时执行 OnClose 钩子、释放队列名并重置状态。
//
//   - 未初始化：无操作
//   - loader 活跃：记录告警并返回 nil，状态和名称占用均不变；
//     调用方需先让 loader 停止（如 Activity.FailFast）再重试
//   - 钩子失败或 panic：记录错误，关闭流程照常完成，
//     最后返回包装了 ErrCloseHook 的错误
func (m *Manager) Close(ctx context.Context, processID string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.startSpan(ctx, opClose, xmetrics.KindInternal)
	var status xmetrics.Status
	defer func() { span.End(xmetrics.Result{Status: status, Err: err}) }()

	if !m.initialized {
		status = xmetrics.StatusNoop
		m.logger.Debug(ctx, "queue manager not initialized, nothing to close", xlog.ProcessID(processID))
		return nil
	}

	if loader := m.hooks.Loader(); !isNil(loader) && loader.IsActive() {
		status = xmetrics.StatusRefused
		m.logger.Warn(ctx, "queue manager cannot be closed because its loader is still running; "+
			"force the loader to stop (e.g. Activity.FailFast) and then call Close again",
			xlog.ProcessID(processID),
			slog.String("producer", m.producerName),
		)
		return nil
	}

	hookErr := m.runOnClose(ctx, processID)
	if hookErr != nil {
		m.logger.Error(ctx, "queue close hook failed, continuing teardown",
			xlog.ProcessID(processID), xlog.Err(hookErr))
	}

	m.registry.Release(m.queueName)
	m.initialized = false
	m.producerStarted = false
	m.logger.Info(ctx, "queue manager closed", xlog.ProcessID(processID))

	if hookErr != nil {
		return fmt.Errorf("%w: queue %q: %w", ErrCloseHook, m.queueName, hookErr)
	}
	return nil
}

func (m *Manager) runOnClose(ctx context.Context, processID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.hooks.OnClose(ctx, processID)
}

// StartProducer 在独立 goroutine 上启动 loader。
// 未初始化返回 ErrNotInitialized，重复启动返回 ErrAlreadyStarted。
// 调度后立即返回，不等待 loader 完成。
func (m *Manager) StartProducer(ctx context.Context) error {
	return m.StartProducerOn(ctx, nil)
}

// StartProducerOn 将 loader 提交给 executor 执行；executor 为 nil 时等同 StartProducer。
// executor 拒绝任务时返回包装了 ErrSubmitFailed 的错误，producer 视为未启动。
func (m *Manager) StartProducerOn(ctx context.Context, executor Executor) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.startSpan(ctx, opStartProducer, xmetrics.KindProducer)
	defer func() { span.End(xmetrics.Result{Err: err}) }()

	if !m.initialized {
		return fmt.Errorf("%w: %s", ErrNotInitialized, m.producerName)
	}
	if m.producerStarted {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, m.producerName)
	}

	task := m.producerTask(m.hooks.Loader())
	runCtx := context.WithoutCancel(ctx)
	// 调度成功后才置位；executor panic 时标志保持为 false。
	if isNil(executor) {
		m.goProducer(runCtx, task)
	} else if subErr := executor.Submit(func() { task(runCtx) }); subErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubmitFailed, m.producerName, subErr)
	}
	m.producerStarted = true

	m.logger.Info(ctx, "queue producer scheduled",
		slog.String("producer", m.producerName),
		slog.Bool("executor", !isNil(executor)),
	)
	return nil
}

// IsInitialized 报告 Manager 是否处于已初始化状态。
func (m *Manager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// IsProducerStarted 报告本次初始化后 producer 是否已启动。
func (m *Manager) IsProducerStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.producerStarted
}

// State 返回当前生命周期状态。
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.producerStarted:
		return StateProducerRunning
	case m.initialized:
		return StateInitialized
	default:
		return StateNotInitialized
	}
}

func (m *Manager) startSpan(ctx context.Context, op string, kind xmetrics.Kind) (context.Context, xmetrics.Span) {
	return xmetrics.Start(ctx, m.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: op,
		Queue:     m.queueName,
		Kind:      kind,
	})
}
