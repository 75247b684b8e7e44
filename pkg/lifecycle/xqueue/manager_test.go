package xqueue

import (
	"context"
	"errors"
	"runtime/pprof"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const waitFor = 2 * time.Second

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for channel")
	}
}

// stopLoader 释放 loader 并等待 Run 返回。
func stopLoader(t *testing.T, l *blockingLoader) {
	t.Helper()
	l.Release()
	waitClosed(t, l.done)
}

func TestNew(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrNilHooks)
	})

	t.Run("typed nil hooks", func(t *testing.T) {
		var h *testHooks
		_, err := New(h)
		assert.ErrorIs(t, err, ErrNilHooks)
	})

	t.Run("empty queue name", func(t *testing.T) {
		_, err := New(&testHooks{})
		assert.ErrorIs(t, err, ErrEmptyQueueName)
	})

	t.Run("defaults", func(t *testing.T) {
		m, err := New(&testHooks{name: "orders"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "orders", m.QueueName())
		assert.Equal(t, "xqueue.testHooks-orders", m.ProducerName())
		assert.Equal(t, StateNotInitialized, m.State())
		assert.False(t, m.IsInitialized())
		assert.False(t, m.IsProducerStarted())
	})
}

func TestManager_OrdersScenario(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	loaderA := newBlockingLoader()
	t.Cleanup(loaderA.Release)
	hooksA := &testHooks{name: "orders", loader: loaderA}
	hooksB := &testHooks{name: "orders", loader: &quickLoader{}}
	a, bufA := newTestManager(t, hooksA, registry)
	b, _ := newTestManager(t, hooksB, registry)

	require.NoError(t, a.Initialize(ctx, "p-a"))
	assert.True(t, a.IsInitialized())

	err := b.Initialize(ctx, "p-b")
	require.ErrorIs(t, err, ErrDuplicateQueue)
	var dup *DuplicateQueueError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "orders", dup.Queue)
	assert.False(t, b.IsInitialized())
	assert.Empty(t, hooksB.inits(), "OnInitialize must not run when the name is taken")

	require.NoError(t, a.StartProducer(ctx))
	waitClosed(t, loaderA.started)
	require.True(t, loaderA.IsActive())

	require.NoError(t, a.Close(ctx, "p-a"))
	assert.True(t, a.IsInitialized())
	assert.Equal(t, StateProducerRunning, a.State())
	assert.True(t, registry.Contains("orders"))
	assert.Empty(t, hooksA.closes())
	assert.Contains(t, bufA.String(), "cannot be closed because its loader is still running")

	stopLoader(t, loaderA)
	require.NoError(t, a.Close(ctx, "p-a"))
	assert.False(t, a.IsInitialized())
	assert.False(t, registry.Contains("orders"))
	assert.Equal(t, []string{"p-a"}, hooksA.closes())

	require.NoError(t, b.Initialize(ctx, "p-b"))
	assert.True(t, b.IsInitialized())
}

func TestManager_InitializeIdempotent(t *testing.T) {
	registry := newTestRegistry(t)
	hooks := &testHooks{name: "orders", loader: &quickLoader{}}
	m, buf := newTestManager(t, hooks, registry)

	require.NoError(t, m.Initialize(context.Background(), "p1"))
	require.NoError(t, m.Initialize(context.Background(), "p2"))

	assert.Equal(t, []string{"p1"}, hooks.inits())
	assert.Equal(t, StateInitialized, m.State())
	assert.Contains(t, buf.String(), "queue manager was already started")
	assert.Equal(t, 1, registry.Len())
}

func TestManager_InitializeHookError(t *testing.T) {
	registry := newTestRegistry(t)
	hookErr := errors.New("schema missing")
	hooks := &testHooks{name: "orders", loader: &quickLoader{}, initErr: hookErr}
	m, _ := newTestManager(t, hooks, registry)

	err := m.Initialize(context.Background(), "p1")
	require.ErrorIs(t, err, hookErr)
	assert.Contains(t, err.Error(), `"orders"`)
	assert.False(t, m.IsInitialized())
	assert.False(t, registry.Contains("orders"))

	// 名称未泄漏，另一个 Manager 可以直接占用。
	other, _ := newTestManager(t, &testHooks{name: "orders", loader: &quickLoader{}}, registry)
	require.NoError(t, other.Initialize(context.Background(), "p2"))
}

func TestManager_InitializeHookPanic(t *testing.T) {
	registry := newTestRegistry(t)
	hooks := &testHooks{name: "orders", loader: &quickLoader{}, initPanic: true}
	m, _ := newTestManager(t, hooks, registry)

	assert.PanicsWithValue(t, "initialize exploded", func() {
		_ = m.Initialize(context.Background(), "p1")
	})
	assert.False(t, registry.Contains("orders"))

	// 锁已释放，后续调用正常。
	hooks.initPanic = false
	require.NoError(t, m.Initialize(context.Background(), "p2"))
	assert.True(t, m.IsInitialized())
}

func TestManager_InitializeNilLoader(t *testing.T) {
	registry := newTestRegistry(t)

	tests := []struct {
		name   string
		loader Loader
	}{
		{"nil interface", nil},
		{"typed nil", (*blockingLoader)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &testHooks{name: "orders", loader: tt.loader}
			m, _ := newTestManager(t, hooks, registry)

			err := m.Initialize(context.Background(), "p1")
			require.ErrorIs(t, err, ErrMisconfigured)
			var mis *MisconfiguredError
			require.ErrorAs(t, err, &mis)
			assert.Equal(t, "orders", mis.Queue)
			assert.Equal(t, "xqueue.testHooks", mis.Hooks)

			assert.False(t, m.IsInitialized())
			assert.False(t, registry.Contains("orders"))
			assert.Equal(t, []string{"p1"}, hooks.closes())
		})
	}
}

func TestManager_InitializeNilLoaderCloseHookError(t *testing.T) {
	registry := newTestRegistry(t)
	hooks := &testHooks{name: "orders", closePnc: true}
	m, buf := newTestManager(t, hooks, registry)

	err := m.Initialize(context.Background(), "p1")
	require.ErrorIs(t, err, ErrMisconfigured)
	assert.False(t, registry.Contains("orders"))
	assert.Contains(t, buf.String(), "queue close hook failed while rolling back initialize")
}

func TestManager_StartProducerNotInitialized(t *testing.T) {
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: &quickLoader{}}, newTestRegistry(t))

	err := m.StartProducer(context.Background())
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.Contains(t, err.Error(), m.ProducerName())
	assert.False(t, m.IsProducerStarted())
}

func TestManager_StartProducerTwice(t *testing.T) {
	loader := newBlockingLoader()
	t.Cleanup(loader.Release)
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx, "p1"))
	require.NoError(t, m.StartProducer(ctx))
	err := m.StartProducer(ctx)
	require.ErrorIs(t, err, ErrAlreadyStarted)

	waitClosed(t, loader.started)
	stopLoader(t, loader)
	assert.Equal(t, int32(1), loader.runs.Load())
}

func TestManager_StartProducerConcurrent(t *testing.T) {
	loader := newBlockingLoader()
	t.Cleanup(loader.Release)
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "p1"))

	const n = 16
	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		already atomic.Int32
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := m.StartProducer(ctx); {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAlreadyStarted):
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), already.Load())
	waitClosed(t, loader.started)
	stopLoader(t, loader)
	assert.Equal(t, int32(1), loader.runs.Load())
}

func TestManager_ProducerGoroutineLabel(t *testing.T) {
	loader := newBlockingLoader()
	t.Cleanup(loader.Release)
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Initialize(ctx, "p1"))
	require.NoError(t, m.StartProducer(ctx))
	waitClosed(t, loader.started)

	cancel()
	runCtx := loader.runCtx()
	label, ok := pprof.Label(runCtx, ProducerLabel)
	assert.True(t, ok)
	assert.Equal(t, m.ProducerName(), label)
	assert.NoError(t, runCtx.Err(), "loader context must outlive the caller's")

	stopLoader(t, loader)
}

func TestManager_StartProducerOnExecutor(t *testing.T) {
	loader := &quickLoader{}
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "p1"))

	var tasks []func()
	exec := ExecutorFunc(func(task func()) error {
		tasks = append(tasks, task)
		return nil
	})

	require.NoError(t, m.StartProducerOn(ctx, exec))
	require.Len(t, tasks, 1)
	assert.Zero(t, loader.runs.Load(), "Submit must not run the loader inline")
	assert.True(t, m.IsProducerStarted())

	tasks[0]()
	assert.Equal(t, int32(1), loader.runs.Load())

	require.ErrorIs(t, m.StartProducerOn(ctx, exec), ErrAlreadyStarted)
	assert.Len(t, tasks, 1)
}

func TestManager_StartProducerOnRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := &quickLoader{}
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "p1"))

	rejectErr := errors.New("queue full")
	rejecting := NewMockExecutor(ctrl)
	rejecting.EXPECT().Submit(gomock.Any()).Return(rejectErr)

	err := m.StartProducerOn(ctx, rejecting)
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.ErrorIs(t, err, rejectErr)
	assert.False(t, m.IsProducerStarted())
	assert.Equal(t, StateInitialized, m.State())

	accepting := NewMockExecutor(ctrl)
	accepting.EXPECT().Submit(gomock.Any()).DoAndReturn(func(task func()) error {
		task()
		return nil
	})
	require.NoError(t, m.StartProducerOn(ctx, accepting))
	assert.Equal(t, int32(1), loader.runs.Load())
}

func TestManager_StartProducerOnExecutorPanics(t *testing.T) {
	loader := &quickLoader{}
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "p1"))

	exploding := ExecutorFunc(func(func()) error { panic("executor exploded") })
	assert.Panics(t, func() { _ = m.StartProducerOn(ctx, exploding) })
	assert.False(t, m.IsProducerStarted())
	assert.Equal(t, StateInitialized, m.State())

	inline := ExecutorFunc(func(task func()) error {
		task()
		return nil
	})
	require.NoError(t, m.StartProducerOn(ctx, inline))
	assert.True(t, m.IsProducerStarted())
	assert.Equal(t, int32(1), loader.runs.Load())
}

func TestManager_StartProducerOnNilExecutor(t *testing.T) {
	loader := newBlockingLoader()
	t.Cleanup(loader.Release)
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "p1"))

	var exec ExecutorFunc
	require.NoError(t, m.StartProducerOn(ctx, exec))
	waitClosed(t, loader.started)
	stopLoader(t, loader)
}

func TestManager_LoaderPanicRecovered(t *testing.T) {
	loader := &panicLoader{done: make(chan struct{})}
	m, buf := newTestManager(t, &testHooks{name: "orders", loader: loader}, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "p1"))
	require.NoError(t, m.StartProducer(ctx))

	waitClosed(t, loader.done)
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "queue loader panicked")
	}, waitFor, 10*time.Millisecond)
	assert.True(t, m.IsProducerStarted())
}

func TestManager_CloseNotInitialized(t *testing.T) {
	hooks := &testHooks{name: "orders", loader: &quickLoader{}}
	m, _ := newTestManager(t, hooks, newTestRegistry(t))

	require.NoError(t, m.Close(context.Background(), "p1"))
	assert.Empty(t, hooks.closes())
}

func TestManager_CloseHookFailure(t *testing.T) {
	tests := []struct {
		name  string
		hooks *testHooks
		want  string
	}{
		{"error", &testHooks{closeErr: errors.New("flush failed")}, "flush failed"},
		{"panic", &testHooks{closePnc: true}, "close exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRegistry(t)
			tt.hooks.name = "orders"
			tt.hooks.loader = &quickLoader{}
			m, buf := newTestManager(t, tt.hooks, registry)
			ctx := context.Background()

			require.NoError(t, m.Initialize(ctx, "p1"))
			require.NoError(t, m.StartProducerOn(ctx, ExecutorFunc(func(func()) error { return nil })))

			err := m.Close(ctx, "p1")
			require.ErrorIs(t, err, ErrCloseHook)
			assert.Contains(t, err.Error(), tt.want)

			assert.False(t, m.IsInitialized())
			assert.False(t, m.IsProducerStarted())
			assert.False(t, registry.Contains("orders"))
			assert.Contains(t, buf.String(), "queue close hook failed")
		})
	}
}

func TestManager_RestartAfterClose(t *testing.T) {
	loader := &quickLoader{}
	hooks := &testHooks{name: "orders", loader: loader}
	m, _ := newTestManager(t, hooks, newTestRegistry(t))
	ctx := context.Background()
	inline := ExecutorFunc(func(task func()) error { task(); return nil })

	for i := range 3 {
		require.NoError(t, m.Initialize(ctx, "p"))
		require.NoError(t, m.StartProducerOn(ctx, inline))
		require.NoError(t, m.Close(ctx, "p"))
		assert.Equal(t, int32(i+1), loader.runs.Load())
	}
	assert.Len(t, hooks.inits(), 3)
	assert.Len(t, hooks.closes(), 3)
}

func TestManager_FailFastUnblocksClose(t *testing.T) {
	registry := newTestRegistry(t)
	loader := newBlockingLoader()
	t.Cleanup(loader.Release)
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: loader}, registry)
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx, "p1"))
	require.NoError(t, m.StartProducer(ctx))
	waitClosed(t, loader.started)

	require.NoError(t, m.Close(ctx, "p1"))
	require.True(t, m.IsInitialized())

	require.True(t, loader.FailFast())
	waitClosed(t, loader.done)
	assert.True(t, loader.FailedFast())

	require.NoError(t, m.Close(ctx, "p1"))
	assert.False(t, m.IsInitialized())
	assert.False(t, registry.Contains("orders"))
}

func TestManager_ConcurrentInitializeSameName(t *testing.T) {
	registry := newTestRegistry(t)
	const n = 32
	managers := make([]*Manager, n)
	for i := range managers {
		managers[i], _ = newTestManager(t, &testHooks{name: "orders", loader: &quickLoader{}}, registry)
	}

	var (
		wg  sync.WaitGroup
		ok  atomic.Int32
		dup atomic.Int32
	)
	for _, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := m.Initialize(context.Background(), "p"); {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrDuplicateQueue):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), dup.Load())

	initialized := 0
	for _, m := range managers {
		if m.IsInitialized() {
			initialized++
		}
	}
	assert.Equal(t, 1, initialized)
}

func TestManager_ConcurrentLifecycle(t *testing.T) {
	registry := newTestRegistry(t)
	m, _ := newTestManager(t, &testHooks{name: "orders", loader: &quickLoader{}}, registry)
	inline := ExecutorFunc(func(task func()) error { task(); return nil })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				switch i % 4 {
				case 0:
					_ = m.Initialize(ctx, "p")
				case 1:
					_ = m.StartProducerOn(ctx, inline)
				case 2:
					_ = m.Close(ctx, "p")
				default:
					_ = m.State()
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, m.Close(ctx, "p"))
	assert.Equal(t, StateNotInitialized, m.State())
	assert.False(t, registry.Contains("orders"))
}

func TestManager_HookCallOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	hooks := NewMockHooks(ctrl)
	loader := NewMockLoader(ctrl)

	hooks.EXPECT().QueueName().Return("orders")
	hooks.EXPECT().Loader().Return(loader).AnyTimes()
	gomock.InOrder(
		hooks.EXPECT().OnInitialize(gomock.Any(), "rebuild-7").Return(nil),
		loader.EXPECT().Run(gomock.Any()),
		loader.EXPECT().IsActive().Return(false),
		hooks.EXPECT().OnClose(gomock.Any(), "rebuild-7").Return(nil),
	)

	m, _ := newTestManager(t, hooks, newTestRegistry(t))
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx, "rebuild-7"))
	require.NoError(t, m.StartProducerOn(ctx, ExecutorFunc(func(task func()) error { task(); return nil })))
	require.NoError(t, m.Close(ctx, "rebuild-7"))
	assert.Equal(t, "xqueue.MockHooks-orders", m.ProducerName())
}

func TestManager_DefaultRegistry(t *testing.T) {
	logger, _ := newTestLogger(t)
	a, err := New(&testHooks{name: "xqueue-default-registry", loader: &quickLoader{}}, WithLogger(logger))
	require.NoError(t, err)
	b, err := New(&testHooks{name: "xqueue-default-registry", loader: &quickLoader{}}, WithLogger(logger))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx, "p"))
	t.Cleanup(func() { _ = a.Close(ctx, "p") })
	require.ErrorIs(t, b.Initialize(ctx, "p"), ErrDuplicateQueue)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_initialized", StateNotInitialized.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "producer_running", StateProducerRunning.String())
	assert.Equal(t, "unknown", State(42).String())
}
