package xcycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xqueue/pkg/lifecycle/xqueue"
	"github.com/omeyang/xqueue/pkg/util/xpool"
)

func TestRun_NilManager(t *testing.T) {
	_, err := Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilManager)
}

func TestRun_CompletesCycle(t *testing.T) {
	logger, buf := newTestLogger(t)
	q, m, _ := newMemQueue(t, logger, 8, "a", "b")

	res, err := Run(context.Background(), m,
		WithLogger(logger),
		WithPollInterval(5*time.Millisecond),
		WithProcessID(func() string { return "rebuild-1" }),
	)
	require.NoError(t, err)
	assert.Equal(t, "orders", res.Queue)
	assert.Equal(t, "rebuild-1", res.ProcessID)
	assert.False(t, res.Forced)
	assert.False(t, res.Finished.Before(res.Started))
	assert.GreaterOrEqual(t, res.Duration(), time.Duration(0))
	assert.False(t, m.IsInitialized())
	assert.EqualValues(t, 2, q.Emitted())
	assert.Contains(t, buf.String(), "cycle finished")
}

func TestRun_DefaultProcessIDIsUUID(t *testing.T) {
	logger, _ := newTestLogger(t)
	_, m, _ := newMemQueue(t, logger, 4, "a")

	res, err := Run(context.Background(), m, WithLogger(logger), WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	_, perr := uuid.Parse(res.ProcessID)
	assert.NoError(t, perr)
}

func TestRun_UsesExecutor(t *testing.T) {
	logger, _ := newTestLogger(t)
	q, m, _ := newMemQueue(t, logger, 4, "a", "b", "c")

	var submitted int
	inline := xqueue.ExecutorFunc(func(task func()) error {
		submitted++
		task()
		return nil
	})
	_, err := Run(context.Background(), m, WithLogger(logger), WithExecutor(inline), WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)
	assert.EqualValues(t, 3, q.Emitted())
}

func TestRun_ForcedStop(t *testing.T) {
	logger, buf := newTestLogger(t)
	q, m, _ := newMemQueue(t, logger, 1, "a", "b", "c")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := Run(ctx, m,
		WithLogger(logger),
		WithStopper(q),
		WithPollInterval(5*time.Millisecond),
		WithGrace(2*time.Second),
	)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrCloseTimeout)
	assert.True(t, res.Forced)
	assert.False(t, m.IsInitialized())
	assert.False(t, q.Loader().IsActive())
	assert.Contains(t, buf.String(), "cycle interrupted, forcing loader to stop")
}

func TestRun_CloseTimeoutWithoutStopper(t *testing.T) {
	logger, _ := newTestLogger(t)
	q, m, _ := newMemQueue(t, logger, 1, "a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for !q.Loader().IsActive() {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	res, err := Run(ctx, m, WithLogger(logger), WithPollInterval(5*time.Millisecond), WithGrace(30*time.Millisecond))
	require.ErrorIs(t, err, ErrCloseTimeout)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Forced)
	assert.True(t, m.IsInitialized())

	// 清理阻塞的 loader。
	require.True(t, q.FailFast())
	require.Eventually(t, func() bool {
		_ = m.Close(context.Background(), res.ProcessID)
		return !m.IsInitialized()
	}, 2*time.Second, 5*time.Millisecond)
}

// busyExecutor 返回单 worker 的执行器，worker 被占用直到调用 release。
func busyExecutor(t *testing.T) (*xpool.Pool[func()], func()) {
	t.Helper()
	pool, err := xpool.NewExecutor(1, 4)
	require.NoError(t, err)
	block := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(block) }) }
	require.NoError(t, pool.Submit(func() { <-block }))
	t.Cleanup(func() {
		release()
		require.NoError(t, pool.Shutdown(context.Background()))
	})
	return pool, release
}

func TestRun_WaitsForQueuedProducer(t *testing.T) {
	logger, buf := newTestLogger(t)
	q, m, _ := newMemQueue(t, logger, 8, "a", "b")
	pool, release := busyExecutor(t)

	done := make(chan cycleOutcome, 1)
	go func() {
		res, err := Run(context.Background(), m, WithLogger(logger), WithExecutor(pool), WithPollInterval(time.Millisecond))
		done <- cycleOutcome{res, err}
	}()

	// producer 仍在排队，周期不能关闭队列。
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, done)
	assert.True(t, m.IsInitialized())
	assert.EqualValues(t, 0, q.Emitted())

	release()
	select {
	case out := <-done:
		require.NoError(t, out.err)
		assert.False(t, out.res.Forced)
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not finish after the executor was released")
	}
	assert.EqualValues(t, 2, q.Emitted())
	assert.False(t, m.IsInitialized())
	assert.NotContains(t, buf.String(), "started without an initialized queue")
}

func TestRun_CancelledWhileQueuedSkipsProducer(t *testing.T) {
	logger, buf := newTestLogger(t)
	q, m, registry := newMemQueue(t, logger, 8, "a", "b")
	pool, release := busyExecutor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res, err := Run(ctx, m, WithLogger(logger), WithExecutor(pool), WithStopper(q), WithPollInterval(time.Millisecond))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrCloseTimeout)
	assert.True(t, res.Forced)
	assert.False(t, m.IsInitialized())
	assert.False(t, registry.Contains("orders"))

	// 排队的任务出队后不再运行 loader。
	release()
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.EqualValues(t, 0, q.Emitted())
	assert.NotContains(t, buf.String(), "started without an initialized queue")
}

func TestProducerTask_Skip(t *testing.T) {
	task := newProducerTask()
	var ran bool
	inline := task.executor(xqueue.ExecutorFunc(func(fn func()) error {
		fn()
		return nil
	}), "p")
	assert.True(t, task.skip())
	require.NoError(t, inline.Submit(func() { ran = true }))
	assert.False(t, ran)

	task = newProducerTask()
	require.NoError(t, task.executor(nil, "p").Submit(func() { ran = true }))
	<-task.done
	assert.True(t, ran)
	assert.False(t, task.skip())
}

func TestRun_InitializeError(t *testing.T) {
	logger, _ := newTestLogger(t)
	_, m, registry := newMemQueue(t, logger, 4, "a")
	require.True(t, registry.Reserve("orders"))

	_, err := Run(context.Background(), m, WithLogger(logger))
	require.ErrorIs(t, err, xqueue.ErrDuplicateQueue)
	assert.False(t, m.IsInitialized())
}

func TestRun_SubmitFailureClosesQueue(t *testing.T) {
	logger, _ := newTestLogger(t)
	_, m, registry := newMemQueue(t, logger, 4, "a")

	reject := xqueue.ExecutorFunc(func(func()) error { return errors.New("pool full") })
	_, err := Run(context.Background(), m, WithLogger(logger), WithExecutor(reject))
	require.ErrorIs(t, err, xqueue.ErrSubmitFailed)
	assert.False(t, m.IsInitialized())
	assert.False(t, registry.Contains("orders"))
}

func TestRun_PollsUntilLoaderFinishes(t *testing.T) {
	logger, _ := newTestLogger(t)
	f := &fakeManager{activeCloses: 3}

	res, err := Run(context.Background(), f, WithLogger(logger), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	assert.EqualValues(t, 4, f.closes.Load())
	assert.Equal(t, []string{res.ProcessID, res.ProcessID}, f.processIDs)
}

func TestRun_CloseHookError(t *testing.T) {
	logger, _ := newTestLogger(t)
	hookErr := errors.New("drop failed")
	f := &fakeManager{closeErr: hookErr}

	res, err := Run(context.Background(), f, WithLogger(logger), WithPollInterval(time.Millisecond))
	require.ErrorIs(t, err, hookErr)
	assert.False(t, res.Forced)
	assert.False(t, f.IsInitialized())
}

func TestRun_StartErrorJoinsCloseError(t *testing.T) {
	logger, _ := newTestLogger(t)
	startErr := errors.New("start failed")
	closeErr := errors.New("close failed")
	f := &fakeManager{startErr: startErr, closeErr: closeErr}

	_, err := Run(context.Background(), f, WithLogger(logger))
	assert.ErrorIs(t, err, startErr)
	assert.ErrorIs(t, err, closeErr)
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	o := buildOptions([]Option{nil, WithPollInterval(0), WithGrace(-1), WithProcessID(nil), WithLogger(nil)})
	assert.Equal(t, DefaultPollInterval, o.pollInterval)
	assert.Equal(t, DefaultGrace, o.grace)
	assert.NotNil(t, o.newID)
	assert.NotNil(t, o.logger)
}
