package xqueue

import (
	"context"
	"sync"
)

// Activity 记录 loader 是否正在运行，并为每次运行提供带外的强制停止信号。
//
// 零值可用。具体 Loader 可以嵌入 Activity 直接获得 IsActive 实现：
//
//	type myLoader struct {
//	    xqueue.Activity
//	}
//
//	func (l *myLoader) Run(ctx context.Context) {
//	    stop, ok := l.Begin()
//	    if !ok {
//	        return
//	    }
//	    defer l.End()
//	    for {
//	        select {
//	        case <-stop:
//	            return
//	        default:
//	        }
//	        // 生产一条
//	    }
//	}
//
// 当 Close 因 loader 活跃而被拒绝时，调用 FailFast 让 loader 退出后再重试 Close。
type Activity struct {
	mu       sync.Mutex
	active   bool
	stop     chan struct{}
	failFast bool
}

// Begin 标记一次运行开始，返回本次运行的停止信号。
// 已有运行进行中时返回 (nil, false)。
func (a *Activity) Begin() (<-chan struct{}, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		return nil, false
	}
	a.active = true
	a.failFast = false
	a.stop = make(chan struct{})
	return a.stop, true
}

// End 标记本次运行结束，幂等。
func (a *Activity) End() {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
}

// IsActive 报告是否有运行在进行中。
func (a *Activity) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// FailFast 通知当前运行尽快停止，幂等。
// 没有运行在进行中时返回 false。
// FailFast 只发出信号，运行真正结束（End）之前 IsActive 仍为 true。
func (a *Activity) FailFast() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return false
	}
	if !a.failFast {
		a.failFast = true
		close(a.stop)
	}
	return true
}

// FailedFast 报告当前或最近一次运行是否被 FailFast 中止。
func (a *Activity) FailedFast() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failFast
}

// Do 把 fn 作为一次运行执行：Begin、派生在 FailFast 时取消的 ctx、End。
// 已有运行进行中时不执行 fn 并返回 false。
func (a *Activity) Do(ctx context.Context, fn func(ctx context.Context, stop <-chan struct{})) bool {
	stop, ok := a.Begin()
	if !ok {
		return false
	}
	defer a.End()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	fn(runCtx, stop)
	return true
}
