package xqueue

import (
	"context"
	"reflect"
	"strings"
)

// Loader 是队列的后台生产任务。
//
// Run 每次启动只被调用一次，返回即表示本次生产结束。
// Manager 传入的 ctx 携带调用方的值但不会被取消，loader 需自行观察停止信号。
// IsActive 在生产进行期间返回 true，Close 依据它决定是否拒绝关闭。
type Loader interface {
	Run(ctx context.Context)
	IsActive() bool
}

// Hooks 由具体队列实现，在构造 Manager 时确定。
type Hooks interface {
	// QueueName 返回稳定、非空的队列名。New 时读取一次。
	QueueName() string

	// Loader 返回本队列的 Loader；初始化成功后必须始终返回同一个非 nil 值。
	Loader() Loader

	// OnInitialize 在队列名占用成功后调用。返回错误时占用被回滚，OnClose 不会被调用；
	// 钩子成功但 Loader() 为 nil 时会调用 OnClose 撤销其副作用。
	OnInitialize(ctx context.Context, processID string) error

	// OnClose 在 loader 不活跃时调用。返回错误不会阻止名称释放和状态重置。
	OnClose(ctx context.Context, processID string) error
}

// Executor 异步执行提交的任务。Submit 不应等待任务完成。
type Executor interface {
	Submit(task func()) error
}

// ExecutorFunc 让普通函数实现 Executor。
type ExecutorFunc func(task func()) error

// Submit 调用 f(task)。
func (f ExecutorFunc) Submit(task func()) error {
	return f(task)
}

// State 表示 Manager 的生命周期状态。
type State int

const (
	// StateNotInitialized 未初始化（初始状态，或关闭成功之后）。
	StateNotInitialized State = iota
	// StateInitialized 已初始化，producer 未启动。
	StateInitialized
	// StateProducerRunning 已初始化且 producer 已启动。
	StateProducerRunning
)

func (s State) String() string {
	switch s {
	case StateNotInitialized:
		return "not_initialized"
	case StateInitialized:
		return "initialized"
	case StateProducerRunning:
		return "producer_running"
	default:
		return "unknown"
	}
}

// isNil 识别 nil 接口以及包装了 nil 指针的接口。
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// typeName 返回 v 的类型名，去掉指针前缀，如 "xmemq.Queue[string]"。
func typeName(v any) string {
	return strings.TrimLeft(reflect.TypeOf(v).String(), "*")
}
