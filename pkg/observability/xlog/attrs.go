package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key 常量，保持各包日志字段一致。
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyQueue     = "queue"
	KeyProcessID = "process_id"
	KeyState     = "state"
)

// Err 创建错误属性。err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1m30s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Queue 创建队列名属性
func Queue(name string) slog.Attr {
	return slog.String(KeyQueue, name)
}

// ProcessID 创建进程标识属性。
// processID 是调用方传入的关联标识，原样记录。
func ProcessID(id string) slog.Attr {
	return slog.String(KeyProcessID, id)
}

// State 创建状态属性
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}
