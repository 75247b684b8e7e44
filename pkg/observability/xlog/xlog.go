package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Logger 是各组件注入的日志接口，ctx 为首参，属性只接受 slog.Attr。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 派生带固定属性的 Logger，与父级共享级别。
	With(attrs ...slog.Attr) Logger

	// WithGroup 派生 Logger，之后的属性归入 name 分组。
	WithGroup(name string) Logger
}

// Leveler 用于运行时调整级别，例如配置热更新。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 是 Builder.Build 的返回类型。
type LoggerWithLevel interface {
	Logger
	Leveler
}

// Discard 返回不输出任何内容的 Logger。
func Discard() Logger {
	return &xlogger{
		handler:    slog.DiscardHandler,
		levelVar:   new(slog.LevelVar),
		errorCount: new(atomic.Uint64),
	}
}
