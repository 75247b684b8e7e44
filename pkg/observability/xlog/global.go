package xlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// 进程级缺省 Logger，供没有注入 Logger 的组件使用。
var (
	globalMu     sync.Mutex
	globalLogger atomic.Pointer[LoggerWithLevel]
)

// Default 返回进程级 Logger，首次调用时创建（stderr、Info、text）。
func Default() LoggerWithLevel {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	l := buildDefault()
	globalLogger.Store(&l)
	return l
}

func buildDefault() LoggerWithLevel {
	l, _, err := New().Build()
	if err == nil {
		return l
	}
	fmt.Fprintf(os.Stderr, "xlog: default logger: %v, falling back to stderr text handler\n", err)
	return &xlogger{
		handler:        slog.NewTextHandler(os.Stderr, nil),
		levelVar:       new(slog.LevelVar),
		errorCount:     new(atomic.Uint64),
		inErrorHandler: new(atomic.Bool),
	}
}

// SetDefault 替换进程级 Logger，nil 忽略。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalMu.Lock()
	globalLogger.Store(&l)
	globalMu.Unlock()
}

// ResetDefault 丢弃进程级 Logger，下次 Default 重新创建。测试用。
func ResetDefault() {
	globalMu.Lock()
	globalLogger.Store(nil)
	globalMu.Unlock()
}

// globalLog 比实例方法多一层调用，需要额外跳过 1 帧。
func globalLog(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	l := Default()
	if xl, ok := l.(*xlogger); ok {
		xl.log(ctx, level, msg, attrs, 1)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(ctx, msg, attrs...)
	case slog.LevelInfo:
		l.Info(ctx, msg, attrs...)
	case slog.LevelWarn:
		l.Warn(ctx, msg, attrs...)
	default:
		l.Error(ctx, msg, attrs...)
	}
}

// Debug、Info、Warn、Error 写入 Default()。
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelDebug, msg, attrs)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelInfo, msg, attrs)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelWarn, msg, attrs)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelError, msg, attrs)
}
