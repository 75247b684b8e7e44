package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 是日志级别，数值与 slog.Level 相同。
type Level slog.Level

// 标准级别。
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// String 与 slog.Level 一致，非标准级别形如 "INFO+2"。
func (l Level) String() string {
	return slog.Level(l).String()
}

// MarshalText 实现 encoding.TextMarshaler。
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，失败时不修改 l。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析日志级别，忽略大小写与首尾空白。
// 除 slog 的写法（含 "info+2" 这类偏移）外还接受 "warning"。
func ParseLevel(s string) (Level, error) {
	text := strings.TrimSpace(s)
	if strings.EqualFold(text, "warning") {
		return LevelWarn, nil
	}
	var sl slog.Level
	if text == "" || sl.UnmarshalText([]byte(text)) != nil {
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
	return Level(sl), nil
}
