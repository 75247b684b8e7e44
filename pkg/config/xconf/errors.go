package xconf

import "errors"

// 加载阶段的错误，均以 %w 包装底层原因。
var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: failed to load config")
	ErrParseFailed       = errors.New("xconf: failed to parse config")
	ErrUnmarshalFailed   = errors.New("xconf: failed to unmarshal config")
)

// ErrNotReloadable 表示配置来自字节而非文件，不能 Reload 或 Watch。
var ErrNotReloadable = errors.New("xconf: config was not loaded from a file")

// ErrInvalidSettings 被 Validate 返回的每一条问题包装。
var ErrInvalidSettings = errors.New("xconf: invalid settings")
