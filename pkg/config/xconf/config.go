package xconf

import "github.com/knadh/koanf/v2"

// Format 定义配置格式。
type Format string

const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"
	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Config 是已加载的配置。并发安全。
type Config interface {
	// Client 返回当前的 koanf 实例快照，Reload 后旧快照仍可读但不再更新。
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化全部。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件。从字节创建的配置返回 ErrNotReloadable。
	Reload() error

	// Path 返回配置文件路径，从字节创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// MustUnmarshal 与 cfg.Unmarshal 相同，失败时 panic。用于启动阶段。
func MustUnmarshal(cfg Config, path string, target any) {
	if err := cfg.Unmarshal(path, target); err != nil {
		panic(err)
	}
}
