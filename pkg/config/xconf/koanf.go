package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	delim  = "."
	tagKey = "koanf"
)

type koanfConfig struct {
	current atomic.Pointer[koanf.Koanf]
	path    string
	format  Format

	// reloadMu 串行化 Reload，避免并发重载导致配置回退。
	reloadMu sync.Mutex
}

// New 从文件加载配置，格式由扩展名决定。空文件得到空配置。
func New(path string) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	k, err := loadFile(path, format)
	if err != nil {
		return nil, err
	}
	c := &koanfConfig{path: path, format: format}
	c.current.Store(k)
	return c, nil
}

// NewFromBytes 从字节加载配置，需要显式指定格式。空数据得到空配置。
func NewFromBytes(data []byte, format Format) (Config, error) {
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	k, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	c := &koanfConfig{format: format}
	c.current.Store(k)
	return c, nil
}

func (c *koanfConfig) Client() *koanf.Koanf {
	return c.current.Load()
}

func (c *koanfConfig) Unmarshal(path string, target any) error {
	err := c.current.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: tagKey})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *koanfConfig) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	k, err := loadFile(c.path, c.format)
	if err != nil {
		return err
	}
	c.current.Store(k)
	return nil
}

func (c *koanfConfig) Path() string {
	return c.path
}

func (c *koanfConfig) Format() Format {
	return c.format
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func loadFile(path string, format Format) (*koanf.Koanf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return parse(data, format)
}

func parse(data []byte, format Format) (*koanf.Koanf, error) {
	k := koanf.New(delim)
	if len(data) == 0 {
		return k, nil
	}

	var parser koanf.Parser
	if format == FormatJSON {
		parser = json.Parser()
	} else {
		parser = yaml.Parser()
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}
