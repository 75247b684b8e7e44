package xconf

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// 队列后端。
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// 缺省值。
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultCapacity      = 1024
	DefaultRedisPrefix   = "xqueue:"
	DefaultPollInterval  = 200 * time.Millisecond
	DefaultCycleTimeout  = 10 * time.Minute
	DefaultPushAttempts  = 3
	DefaultShutdownGrace = 5 * time.Second
)

// Settings 是 xqueuectl 的运行配置。
type Settings struct {
	Log      LogSettings      `koanf:"log"`
	Executor ExecutorSettings `koanf:"executor"`
	Redis    RedisSettings    `koanf:"redis"`
	Cycle    CycleSettings    `koanf:"cycle"`
	Queues   []QueueSettings  `koanf:"queues"`
}

// LogSettings 日志配置。File 非空时写入文件并按大小轮转。
type LogSettings struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ExecutorSettings 控制 producer 的执行方式。
// Workers 为 0 时每个 producer 使用独立 goroutine。
type ExecutorSettings struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// RedisSettings 是 redis 后端共用的连接配置。
type RedisSettings struct {
	Addr         string `koanf:"addr"`
	Password     string `koanf:"password"`
	DB           int    `koanf:"db"`
	Prefix       string `koanf:"prefix"`
	PushAttempts int    `koanf:"push_attempts"`
	// RateLimit 限制每秒写入的条目数（所有进程共享），0 表示不限制。
	RateLimit int `koanf:"rate_limit"`
	// BreakerFailures 是触发熔断的连续写入失败次数，0 表示不启用熔断。
	BreakerFailures int `koanf:"breaker_failures"`
}

// CycleSettings 控制一次重建周期。
type CycleSettings struct {
	PollInterval  time.Duration `koanf:"poll_interval"`
	Timeout       time.Duration `koanf:"timeout"`
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`
}

// QueueSettings 定义一个队列。
type QueueSettings struct {
	Name    string `koanf:"name"`
	Backend string `koanf:"backend"`
	// Source 是按行读取的条目文件。
	Source string `koanf:"source"`
	// Schedule 是 cron 表达式，为空时只在 --once 模式或启动时运行一次。
	Schedule string `koanf:"schedule"`
	// Capacity 是 memory 后端的缓冲大小。
	Capacity int `koanf:"capacity"`
	// Key 覆盖 redis 后端的列表键，默认 <prefix><name>。
	Key         string `koanf:"key"`
	KeepOnClose bool   `koanf:"keep_on_close"`
}

// LoadSettings 从 cfg 反序列化运行配置，填充缺省值并校验。
func LoadSettings(cfg Config) (*Settings, error) {
	var s Settings
	if err := cfg.Unmarshal("", &s); err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ApplyDefaults 为零值字段填充缺省值。
func (s *Settings) ApplyDefaults() {
	if s.Log.Level == "" {
		s.Log.Level = DefaultLogLevel
	}
	if s.Log.Format == "" {
		s.Log.Format = DefaultLogFormat
	}
	if s.Executor.Workers > 0 && s.Executor.QueueSize == 0 {
		s.Executor.QueueSize = s.Executor.Workers
	}
	if s.Redis.Prefix == "" {
		s.Redis.Prefix = DefaultRedisPrefix
	}
	if s.Redis.PushAttempts == 0 {
		s.Redis.PushAttempts = DefaultPushAttempts
	}
	if s.Cycle.PollInterval == 0 {
		s.Cycle.PollInterval = DefaultPollInterval
	}
	if s.Cycle.Timeout == 0 {
		s.Cycle.Timeout = DefaultCycleTimeout
	}
	if s.Cycle.ShutdownGrace == 0 {
		s.Cycle.ShutdownGrace = DefaultShutdownGrace
	}
	for i := range s.Queues {
		q := &s.Queues[i]
		q.Name = strings.TrimSpace(q.Name)
		q.Backend = strings.ToLower(strings.TrimSpace(q.Backend))
		if q.Backend == "" {
			q.Backend = BackendMemory
		}
		if q.Capacity == 0 {
			q.Capacity = DefaultCapacity
		}
	}
}

// Validate 校验配置，返回所有问题的合并错误，每个都包装 ErrInvalidSettings。
// 队列名在同一份配置中必须唯一。
func (s *Settings) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...)))
	}

	if s.Executor.Workers < 0 {
		invalid("executor.workers must not be negative")
	}
	if s.Executor.QueueSize < 0 {
		invalid("executor.queue_size must not be negative")
	}
	if s.Redis.PushAttempts < 0 {
		invalid("redis.push_attempts must not be negative")
	}
	if s.Redis.RateLimit < 0 || s.Redis.BreakerFailures < 0 {
		invalid("redis.rate_limit and redis.breaker_failures must not be negative")
	}
	if s.Cycle.PollInterval < 0 || s.Cycle.Timeout < 0 || s.Cycle.ShutdownGrace < 0 {
		invalid("cycle durations must not be negative")
	}
	if len(s.Queues) == 0 {
		invalid("at least one queue is required")
	}

	seen := make(map[string]int, len(s.Queues))
	for i, q := range s.Queues {
		if q.Name == "" {
			invalid("queues[%d]: name is required", i)
			continue
		}
		if j, ok := seen[q.Name]; ok {
			invalid("queues[%d]: duplicate queue name %q (also queues[%d])", i, q.Name, j)
		} else {
			seen[q.Name] = i
		}
		switch q.Backend {
		case BackendMemory:
			if q.Capacity < 0 {
				invalid("queue %q: capacity must not be negative", q.Name)
			}
		case BackendRedis:
			if s.Redis.Addr == "" {
				invalid("queue %q: redis backend requires redis.addr", q.Name)
			}
		default:
			invalid("queue %q: unknown backend %q", q.Name, q.Backend)
		}
		if q.Source == "" {
			invalid("queue %q: source is required", q.Name)
		}
	}
	return errors.Join(errs...)
}

// Queue 按名称查找队列配置。
func (s *Settings) Queue(name string) (QueueSettings, bool) {
	for _, q := range s.Queues {
		if q.Name == name {
			return q, true
		}
	}
	return QueueSettings{}, false
}
