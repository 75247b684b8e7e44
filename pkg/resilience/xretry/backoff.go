package xretry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff 计算第 attempt 次失败（从 1 开始）后的等待时间。
type Backoff interface {
	NextDelay(attempt int) time.Duration
}

// FixedBackoff 每次等待相同时间。
type FixedBackoff time.Duration

// NextDelay 返回固定延迟。
func (b FixedBackoff) NextDelay(int) time.Duration {
	return time.Duration(b)
}

// ExponentialBackoff 指数退避，带可选抖动，不超过 MaxDelay。
type ExponentialBackoff struct {
	Initial    time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter 取 [0, 1]，延迟在 ±Jitter 比例内随机浮动。
	Jitter float64
}

// NewExponentialBackoff 返回 50ms 起、翻倍、上限 2s、抖动 0.2 的退避。
func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Initial:    50 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
	}
}

// NextDelay 返回第 attempt 次失败后的延迟。
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if j := min(max(b.Jitter, 0), 1); j > 0 {
		delay *= 1 + (rand.Float64()*2-1)*j
	}
	// math.Pow 溢出后可能得到 +Inf/NaN。
	if math.IsNaN(delay) || delay < 0 || delay >= float64(b.MaxDelay) {
		return b.MaxDelay
	}
	return time.Duration(delay)
}
