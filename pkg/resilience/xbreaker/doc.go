// Package xbreaker 基于 sony/gobreaker/v2 提供熔断器。
//
// 连续失败达到阈值后熔断器打开，Open 期间操作不执行直接返回 *BreakerError，
// 超时后进入 HalfOpen 放行少量探测请求。
// *BreakerError 被标记为不可重试，与 xretry 组合时重试会立即停止：
//
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    return breaker.Do(ctx, push)
//	})
//
// context 取消或超时不计为失败。
package xbreaker
