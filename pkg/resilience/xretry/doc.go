// Package xretry 提供有界重试，基于 avast/retry-go/v5。
//
// Retryer 组合尝试次数和退避策略：
//
//	r := xretry.New(xretry.WithAttempts(3), xretry.WithBackoff(xretry.NewExponentialBackoff()))
//	err := r.Do(ctx, func(ctx context.Context) error {
//	    return rdb.RPush(ctx, key, v).Err()
//	})
//
// fn 返回 Permanent(err) 包装的错误时立即停止。ctx 取消后不再重试，
// 返回最后一次错误。
package xretry
