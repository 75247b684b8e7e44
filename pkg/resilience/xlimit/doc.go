// Package xlimit 基于 go-redis/redis_rate（GCRA 算法）提供分布式限流。
//
// 多个进程共享同一个 Redis 时，同一键上的配额在进程间共享，
// 用于约束多个 loader 同时写入同一 Redis 时的总速率。
//
//	limiter, _ := xlimit.NewRedis(client, xlimit.PerSecond(500))
//	if err := limiter.Wait(ctx, "orders", len(batch)); err != nil {
//	    return err
//	}
package xlimit
