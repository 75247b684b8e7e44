// Package xredisq 是基于 Redis 列表的队列，由 xqueue.Manager 管理生命周期。
//
// 条目以 RPUSH 批量写入 <prefix><队列名>（或 WithKey 指定的键），
// 消费者通过 Pop（BLPOP）取出。写入失败按 xretry 策略重试。
//
// 生命周期：
//   - OnInitialize：PING 并清除上一轮遗留的条目
//   - OnClose：删除列表，WithKeepOnClose 时保留供消费者继续消费
package xredisq
