// Package xcycle 驱动队列的重建周期。
//
// 一个周期：生成进程 ID（uuid）→ Initialize → 启动 producer →
// 轮询 Close 直到 Manager 回到未初始化状态。
// ctx 结束时通过 Stopper 强制停止 loader，并在宽限期内继续尝试 Close。
//
// Scheduler 基于 robfig/cron/v3 按 cron 表达式触发周期，
// 同一个队列上一次周期未结束时跳过本次触发。
package xcycle
