// Package util 汇集与队列领域无关的通用组件。
//
// 子包：
//   - xnameset: 进程内唯一名称集合，按 xxhash 分片加锁
//   - xpool: 泛型 worker pool，NewExecutor 供队列 producer 共享
package util
