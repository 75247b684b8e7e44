// Package xnameset 提供进程内的名称占用集合。
//
// 用于保证同一进程内某个名称（如队列名）在同一时刻只被一个持有者占用。
// xqueue 使用它实现队列名的全局唯一性约束。
//
// # 特性
//
//   - Reserve/Release：占用与释放，Release 幂等
//   - 分片 map：默认 32 分片，xxhash 选片，减少锁争用
//   - 自身同步：不依赖调用方的任何锁，不同调用方之间的互斥由 Set 自己保证
//   - Default()：惰性创建的进程级实例
//
// # 作用范围
//
// 仅限当前进程。跨进程唯一性不在本包范围内。
package xnameset
