// Package xqueue 管理具名、单例、带后台生产任务的队列资源的生命周期。
//
// # 概述
//
// 每个队列由唯一的队列名标识。Manager 保证：
//   - 同一进程内，同名队列同一时刻最多只有一个 Manager 处于已初始化状态
//   - 每次初始化后，后台生产任务（producer）最多启动一次
//   - producer 的 loader 仍在运行时拒绝关闭
//
// 具体队列通过实现 [Hooks] 接入：提供队列名、[Loader]，以及初始化/关闭钩子。
//
//	m, err := xqueue.New(myQueue, xqueue.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := m.Initialize(ctx, processID); err != nil {
//	    return err // 可能是 ErrDuplicateQueue、ErrMisconfigured 或钩子错误
//	}
//	if err := m.StartProducer(ctx); err != nil {
//	    return err
//	}
//	// ... loader 完成后
//	err = m.Close(ctx, processID)
//
// # 状态机
//
//	NotInitialized --Initialize--> Initialized --StartProducer--> ProducerRunning
//	Initialized/ProducerRunning --Close（loader 不活跃）--> NotInitialized
//
// Close 在 loader 活跃时只记录告警并保持状态不变，调用方需先通过带外方式
// （如 [Activity.FailFast]）让 loader 停止，再重试 Close。Close 没有内置超时。
//
// # 并发
//
// Initialize、Close、StartProducer、StartProducerOn、IsInitialized 在同一 Manager 上
// 互斥执行；钩子在锁内同步调用，慢钩子会阻塞该 Manager 的其他生命周期调用。
// 队列名唯一性由 [xnameset.Set] 自身的锁保证，与单个 Manager 的锁无关。
//
// # 后台执行
//
// StartProducer 在独立 goroutine 上运行 loader（pprof 标签 [ProducerLabel] 的值为
// "<Hooks 类型>-<队列名>"）；StartProducerOn 将其提交给 [Executor]。
// 提交后 Manager 不保留任何句柄，loader 的错误和 panic 只会记录日志；
// loader 的运行状态只能通过 [Loader.IsActive] 观察。
//
// # 作用范围
//
// 唯一性仅限当前进程；本包不提供 loader 的重试或取消。
//
// [xnameset.Set]: github.com/omeyang/xqueue/pkg/util/xnameset.Set
package xqueue
