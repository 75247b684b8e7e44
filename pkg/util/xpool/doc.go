// Package xpool 提供泛型 worker pool，以及托管队列 producer 的执行器。
//
// Pool 启动固定数量的 worker 消费有界任务队列：
//   - Submit 不阻塞，队列满返回 ErrQueueFull，关闭后返回 ErrPoolStopped
//   - Close 处理完已入队任务后返回；Shutdown(ctx) 可限时等待，
//     超时后残留 worker 继续运行，Done() 在全部退出后关闭
//   - 任务 panic 被恢复并记录堆栈，默认只记录任务类型，WithLogTaskValue 记录完整值
//
// NewExecutor 返回的 Pool[func()] 满足 xqueue.Executor，
// 多个队列的 loader 可共享同一组 worker：
//
//	exec, _ := xpool.NewExecutor(4, 16, xpool.WithName("producers"))
//	defer exec.Close()
//	_ = manager.StartProducerOn(ctx, exec)
//
// loader 通常运行到数据加载完毕才返回，workers 数量即同时加载的队列上限，
// 超出的 producer 在队列中等待，队列也满时 StartProducerOn 返回 ErrSubmitFailed。
//
// Close/Shutdown 不可在任务内部调用，否则会死锁。
package xpool
