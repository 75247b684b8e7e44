// Package xmemq 是基于 channel 的内存队列，由 xqueue.Manager 管理生命周期。
//
// 每次初始化创建一个新的有界 channel（一个"代"），loader 把 Source 产出的条目
// 写入当前代，关闭时 channel 被关闭，消费者 range Entries() 自然结束。
//
//	q, m, err := xmemq.NewManager("orders", xsource.Lines("/data/orders.txt"))
//	_ = m.Initialize(ctx, processID)
//	_ = m.StartProducer(ctx)
//	for order := range q.Entries() {
//	    ...
//	}
//
// loader 阻塞在满的 channel 上时仍处于活跃状态，此时 Close 会被拒绝，
// 需要消费者继续消费或调用 Queue.FailFast。
package xmemq
