// Package xrun 基于 errgroup + context 管理 xqueuectl 常驻进程中的服务。
//
// 常驻进程同时运行若干服务：周期调度器、配置热加载、单次重建任务。
// 任一服务返回错误或收到终止信号时，共享的 context 被取消，
// 所有服务应监听 ctx.Done() 并退出。
//
// 使用方式：
//
//	err := xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithName("xqueuectl")},
//	    schedulerService,
//	    watcherService,
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
//
// 信号监听默认覆盖 SIGINT 和 SIGTERM，可通过 WithSignals 调整，
// 或通过 WithoutSignalHandler 关闭。
package xrun
