// Package xmetrics 记录队列生命周期操作的 span 与指标。
//
// xqueue.Manager 只依赖 Observer 接口。NoopObserver 为缺省实现，
// NewOTelObserver 基于 OpenTelemetry：
//
//	obs, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xqueuectl"))
//	m, err := xqueue.New(hooks, xqueue.WithObserver(obs))
//
// 每次 initialize、close、start_producer 产生一个名为 "xqueue.<operation>" 的 span，
// 并记录指标：
//
//   - xqueue.operation.total：计数
//   - xqueue.operation.duration：耗时，单位秒
//
// 指标维度为 component、operation、queue、status。status 取值为
// ok、error、refused、noop，refused 的 span 不标记为错误。
package xmetrics
