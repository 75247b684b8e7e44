// Package observability 汇集队列运行时的日志与观测组件。
//
// 子包：
//   - xlog: 以 context 为首参的结构化日志，基于 log/slog，支持 lumberjack 文件轮转
//   - xmetrics: 生命周期操作的 span 与指标，提供 Noop 与 OpenTelemetry 实现
package observability
