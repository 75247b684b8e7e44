package xqueue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"runtime/pprof"

	"github.com/omeyang/xqueue/pkg/observability/xlog"
)

// ProducerLabel 是 StartProducer 启动的 goroutine 上的 pprof 标签名，
// 标签值为 Manager.ProducerName()。
const ProducerLabel = "xqueue.producer"

// producerTask 包装一次 loader 运行。loader 的 panic 只记录日志，不向外传播。
func (m *Manager) producerTask(loader Loader) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error(ctx, "queue loader panicked",
					slog.String("producer", m.producerName),
					slog.String("panic", fmt.Sprint(r)),
					slog.String(xlog.KeyStack, string(debug.Stack())),
				)
			}
		}()
		m.logger.Debug(ctx, "queue loader running", slog.String("producer", m.producerName))
		loader.Run(ctx)
		m.logger.Debug(ctx, "queue loader returned", slog.String("producer", m.producerName))
	}
}

// goProducer 在独立的、带名称标签的 goroutine 上执行 task，不保留句柄。
func (m *Manager) goProducer(ctx context.Context, task func(context.Context)) {
	labels := pprof.Labels(ProducerLabel, m.producerName)
	go pprof.Do(ctx, labels, task)
}
