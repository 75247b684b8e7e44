package xpool

import "testing"

func FuzzNewExecutor(f *testing.F) {
	f.Add(1, 1)
	f.Add(0, 1)
	f.Add(-3, 8)
	f.Add(4, 0)
	f.Add(maxWorkers+1, 1)
	f.Add(1, maxQueueSize+1)

	f.Fuzz(func(t *testing.T, workers, queueSize int) {
		// 限制规模，避免 fuzz 创建过多 goroutine。
		if workers > 64 || queueSize > 1<<12 {
			if workers <= maxWorkers && queueSize <= maxQueueSize {
				return
			}
		}
		exec, err := NewExecutor(workers, queueSize)
		valid := workers >= 1 && workers <= maxWorkers && queueSize >= 1 && queueSize <= maxQueueSize
		if !valid {
			if err == nil {
				_ = exec.Close()
				t.Fatalf("NewExecutor(%d, %d) accepted invalid arguments", workers, queueSize)
			}
			return
		}
		if err != nil {
			t.Fatalf("NewExecutor(%d, %d): %v", workers, queueSize, err)
		}
		done := make(chan struct{})
		if err := exec.Submit(func() { close(done) }); err != nil {
			t.Fatalf("submit: %v", err)
		}
		<-done
		if err := exec.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
}
