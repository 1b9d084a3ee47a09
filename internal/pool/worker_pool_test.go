package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool(t *testing.T) {
	t.Run("提交的任务全部执行", func(t *testing.T) {
		p := New(4, 100, zap.NewNop())
		p.Start(context.Background())

		var counter int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			ok := p.TrySubmit(func() {
				atomic.AddInt64(&counter, 1)
				wg.Done()
			})
			assert.True(t, ok)
		}
		wg.Wait()
		p.Stop()

		assert.Equal(t, int64(50), atomic.LoadInt64(&counter))
	})

	t.Run("队列满时拒绝提交", func(t *testing.T) {
		p := New(1, 1, zap.NewNop())
		// 不启动工作协程，队列无人消费

		assert.True(t, p.TrySubmit(func() {}))
		assert.False(t, p.TrySubmit(func() {}))
	})

	t.Run("任务 panic 不杀死工作协程", func(t *testing.T) {
		p := New(1, 10, zap.NewNop())
		p.Start(context.Background())

		done := make(chan struct{})
		assert.True(t, p.TrySubmit(func() { panic("boom") }))
		assert.True(t, p.TrySubmit(func() { close(done) }))

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not survive the panic")
		}
		p.Stop()
	})

	t.Run("非法工作协程数退回为一", func(t *testing.T) {
		p := New(0, 1, zap.NewNop())
		assert.Equal(t, 1, p.workers)
	})
}
