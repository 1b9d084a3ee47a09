package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPool 固定大小的协程池。
//
// 用于给不可信流量的处理设置并发上限：任务队列满时由
// 调用方决定丢弃，而不是无限堆积协程。
type WorkerPool struct {
	workers int
	tasks   chan func()
	wg      sync.WaitGroup
	log     *zap.Logger
}

// New 创建协程池。
func New(workers, queueSize int, log *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		tasks:   make(chan func(), queueSize),
		log:     log,
	}
}

// Start 启动全部工作协程，ctx 取消后协程退出。
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// TrySubmit 尝试提交任务，队列已满时立即返回 false。
func (p *WorkerPool) TrySubmit(task func()) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop 停止接收新任务并等待在跑的任务完成。
func (p *WorkerPool) Stop() {
	close(p.tasks)
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(task)
		}
	}
}

// run 执行单个任务，panic 不得杀死工作协程。
func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker task panicked", zap.Any("panic", r))
		}
	}()
	task()
}
