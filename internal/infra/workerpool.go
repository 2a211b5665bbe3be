// Package infra implements infrastructure concerns (stores, settings,
// event transport, presentation).
package infra

import (
	"sync"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// DefaultWorkerCount is the pool size for durable-store writes.
const DefaultWorkerCount = 4

// WorkerPool is a small fixed-size pool that runs fire-and-forget tasks
// so the event-processing path never blocks on durable storage.
type WorkerPool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool starts workers goroutines draining the task queue.
func NewWorkerPool(workers int, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	p := &WorkerPool{
		tasks:  make(chan func(), 64),
		logger: logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run isolates worker goroutines from panicking tasks.
func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// Submit enqueues a task. After Close the task runs synchronously on
// the caller so shutdown never drops writes.
func (p *WorkerPool) Submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.run(task)
		return
	}
	p.tasks <- task
	p.mu.Unlock()
}

// Close drains queued tasks and stops the workers. Idempotent.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

var _ domain.TaskRunner = (*WorkerPool)(nil)
