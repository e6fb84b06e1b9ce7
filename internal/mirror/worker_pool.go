package mirror

import (
	"context"
	"log/slog"
	"sync"
)

// Task represents a unit of work
type Task func(ctx context.Context) error

// WorkerPool runs publish tasks off the device loops. Submission never
// blocks: when the queue is full the task is dropped.
type WorkerPool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.RWMutex
	logger      *slog.Logger
}

func NewWorkerPool(workerCount, queueSize int, logger *slog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// TrySubmit queues task and reports whether it was accepted.
func (wp *WorkerPool) TrySubmit(task Task) bool {
	wp.closeMux.RLock()
	defer wp.closeMux.RUnlock()
	if wp.closed {
		return false
	}
	select {
	case wp.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Wait closes the queue and blocks until queued tasks complete.
func (wp *WorkerPool) Wait() {
	wp.closeMux.Lock()
	if !wp.closed {
		close(wp.taskQueue)
		wp.closed = true
	}
	wp.closeMux.Unlock()

	wp.wg.Wait()
}

// Shutdown cancels in-flight tasks and waits for the workers.
func (wp *WorkerPool) Shutdown() {
	wp.cancel()
	wp.Wait()
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if err := task(wp.ctx); err != nil {
				wp.logger.Warn("mirror_task_failed",
					"worker", id,
					"error", err,
				)
			}
		case <-wp.ctx.Done():
			return
		}
	}
}
