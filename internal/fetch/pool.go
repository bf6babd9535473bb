// Package fetch runs background metadata, image and subtitle downloads on a
// bounded worker pool so they never block the control surface.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"streamadesk/internal/metrics"
)

var ErrPoolClosed = errors.New("fetch pool closed")
var ErrQueueFull = errors.New("fetch queue full")

// Task is one unit of background work. The context is cancelled when the
// pool shuts down.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool with a bounded queue. Submitted tasks
// already queued at shutdown are drained before Shutdown returns.
type Pool struct {
	logger *slog.Logger
	tasks  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logger,
		tasks:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task without blocking. A full queue rejects the task;
// callers treat that as a transient failure.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		metrics.FetchQueueDepth.Set(float64(len(p.tasks)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks, drains the queue and waits for workers.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		metrics.FetchQueueDepth.Set(float64(len(p.tasks)))
		p.run(task)
	}
}

// run executes one task with panic containment: a panicking fetch is logged
// and the worker keeps serving.
func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("fetch task panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	task(p.ctx)
}
