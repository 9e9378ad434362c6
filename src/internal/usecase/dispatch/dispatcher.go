// Package dispatch decouples submitting work from running it. Sync runs
// tasks on the caller's goroutine; Pool runs them on a fixed set of workers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull        = errors.New("dispatch queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

type Task func(ctx context.Context)

type Dispatcher interface {
	Submit(ctx context.Context, task Task) error
	Close(ctx context.Context) error
}

// Sync runs every task before Submit returns.
type Sync struct{}

func NewSync() Sync {
	return Sync{}
}

func (Sync) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	run(ctx, task)
	return nil
}

func (Sync) Close(context.Context) error {
	return nil
}

// Pool is a bounded work queue drained by a fixed number of workers.
type Pool struct {
	queue  chan Task
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)

	p := &Pool{
		queue:  make(chan Task, queueSize),
		group:  group,
		ctx:    groupCtx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for task := range p.queue {
				if p.ctx.Err() != nil {
					continue
				}
				run(p.ctx, task)
			}
			return nil
		})
	}

	logger.Info("dispatch pool started", logger.Fields{
		"workers":   workers,
		"queueSize": queueSize,
	})

	return p
}

// Submit enqueues task without waiting for it to run. The task receives the
// pool's context, not ctx, so it outlives the submitting request.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrDispatcherClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submit task: %w", err)
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks, lets workers drain the queue and waits for
// them. If ctx ends first, the tasks' context is cancelled, queued tasks are
// dropped and Close still waits for running tasks to return.
func (p *Pool) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})

	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()

	select {
	case err := <-done:
		p.cancel()
		return err
	case <-ctx.Done():
		p.cancel()
		logger.Warn("dispatch pool close deadline reached, waiting for cancelled tasks", nil)
		<-done
		return fmt.Errorf("close dispatch pool: %w", ctx.Err())
	}
}

func run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch task panicked", fmt.Errorf("panic: %v", r), logger.Fields{
				"stack": string(debug.Stack()),
			})
		}
	}()

	task(ctx)
}
