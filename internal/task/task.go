package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("pool is closed")

type Task interface {
	Start(ctx context.Context) error
}

// Func adapts an ordinary function to Task.
type Func func(ctx context.Context) error

func (f Func) Start(ctx context.Context) error { return f(ctx) }

type Worker struct {
	taskC chan Task
	// Maximum duration of one task.
	timeout time.Duration
}

func (w *Worker) Run() {
	for task := range w.taskC {
		if err := w.start(task); err != nil {
			log.Error().Err(err).Msg("failed to start task")
		}
	}
}

func (w *Worker) start(task Task) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v\n%s", rec, debug.Stack())
		}
	}()
	return task.Start(ctx)
}

// Pool is a fixed number of workers reading tasks from the shared channel.
type Pool struct {
	taskC chan Task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func RunWorkers(count int, timeout time.Duration) *Pool {
	pool := &Pool{taskC: make(chan Task)}
	pool.wg.Add(count)
	for i := 0; i < count; i++ {
		go func() {
			defer pool.wg.Done()
			(&Worker{taskC: pool.taskC, timeout: timeout}).Run()
		}()
	}
	return pool
}

// Submit blocks until some worker takes the task or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.taskC <- task:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to submit task: %w", ctx.Err())
	}
}

// Close stops accepting tasks and waits for the running ones.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.taskC)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
