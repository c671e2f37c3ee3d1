// Package worker provides goroutine pool management.
//
// Fan-out work (one remote listing per department, for example) goes
// through a Pool instead of naked goroutines so the number of concurrent
// calls against the remote store stays bounded.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// DefaultPoolSize is used when the configured size is not positive.
const DefaultPoolSize = 8

// NewPool creates a named pool with at most size concurrent workers.
func NewPool(name string, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	panicHandler := func(p interface{}) {
		logger.Error("Worker panic recovered",
			zap.String("pool", name),
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, name: name}, nil
}

// Submit submits a context-aware task.
// If ctx is already cancelled, returns ctx.Err() without submitting.
// A queued task whose ctx is cancelled before it starts is skipped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	return p.submit(ctx, task, nil)
}

// submit queues task. done, when set, runs once the task has finished or
// was skipped, but never when submission itself fails.
func (p *Pool) submit(ctx context.Context, task Task, done func()) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := p.pool.Submit(func() {
		if done != nil {
			defer done()
		}
		select {
		case <-ctx.Done():
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		default:
		}
		task(ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Run submits every task and waits for all of them to finish.
// Tasks skipped because ctx was cancelled still count as finished; the
// returned error is ctx.Err() in that case.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		if err := p.submit(ctx, task, wg.Done); err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return ctx.Err()
}

// Release shuts the pool down, waiting at most 30s for running tasks.
func (p *Pool) Release() {
	const shutdownTimeout = 30 * time.Second
	if err := p.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("Pool shutdown timeout", zap.String("pool", p.name), zap.Error(err))
	}
}

// Metrics returns pool metrics for observability.
func (p *Pool) Metrics() map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}
