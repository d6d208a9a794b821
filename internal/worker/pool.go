// Package worker runs tasks over a fixed number of goroutines with an optional
// global rate limit.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Task func(ctx context.Context) error

type Result struct {
	Err error
}

type Pool struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	rate    <-chan time.Time
	ticker  *time.Ticker
}

func NewPool(workers, buffer int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Pool{
		workers: workers,
		tasks:   make(chan Task, buffer),
	}
}

// SetRateLimit caps task starts across all workers at rps per second.
// Zero or negative removes the limit.
func (p *Pool) SetRateLimit(rps float64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.rate = nil
	}
	if rps <= 0 {
		return
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	p.ticker = time.NewTicker(interval)
	p.rate = p.ticker.C
}

// Submit queues t. It blocks while the queue is full and gives up when ctx
// is done.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	if p == nil || t == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- t:
		return nil
	}
}

// Close stops accepting tasks. Queued tasks still run under the rate limit;
// the ticker is released once the workers have drained the queue.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	close(p.tasks)
}

func (p *Pool) stopTicker() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.rate = nil
	}
}

// Run starts the workers. The returned channel yields one Result per task and
// is closed once Close has been called and the queue is drained, or ctx ends.
func (p *Pool) Run(ctx context.Context) <-chan Result {
	if p == nil {
		out := make(chan Result)
		close(out)
		return out
	}
	out := make(chan Result, p.workers*64)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					if t == nil {
						continue
					}
					p.mu.RLock()
					rate := p.rate
					p.mu.RUnlock()
					if rate != nil {
						select {
						case <-ctx.Done():
							return
						case <-rate:
						}
					}
					err := t(ctx)
					select {
					case <-ctx.Done():
						return
					case out <- Result{Err: err}:
					}
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		p.stopTicker()
		close(out)
	}()

	return out
}

// Do runs every task on a fresh pool and joins their errors.
func Do(ctx context.Context, workers int, rps float64, tasks []Task) error {
	p := NewPool(workers, len(tasks))
	p.SetRateLimit(rps)
	results := p.Run(ctx)

	var errs []error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			if r.Err != nil {
				errs = append(errs, r.Err)
			}
		}
	}()

	var submitErr error
	for _, t := range tasks {
		if err := p.Submit(ctx, t); err != nil {
			submitErr = err
			break
		}
	}
	p.Close()
	<-done

	if submitErr != nil {
		errs = append(errs, submitErr)
	} else if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
