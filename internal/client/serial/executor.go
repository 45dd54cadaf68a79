// Package serial runs callbacks one at a time on a single goroutine, so
// realtime and polling callbacks never mutate client state concurrently.
package serial

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("executor closed")

type Executor struct {
	jobs chan func()
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// New starts an executor with a queue of size buffer.
func New(buffer int) *Executor {
	e := &Executor{
		jobs: make(chan func(), buffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.jobs:
			fn()
		case <-e.quit:
			for {
				select {
				case fn := <-e.jobs:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Submit queues fn. It blocks while the queue is full, until ctx is done or
// the executor is closed.
func (e *Executor) Submit(ctx context.Context, fn func()) error {
	select {
	case <-e.quit:
		return ErrClosed
	default:
	}
	select {
	case e.jobs <- fn:
		return nil
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until every job queued before the call has run.
func (e *Executor) Flush(ctx context.Context) error {
	ran := make(chan struct{})
	if err := e.Submit(ctx, func() { close(ran) }); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, runs what is queued and waits for the loop.
func (e *Executor) Close() {
	e.once.Do(func() { close(e.quit) })
	<-e.done
}
