// Package notify reconciles durable per-user notifications. Envelopes arrive
// by realtime push and by a periodic poll; each is dispatched and then marked
// processed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/realtime"
	"github.com/sherryycxie/tables/internal/client/serial"
	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

// Store is the remote notification table.
type Store interface {
	ListUnprocessed(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	Insert(ctx context.Context, n models.NewNotification) error
}

// Guard runs remote calls with the session token.
type Guard interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

type Queue struct {
	store    Store
	target   Target
	guard    Guard
	logger   logging.Logger
	interval time.Duration
	exec     *serial.Executor
	onTick   func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Queue)

// WithExecutor runs polled envelopes on exec, the same sequencing context
// realtime callbacks use.
func WithExecutor(exec *serial.Executor) Option {
	return func(q *Queue) { q.exec = exec }
}

// WithTick runs fn on the poll loop after every poll, including the first.
func WithTick(fn func(ctx context.Context)) Option {
	return func(q *Queue) { q.onTick = fn }
}

func New(store Store, target Target, guard Guard, logger logging.Logger, interval time.Duration, opts ...Option) *Queue {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	q := &Queue{
		store:    store,
		target:   target,
		guard:    guard,
		logger:   logger.With("component", "notify"),
		interval: interval,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// HandleChange processes a pushed row. Only inserts carry new envelopes.
func (q *Queue) HandleChange(ctx context.Context, ch realtime.Change) {
	if ch.Type != realtime.EventInsert {
		return
	}
	var n models.Notification
	if err := ch.Decode(&n); err != nil {
		q.logger.Warn(ctx, "bad notification record", "err", err)
		return
	}
	if n.Processed {
		return
	}
	if err := q.Process(ctx, n); err != nil {
		q.logger.Warn(ctx, "notification handling failed", "id", n.ID, "event", n.EventType, "err", err)
	}
}

// Process dispatches n, then marks it processed. Marking is attempted even
// when dispatch fails so a poisoned envelope does not replay forever; the
// dispatch error is returned.
func (q *Queue) Process(ctx context.Context, n models.Notification) error {
	dispatchErr := Dispatch(ctx, q.target, n.EventType, n.Payload)
	if dispatchErr != nil {
		q.logger.Debug(ctx, "dispatch failed", "id", n.ID, "err", dispatchErr)
	}

	err := q.guard.Do(ctx, func(ctx context.Context) error {
		return q.store.MarkProcessed(ctx, n.ID)
	})
	if err != nil {
		q.logger.Debug(ctx, "mark processed failed", "id", n.ID, "err", err)
	}
	return dispatchErr
}

// PollOnce fetches unprocessed envelopes oldest first and processes each.
// It returns how many were processed.
func (q *Queue) PollOnce(ctx context.Context, userID uuid.UUID) (int, error) {
	var pending []models.Notification
	err := q.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		pending, err = q.store.ListUnprocessed(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	for _, n := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := q.processSerial(ctx, n); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

// processSerial hands n to the executor and waits for it. Waiting also ends
// when ctx is cancelled, so a sign-out running on the executor can stop the
// loop without deadlocking.
func (q *Queue) processSerial(ctx context.Context, n models.Notification) error {
	if q.exec == nil {
		_ = q.Process(ctx, n)
		return nil
	}
	done := make(chan struct{})
	err := q.exec.Submit(ctx, func() {
		defer close(done)
		if ctx.Err() != nil {
			return
		}
		_ = q.Process(ctx, n)
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loopKey struct{}

// Start launches the poll loop for userID, replacing any running loop.
func (q *Queue) Start(ctx context.Context, userID uuid.UUID) {
	q.Stop(ctx)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx = context.WithValue(loopCtx, loopKey{}, q)
	done := make(chan struct{})

	q.mu.Lock()
	q.cancel = cancel
	q.done = done
	q.mu.Unlock()

	go func() {
		defer close(done)
		q.loop(loopCtx, userID)

		q.mu.Lock()
		if q.done == done {
			q.cancel, q.done = nil, nil
			cancel()
		}
		q.mu.Unlock()
	}()
}

// Stop ends the poll loop and waits for it. Safe to call when not running,
// and from inside the loop itself (e.g. a sign-out triggered by a poll), in
// which case it only cancels.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	cancel, done := q.cancel, q.done
	q.cancel, q.done = nil, nil
	q.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if ctx.Value(loopKey{}) == q {
		return
	}
	<-done
}

// Running reports whether the poll loop is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel != nil
}

// loop polls once right away, then on every tick, until ctx ends or the
// session is gone.
func (q *Queue) loop(ctx context.Context, userID uuid.UUID) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		if !q.poll(ctx, userID) {
			return
		}
		if q.onTick != nil && ctx.Err() == nil {
			q.onTick(ctx)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// poll runs one PollOnce and reports whether the loop should continue.
func (q *Queue) poll(ctx context.Context, userID uuid.UUID) bool {
	n, err := q.PollOnce(ctx, userID)
	switch {
	case err == nil:
		if n > 0 {
			q.logger.Debug(ctx, "processed notifications", "count", n)
		}
	case errors.Is(err, common.ErrNotAuthenticated):
		q.logger.Info(ctx, "session gone, stopping notification poll")
		return false
	default:
		q.logger.Debug(ctx, "notification poll failed", "err", err)
	}
	return true
}

// Send addresses an envelope to another user.
func (q *Queue) Send(ctx context.Context, userID uuid.UUID, eventType string, payload models.Payload) error {
	n := models.NewNotification{UserID: userID, EventType: eventType, Payload: payload}
	if err := models.Validate(n); err != nil {
		return err
	}
	err := q.guard.Do(ctx, func(ctx context.Context) error {
		return q.store.Insert(ctx, n)
	})
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", eventType, userID, err)
	}
	return nil
}
