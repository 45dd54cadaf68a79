// Package registry keeps at most one live realtime subscription per interest
// and delivers change callbacks through a single serial executor.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sherryycxie/tables/internal/client/realtime"
	"github.com/sherryycxie/tables/internal/client/serial"
	"github.com/sherryycxie/tables/internal/logging"
)

// Stream is a joined channel.
type Stream interface {
	Changes() <-chan realtime.Change
	Done() <-chan struct{}
	Unsubscribe(ctx context.Context) error
}

// Feed opens streams.
type Feed interface {
	Subscribe(ctx context.Context, name string, f realtime.ChangeFilter) (Stream, error)
}

// Handler is invoked once per change, on the executor.
type Handler func(ctx context.Context, ch realtime.Change)

type subscription struct {
	in     Interest
	h      Handler
	stream Stream
	cancel context.CancelFunc
	ctx    context.Context
	done   chan struct{}
}

// lostSub is an interest whose channel ended without being unsubscribed.
type lostSub struct {
	in Interest
	h  Handler
}

type Registry struct {
	feed   Feed
	exec   *serial.Executor
	logger logging.Logger

	mu       sync.Mutex
	subs     map[string]*subscription
	lost     map[string]lostSub
	gen      uint64
	teardown []func(ctx context.Context)
	onEnded  []func(ctx context.Context, in Interest)
}

func New(feed Feed, exec *serial.Executor, logger logging.Logger) *Registry {
	return &Registry{
		feed:   feed,
		exec:   exec,
		logger: logger.With("component", "registry"),
		subs:   map[string]*subscription{},
		lost:   map[string]lostSub{},
	}
}

// OnTeardown registers fn to run on UnsubscribeAll.
func (r *Registry) OnTeardown(fn func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardown = append(r.teardown, fn)
}

// OnEnded registers fn to run when a channel ends on its own, e.g. after the
// connection dropped. The interest is then listed by Lost until Restore,
// Subscribe or Unsubscribe picks it up.
func (r *Registry) OnEnded(fn func(ctx context.Context, in Interest)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEnded = append(r.onEnded, fn)
}

// Subscribe replaces any subscription for the same interest with a new one.
// The old subscription is fully torn down before the new channel opens.
func (r *Registry) Subscribe(ctx context.Context, in Interest, h Handler) error {
	key := in.Key()

	r.mu.Lock()
	old := r.subs[key]
	delete(r.subs, key)
	delete(r.lost, key)
	r.mu.Unlock()
	if old != nil {
		r.stop(ctx, key, old)
	}

	stream, err := r.feed.Subscribe(ctx, key, in.Filter())
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{in: in, h: h, stream: stream, cancel: cancel, ctx: subCtx, done: make(chan struct{})}

	r.mu.Lock()
	if raced := r.subs[key]; raced != nil {
		r.mu.Unlock()
		r.stop(ctx, key, raced)
		r.mu.Lock()
	}
	r.subs[key] = sub
	r.mu.Unlock()

	go r.consume(key, sub)
	r.logger.Info(ctx, "subscribed", "channel", key)
	return nil
}

// Unsubscribe tears down the subscription for in. Absent interests are a no-op.
func (r *Registry) Unsubscribe(ctx context.Context, in Interest) {
	key := in.Key()
	r.mu.Lock()
	sub := r.subs[key]
	delete(r.subs, key)
	delete(r.lost, key)
	r.mu.Unlock()
	if sub != nil {
		r.stop(ctx, key, sub)
	}
}

// UnsubscribeAll tears down every subscription, then runs teardown hooks.
func (r *Registry) UnsubscribeAll(ctx context.Context) {
	r.mu.Lock()
	subs := r.subs
	r.subs = map[string]*subscription{}
	r.lost = map[string]lostSub{}
	r.gen++
	hooks := append([]func(context.Context){}, r.teardown...)
	r.mu.Unlock()

	for key, sub := range subs {
		r.stop(ctx, key, sub)
	}
	for _, fn := range hooks {
		fn(ctx)
	}
}

// Has reports whether in has a live subscription.
func (r *Registry) Has(in Interest) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[in.Key()]
	return ok
}

// Active lists live channel names, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.subs))
	for k := range r.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lost lists channels that ended on their own and were not restored, sorted.
func (r *Registry) Lost() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.lost))
	for k := range r.lost {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Restore resubscribes every lost channel with its original handler and
// returns how many came back. Channels that fail stay lost for the next try.
// An UnsubscribeAll racing with Restore wins: anything restored after it is
// torn down again.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	r.mu.Lock()
	gen := r.gen
	lost := r.lost
	r.lost = map[string]lostSub{}
	r.mu.Unlock()

	keys := make([]string, 0, len(lost))
	for k := range lost {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		restored int
		errs     error
	)
	for _, key := range keys {
		l := lost[key]
		if err := r.Subscribe(ctx, l.in, l.h); err != nil {
			errs = errors.Join(errs, fmt.Errorf("restore %s: %w", key, err))
			r.mu.Lock()
			_, live := r.subs[key]
			if r.gen == gen && !live {
				r.lost[key] = l
			}
			r.mu.Unlock()
			continue
		}

		r.mu.Lock()
		stale := r.gen != gen
		r.mu.Unlock()
		if stale {
			r.Unsubscribe(ctx, l.in)
			return restored, errs
		}
		restored++
	}
	return restored, errs
}

func (r *Registry) stop(ctx context.Context, key string, sub *subscription) {
	sub.cancel()
	<-sub.done
	if err := sub.stream.Unsubscribe(ctx); err != nil {
		r.logger.Warn(ctx, "unsubscribe failed", "channel", key, "err", err)
	}
	r.logger.Info(ctx, "unsubscribed", "channel", key)
}

func (r *Registry) consume(key string, sub *subscription) {
	defer close(sub.done)
	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.stream.Done():
			r.logger.Warn(sub.ctx, "channel ended", "channel", key)
			r.mu.Lock()
			current := r.subs[key] == sub
			if current {
				delete(r.subs, key)
				r.lost[key] = lostSub{in: sub.in, h: sub.h}
			}
			hooks := append([]func(context.Context, Interest){}, r.onEnded...)
			r.mu.Unlock()

			if current {
				hookCtx := context.WithoutCancel(sub.ctx)
				for _, fn := range hooks {
					fn(hookCtx, sub.in)
				}
			}
			sub.cancel()
			return
		case change := <-sub.stream.Changes():
			err := r.exec.Submit(sub.ctx, func() {
				if sub.ctx.Err() != nil {
					return
				}
				sub.h(sub.ctx, change)
			})
			if err != nil {
				return
			}
		}
	}
}
