package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

type timer interface {
	Stop() bool
}

type entry struct {
	reminder Reminder
	timer    timer
}

// Scheduler keeps pending reminders in memory and delivers each on Fired when
// its time comes. Scheduling an id that is already pending replaces it.
type Scheduler struct {
	logger    logging.Logger
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer

	mu      sync.Mutex
	pending map[string]*entry
	fired   chan Reminder
	closed  bool
}

type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithBuffer sets the Fired channel capacity.
func WithBuffer(n int) Option {
	return func(s *Scheduler) { s.fired = make(chan Reminder, n) }
}

func NewScheduler(logger logging.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:  logger.With("component", "reminders"),
		now:     time.Now,
		pending: map[string]*entry{},
		fired:   make(chan Reminder, 16),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fired delivers reminders as they come due. Reminders are dropped, with a
// warning, when nobody drains the channel.
func (s *Scheduler) Fired() <-chan Reminder {
	return s.fired
}

// Schedule registers r, replacing any pending reminder with the same id.
// Times in the past are rejected.
func (s *Scheduler) Schedule(ctx context.Context, r Reminder) error {
	if r.ID == "" {
		return fmt.Errorf("%w: reminder id is required", common.ErrValidation)
	}
	delay := r.At.Sub(s.now())
	if delay <= 0 {
		return fmt.Errorf("%w: reminder date must be in the future", common.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("scheduler closed")
	}
	if old, ok := s.pending[r.ID]; ok {
		old.timer.Stop()
	}

	e := &entry{reminder: r}
	e.timer = s.afterFunc(delay, func() { s.fire(ctx, e) })
	s.pending[r.ID] = e
	s.logger.Debug(ctx, "reminder scheduled", "id", r.ID, "at", r.At)
	return nil
}

func (s *Scheduler) fire(ctx context.Context, e *entry) {
	s.mu.Lock()
	if s.pending[e.reminder.ID] != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, e.reminder.ID)
	s.mu.Unlock()

	select {
	case s.fired <- e.reminder:
	default:
		s.logger.Warn(ctx, "reminder dropped, nobody listening", "id", e.reminder.ID)
	}
}

// Cancel removes a pending reminder. Unknown ids are ignored.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[id]; ok {
		e.timer.Stop()
		delete(s.pending, id)
	}
}

// CancelTable cancels the reminder of a table.
func (s *Scheduler) CancelTable(tableID uuid.UUID) {
	s.Cancel(ReminderID(tableID))
}

func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
}

// Pending lists scheduled reminders ordered by fire time.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

func (s *Scheduler) HasPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// Close cancels everything. Later Schedule calls fail.
func (s *Scheduler) Close() {
	s.CancelAll()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
