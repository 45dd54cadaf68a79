// Package coordinator is the client's single entry point: it owns the
// signed-in identity and the in-memory cache, runs every remote operation
// through the session guard, and keeps the cache current from realtime
// pushes, the notification queue, and local archive overrides.
//
// Lifecycle: New → SignIn / SignUp / RestoreSession → operate → SignOut /
// Close.
package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/archive"
	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/notify"
	"github.com/sherryycxie/tables/internal/client/registry"
	"github.com/sherryycxie/tables/internal/client/reminders"
	"github.com/sherryycxie/tables/internal/client/repositories/remote"
	"github.com/sherryycxie/tables/internal/client/serial"
	"github.com/sherryycxie/tables/internal/client/session"
	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

// AuthProvider is the account backend. *auth.Client implements it.
type AuthProvider interface {
	session.TokenSource
	SignUp(ctx context.Context, email, password string, data map[string]any) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context) error
	Forget(ctx context.Context) error
}

// TokenPusher forwards refreshed access tokens to the realtime connection.
type TokenPusher interface {
	SetAuth(ctx context.Context, token string) error
}

// ReminderScheduler is the local notification scheduler.
type ReminderScheduler interface {
	Schedule(ctx context.Context, r reminders.Reminder) error
	CancelTable(tableID uuid.UUID)
	CancelAll()
}

// Deps are the collaborators of a Coordinator. Feed and Tokens may be nil,
// in which case realtime is disabled and only polling keeps the cache fresh.
type Deps struct {
	Auth         AuthProvider
	Repos        *remote.Repositories
	Feed         registry.Feed
	Tokens       TokenPusher
	Local        archive.Store
	Reminders    ReminderScheduler
	Logger       logging.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

type Coordinator struct {
	auth      AuthProvider
	repos     *remote.Repositories
	tokens    TokenPusher
	reminders ReminderScheduler
	logger    logging.Logger
	now       func() time.Time

	guard     *session.Guard
	exec      *serial.Executor
	registry  *registry.Registry
	queue     *notify.Queue
	overrides *archive.Overrides

	mu          sync.RWMutex
	user        *auth.User
	profile     *models.Profile
	onboarded   bool
	tables      []models.Table
	reflections []models.Reflection
	cards       map[uuid.UUID][]models.Card
	comments    map[uuid.UUID][]models.Comment
}

func New(d Deps) *Coordinator {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	c := &Coordinator{
		auth:      d.Auth,
		repos:     d.Repos,
		tokens:    d.Tokens,
		reminders: d.Reminders,
		logger:    logger.With("component", "coordinator"),
		now:       now,
		exec:      serial.New(64),
		overrides: archive.NewOverrides(d.Local),
		cards:     map[uuid.UUID][]models.Card{},
		comments:  map[uuid.UUID][]models.Comment{},
	}

	c.guard = session.New(d.Auth, logger,
		session.OnSignedOut(c.handleSignedOut),
		session.OnRefreshed(c.pushToken),
	)
	c.queue = notify.New(d.Repos.Notifications, c, c.guard, logger, d.PollInterval,
		notify.WithExecutor(c.exec),
		notify.WithTick(c.reconnectOnTick),
	)
	if d.Feed != nil {
		c.registry = registry.New(d.Feed, c.exec, logger)
		c.registry.OnTeardown(c.queue.Stop)
		c.registry.OnEnded(c.channelEnded)
	}
	return c
}

// Close tears down subscriptions and background loops. The session stays
// persisted so the next run can restore it.
func (c *Coordinator) Close(ctx context.Context) {
	c.stopBackground(ctx)
	c.exec.Close()
}

// Flush waits for queued realtime and notification callbacks to finish.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.exec.Flush(ctx)
}

// CurrentUser returns the signed-in user, or nil.
func (c *Coordinator) CurrentUser() *auth.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Coordinator) IsAuthenticated() bool {
	return c.CurrentUser() != nil
}

// Profile returns the cached profile, or nil when none is loaded.
func (c *Coordinator) Profile() *models.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}

func (c *Coordinator) HasCompletedOnboarding() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onboarded
}

// Tables returns a copy of the cached table list, most recently updated
// first.
func (c *Coordinator) Tables() []models.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Table, len(c.tables))
	copy(out, c.tables)
	return out
}

// Table returns one cached table.
func (c *Coordinator) Table(id uuid.UUID) (models.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := indexOfTable(c.tables, id)
	if i < 0 {
		return models.Table{}, false
	}
	return c.tables[i], true
}

// Cards returns the cached cards of a table.
func (c *Coordinator) Cards(tableID uuid.UUID) []models.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Card(nil), c.cards[tableID]...)
}

// Comments returns the cached comments of a card.
func (c *Coordinator) Comments(cardID uuid.UUID) []models.Comment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Comment(nil), c.comments[cardID]...)
}

func (c *Coordinator) Reflections() []models.Reflection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Reflection(nil), c.reflections...)
}

// IsLocallyArchived reports whether this device hides the table.
func (c *Coordinator) IsLocallyArchived(id uuid.UUID) bool {
	return c.overrides.Contains(id)
}

// ActiveChannels lists live realtime channel names.
func (c *Coordinator) ActiveChannels() []string {
	if c.registry == nil {
		return nil
	}
	return c.registry.Active()
}

// PollingNotifications reports whether the notification poll loop runs.
func (c *Coordinator) PollingNotifications() bool {
	return c.queue.Running()
}

func (c *Coordinator) userID() (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return uuid.Nil, common.ErrNotAuthenticated
	}
	return c.user.ID, nil
}

// authorName is the name stamped on cards, comments and nudges: the profile
// display name, else the account email, else "Anonymous".
func (c *Coordinator) authorName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile != nil && c.profile.DisplayName != nil && *c.profile.DisplayName != "" {
		return *c.profile.DisplayName
	}
	if c.user != nil && c.user.Email != "" {
		return c.user.Email
	}
	return common.AnonymousAuthor
}

func (c *Coordinator) pushToken(ctx context.Context, s *auth.Session) {
	if c.tokens == nil || s == nil {
		return
	}
	if err := c.tokens.SetAuth(ctx, s.AccessToken); err != nil {
		c.logger.Warn(ctx, "push refreshed token to realtime", "err", err)
	}
}

func indexOfTable(tables []models.Table, id uuid.UUID) int {
	for i := range tables {
		if tables[i].ID == id {
			return i
		}
	}
	return -1
}

func sortTables(tables []models.Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		return tables[i].UpdatedAt.After(tables[j].UpdatedAt.Time)
	})
}

func runGuarded[T any](ctx context.Context, c *Coordinator, op func(ctx context.Context) (T, error)) (T, error) {
	return session.Run(ctx, c.guard, op)
}
