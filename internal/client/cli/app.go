package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/coordinator"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/reminders"
	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

// Service is the part of *coordinator.Coordinator the CLI drives.
type Service interface {
	SignUp(ctx context.Context, email, password, displayName, firstName, lastName string) error
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	IsAuthenticated() bool
	CurrentUser() *auth.User
	Profile() *models.Profile
	UpdateProfile(ctx context.Context, first, last string) (models.Profile, error)
	SearchUsers(ctx context.Context, query string) ([]models.Profile, error)
	PollingNotifications() bool

	RefreshTables(ctx context.Context) error
	Tables() []models.Table
	Table(id uuid.UUID) (models.Table, bool)
	IsLocallyArchived(id uuid.UUID) bool
	CreateTable(ctx context.Context, in coordinator.TableInput) (models.Table, error)
	ShareTable(ctx context.Context, tableID uuid.UUID, email string) error
	FetchShares(ctx context.Context, tableID uuid.UUID) ([]models.TableShare, error)
	RemoveShare(ctx context.Context, tableID, userID uuid.UUID) error
	ArchiveTable(ctx context.Context, id uuid.UUID) error
	UnarchiveTable(ctx context.Context, id uuid.UUID) error
	DeleteTable(ctx context.Context, id uuid.UUID) error
	LeaveSharedTable(ctx context.Context, id uuid.UUID) error
	SetReminder(ctx context.Context, id uuid.UUID, at time.Time, nudgeEveryone bool) (models.Table, error)
	ClearReminder(ctx context.Context, id uuid.UUID) (models.Table, error)
	SendNudge(ctx context.Context, tableID uuid.UUID, message string) (models.Nudge, error)

	FetchCards(ctx context.Context, tableID uuid.UUID) ([]models.Card, error)
	CreateCard(ctx context.Context, in coordinator.CardInput) (models.Card, error)
	MarkCardDiscussed(ctx context.Context, id uuid.UUID) (models.Card, error)
	FetchComments(ctx context.Context, cardID uuid.UUID) ([]models.Comment, error)
	AddComment(ctx context.Context, cardID uuid.UUID, body string) (models.Comment, error)
	SubscribeCards(ctx context.Context, tableID uuid.UUID, onUpdate func(ctx context.Context)) error
	UnsubscribeCards(ctx context.Context, tableID uuid.UUID)

	FetchReflections(ctx context.Context) ([]models.Reflection, error)
	CreateReflection(ctx context.Context, body, prompt string, kind models.ReflectionType) (models.Reflection, error)
	UpdateReflection(ctx context.Context, id uuid.UUID, body string) (models.Reflection, error)
	DeleteReflection(ctx context.Context, id uuid.UUID) error
	ShareReflectionToTable(ctx context.Context, r models.Reflection, tableID uuid.UUID) (models.Card, error)
	ShareReflectionExcerpt(ctx context.Context, r models.Reflection, ex models.Excerpt) (models.Card, error)
	CreateSeededTable(ctx context.Context, r models.Reflection, in coordinator.SeedInput) (models.Table, error)
}

// ReminderSource is the local reminder scheduler. *reminders.Scheduler
// implements it.
type ReminderSource interface {
	Fired() <-chan reminders.Reminder
	Pending() []reminders.Reminder
	HasPending(id string) bool
}

var (
	errUsage       = errors.New("usage")
	errNoSelection = errors.New("no such item")
)

// App holds the CLI state between commands.
type App struct {
	svc    Service
	logger logging.Logger
	reader *bufio.Reader
	alarms ReminderSource
	now    func() time.Time

	outMu sync.Mutex
	out   io.Writer
	style styles

	lastTables      []models.Table
	lastCards       []models.Card
	lastReflections []models.Reflection
	watching        map[uuid.UUID]struct{}
}

type Option func(*App)

// WithIO replaces stdin/stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.reader = bufio.NewReader(in)
		a.out = out
	}
}

// WithReminders lists reminders pending in src and prints each one it fires
// while the REPL runs.
func WithReminders(src ReminderSource) Option {
	return func(a *App) { a.alarms = src }
}

// WithClock overrides time.Now for reminder parsing.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp wires the CLI to a service.
func NewApp(svc Service, logger logging.Logger, opts ...Option) *App {
	a := &App{
		svc:      svc,
		logger:   logger,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		now:      time.Now,
		watching: map[uuid.UUID]struct{}{},
	}
	for _, o := range opts {
		o(a)
	}
	a.style = newStyles(a.out)
	return a
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.alarms != nil {
		go a.printReminders(ctx)
	}
	a.println("Tables CLI. Type 'help' for commands.")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.svc.IsAuthenticated()
}

func (a *App) status() string {
	u := a.svc.CurrentUser()
	if u == nil {
		return "guest"
	}
	if a.svc.PollingNotifications() {
		return u.Email + " (offline)"
	}
	return u.Email
}

func (a *App) printReminders(ctx context.Context) {
	fired := a.alarms.Fired()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-fired:
			if !ok {
				return
			}
			a.printf("\n%s\n  %s\n  %s\n", a.style.alert.Render("Reminder: "+r.Title), r.Body, a.style.dim.Render("open "+r.DeepLink))
		}
	}
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// report prints err for the user. Unknown errors are logged as well.
func (a *App) report(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var failures *coordinator.ShareFailures
	switch {
	case errors.Is(err, errUsage):
		a.println(strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
	case errors.As(err, &failures):
		a.println("Could not share with:", strings.Join(failures.Emails(), ", "))
	default:
		a.logger.Error(ctx, op+" failed", "err", err)
		a.println("Error:", common.UserMessage(err))
	}
	return err
}

func usage(text string) error {
	return fmt.Errorf("%w: usage: %s", errUsage, text)
}

func (a *App) ask(prompt string) (string, error) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) askMultiline(prompt string) (string, error) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	return GetMultiline(a.reader, prompt, a.out)
}

func (a *App) confirm(prompt string) bool {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	return Confirm(a.reader, prompt, a.out)
}

// argOrAsk returns args joined, or prompts when args is empty.
func (a *App) argOrAsk(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return a.ask(prompt)
}

// resolveTable accepts a 1-based index into the last listing, a table id or
// a unique id prefix.
func (a *App) resolveTable(arg string) (models.Table, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(a.lastTables) {
			return models.Table{}, fmt.Errorf("%w: table %d (run 'tables' first)", errNoSelection, n)
		}
		id := a.lastTables[n-1].ID
		if t, ok := a.svc.Table(id); ok {
			return t, nil
		}
		return models.Table{}, common.ErrTableNotFound
	}
	if id, err := uuid.Parse(arg); err == nil {
		if t, ok := a.svc.Table(id); ok {
			return t, nil
		}
		return models.Table{}, common.ErrTableNotFound
	}
	var match []models.Table
	for _, t := range a.svc.Tables() {
		if strings.HasPrefix(t.ID.String(), strings.ToLower(arg)) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return models.Table{}, common.ErrTableNotFound
	default:
		return models.Table{}, fmt.Errorf("%w: %q matches %d tables", errNoSelection, arg, len(match))
	}
}

func (a *App) resolveCard(arg string) (models.Card, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(a.lastCards) {
		return models.Card{}, fmt.Errorf("%w: card %q (run 'cards <table>' first)", errNoSelection, arg)
	}
	return a.lastCards[n-1], nil
}

func (a *App) resolveReflection(arg string) (models.Reflection, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(a.lastReflections) {
			return models.Reflection{}, fmt.Errorf("%w: reflection %d (run 'reflections' first)", errNoSelection, n)
		}
		return a.lastReflections[n-1], nil
	}
	for _, r := range a.lastReflections {
		if strings.HasPrefix(r.ID.String(), strings.ToLower(arg)) {
			return r, nil
		}
	}
	return models.Reflection{}, fmt.Errorf("%w: reflection %q", errNoSelection, arg)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2 15:04")
}
