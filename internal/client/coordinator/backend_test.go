package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/realtime"
	"github.com/sherryycxie/tables/internal/client/registry"
	"github.com/sherryycxie/tables/internal/client/reminders"
	"github.com/sherryycxie/tables/internal/client/repositories/remote"
	"github.com/sherryycxie/tables/internal/client/rest"
	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// fakeBackend is an in-memory store that behaves like the hosted backend:
// callers are identified by their access token, tables are visible to the
// owner and to users they are shared with, and inserting a share queues a
// share_created notification for the recipient.
type fakeBackend struct {
	clock atomic.Int64

	mu            sync.Mutex
	passwords     map[string]string
	accounts      map[string]uuid.UUID
	tokens        map[string]uuid.UUID
	expired       map[string]bool
	profiles      map[uuid.UUID]models.Profile
	tables        map[uuid.UUID]models.Table
	cards         []models.Card
	comments      []models.Comment
	nudges        []models.Nudge
	reflections   []models.Reflection
	shares        []models.TableShare
	notifications []models.Notification

	failAddMember     error
	failProfileUpdate error
	failListTables    error
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		passwords: map[string]string{},
		accounts:  map[string]uuid.UUID{},
		tokens:    map[string]uuid.UUID{},
		expired:   map[string]bool{},
		profiles:  map[uuid.UUID]models.Profile{},
		tables:    map[uuid.UUID]models.Table{},
	}
}

// tick returns a strictly increasing time.
func (b *fakeBackend) tick() time.Time {
	return epoch.Add(time.Duration(b.clock.Add(1)) * time.Second)
}

func (b *fakeBackend) stamp() models.Timestamp {
	return models.NewTimestamp(b.tick())
}

func (b *fakeBackend) caller(ctx context.Context) (uuid.UUID, error) {
	token, ok := rest.AccessTokenFromContext(ctx)
	if !ok {
		return uuid.Nil, common.ErrNotAuthenticated
	}
	if b.expired[token] {
		return uuid.Nil, common.ErrTokenExpired
	}
	id, ok := b.tokens[token]
	if !ok {
		return uuid.Nil, common.ErrNotAuthenticated
	}
	return id, nil
}

func (b *fakeBackend) issue(id uuid.UUID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := uuid.NewString()
	b.tokens[token] = id
	return token
}

func (b *fakeBackend) expire(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired[token] = true
}

func (b *fakeBackend) visible(t models.Table, user uuid.UUID) bool {
	if t.OwnerID == user {
		return true
	}
	for _, s := range b.shares {
		if s.TableID == t.ID && s.SharedWithUserID == user {
			return true
		}
	}
	return false
}

func (b *fakeBackend) table(id uuid.UUID) models.Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tables[id]
}

func (b *fakeBackend) hasTable(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tables[id]
	return ok
}

func (b *fakeBackend) insertTable(owner uuid.UUID, title string) models.Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.stamp()
	t := models.Table{
		ID: uuid.New(), Title: title, Status: models.TableStatusActive,
		Members: []string{}, OwnerID: owner, CreatedAt: now, UpdatedAt: now,
	}
	b.tables[t.ID] = t
	return t
}

func (b *fakeBackend) cardsOf(tableID uuid.UUID) []models.Card {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Card
	for _, c := range b.cards {
		if c.TableID == tableID {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) nudgesOf(tableID uuid.UUID) []models.Nudge {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Nudge
	for _, n := range b.nudges {
		if n.TableID == tableID {
			out = append(out, n)
		}
	}
	return out
}

func (b *fakeBackend) notificationsFor(user uuid.UUID) []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Notification
	for _, n := range b.notifications {
		if n.UserID == user {
			out = append(out, n)
		}
	}
	return out
}

func (b *fakeBackend) sharesOf(tableID uuid.UUID) []models.TableShare {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.TableShare
	for _, s := range b.shares {
		if s.TableID == tableID {
			out = append(out, s)
		}
	}
	return out
}

func (b *fakeBackend) repositories() *remote.Repositories {
	return &remote.Repositories{
		Tables:        fakeTables{b},
		Cards:         fakeCards{b},
		Comments:      fakeComments{b},
		Nudges:        fakeNudges{b},
		Reflections:   fakeReflections{b},
		Shares:        fakeShares{b},
		Profiles:      fakeProfiles{b},
		Notifications: fakeNotifications{b},
	}
}

type fakeTables struct{ b *fakeBackend }

func (r fakeTables) List(ctx context.Context) ([]models.Table, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	me, err := r.b.caller(ctx)
	if err != nil {
		return nil, err
	}
	if r.b.failListTables != nil {
		return nil, r.b.failListTables
	}
	var out []models.Table
	for _, t := range r.b.tables {
		if r.b.visible(t, me) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt.Time) })
	return out, nil
}

func (r fakeTables) Get(ctx context.Context, id uuid.UUID) (models.Table, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	me, err := r.b.caller(ctx)
	if err != nil {
		return models.Table{}, err
	}
	t, ok := r.b.tables[id]
	if !ok || !r.b.visible(t, me) {
		return models.Table{}, common.ErrNotFound
	}
	return t, nil
}

func (r fakeTables) Create(ctx context.Context, nt models.NewTable) (models.Table, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Table{}, err
	}
	now := r.b.stamp()
	t := models.Table{
		ID: uuid.New(), Title: nt.Title, Context: nt.Context, Status: nt.Status,
		Members: append([]string(nil), nt.Members...), OwnerID: nt.OwnerID,
		CreatedAt: now, UpdatedAt: now,
	}
	r.b.tables[t.ID] = t
	return t, nil
}

func (r fakeTables) Update(ctx context.Context, id uuid.UUID, p models.TablePatch) (models.Table, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	me, err := r.b.caller(ctx)
	if err != nil {
		return models.Table{}, err
	}
	t, ok := r.b.tables[id]
	if !ok || !r.b.visible(t, me) {
		return models.Table{}, common.ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Context != nil {
		t.Context = p.Context
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Members != nil {
		t.Members = append([]string(nil), p.Members...)
	}
	switch {
	case p.ClearReminder:
		t.NextReminderDate = nil
	case p.NextReminderDate != nil:
		ts := models.NewTimestamp(*p.NextReminderDate)
		t.NextReminderDate = &ts
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = models.NewTimestamp(*p.UpdatedAt)
	}
	r.b.tables[id] = t
	return t, nil
}

func (r fakeTables) Delete(ctx context.Context, id uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	me, err := r.b.caller(ctx)
	if err != nil {
		return err
	}
	t, ok := r.b.tables[id]
	if !ok || t.OwnerID != me {
		return nil
	}
	delete(r.b.tables, id)
	shares := r.b.shares[:0]
	for _, s := range r.b.shares {
		if s.TableID != id {
			shares = append(shares, s)
		}
	}
	r.b.shares = shares
	return nil
}

func (r fakeTables) AddMember(ctx context.Context, id uuid.UUID, name string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	if r.b.failAddMember != nil {
		return r.b.failAddMember
	}
	t, ok := r.b.tables[id]
	if !ok {
		return common.ErrNotFound
	}
	if !t.HasMember(name) {
		t.Members = append(append([]string(nil), t.Members...), name)
	}
	r.b.tables[id] = t
	return nil
}

func (r fakeTables) RemoveMember(ctx context.Context, id uuid.UUID, name string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	t, ok := r.b.tables[id]
	if !ok {
		return common.ErrNotFound
	}
	members := []string{}
	for _, m := range t.Members {
		if m != name {
			members = append(members, m)
		}
	}
	t.Members = members
	r.b.tables[id] = t
	return nil
}

type fakeCards struct{ b *fakeBackend }

func (r fakeCards) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Card, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.Card
	for i := len(r.b.cards) - 1; i >= 0; i-- {
		if r.b.cards[i].TableID == tableID {
			out = append(out, r.b.cards[i])
		}
	}
	return out, nil
}

func (r fakeCards) Create(ctx context.Context, nc models.NewCard) (models.Card, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Card{}, err
	}
	c := models.Card{
		ID: uuid.New(), TableID: nc.TableID, Title: nc.Title, Body: nc.Body, LinkURL: nc.LinkURL,
		AuthorName: nc.AuthorName, Status: nc.Status, CreatedAt: r.b.stamp(),
		SourceReflectionID: nc.SourceReflectionID, SourcePrompt: nc.SourcePrompt,
	}
	r.b.cards = append(r.b.cards, c)
	return c, nil
}

func (r fakeCards) Update(ctx context.Context, id uuid.UUID, p models.CardPatch) (models.Card, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Card{}, err
	}
	for i, c := range r.b.cards {
		if c.ID != id {
			continue
		}
		if p.Title != nil {
			c.Title = p.Title
		}
		if p.Body != nil {
			c.Body = *p.Body
		}
		if p.LinkURL != nil {
			c.LinkURL = p.LinkURL
		}
		if p.Status != nil {
			c.Status = *p.Status
		}
		r.b.cards[i] = c
		return c, nil
	}
	return models.Card{}, common.ErrNotFound
}

func (r fakeCards) Delete(ctx context.Context, id uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	for i, c := range r.b.cards {
		if c.ID == id {
			r.b.cards = append(r.b.cards[:i:i], r.b.cards[i+1:]...)
			break
		}
	}
	return nil
}

type fakeComments struct{ b *fakeBackend }

func (r fakeComments) ListByCard(ctx context.Context, cardID uuid.UUID) ([]models.Comment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.Comment
	for _, c := range r.b.comments {
		if c.CardID == cardID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeComments) Create(ctx context.Context, nc models.NewComment) (models.Comment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Comment{}, err
	}
	c := models.Comment{ID: uuid.New(), CardID: nc.CardID, Body: nc.Body, AuthorName: nc.AuthorName, CreatedAt: r.b.stamp()}
	r.b.comments = append(r.b.comments, c)
	return c, nil
}

func (r fakeComments) Delete(ctx context.Context, id uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	for i, c := range r.b.comments {
		if c.ID == id {
			r.b.comments = append(r.b.comments[:i:i], r.b.comments[i+1:]...)
			break
		}
	}
	return nil
}

type fakeNudges struct{ b *fakeBackend }

func (r fakeNudges) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Nudge, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.Nudge
	for _, n := range r.b.nudges {
		if n.TableID == tableID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r fakeNudges) Create(ctx context.Context, nn models.NewNudge) (models.Nudge, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Nudge{}, err
	}
	n := models.Nudge{ID: uuid.New(), TableID: nn.TableID, Message: nn.Message, AuthorName: nn.AuthorName, CreatedAt: r.b.stamp()}
	r.b.nudges = append(r.b.nudges, n)
	return n, nil
}

type fakeReflections struct{ b *fakeBackend }

func (r fakeReflections) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reflection, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.Reflection
	for i := len(r.b.reflections) - 1; i >= 0; i-- {
		if r.b.reflections[i].UserID == userID {
			out = append(out, r.b.reflections[i])
		}
	}
	return out, nil
}

func (r fakeReflections) Create(ctx context.Context, nr models.NewReflection) (models.Reflection, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Reflection{}, err
	}
	now := r.b.stamp()
	ref := models.Reflection{
		ID: uuid.New(), UserID: nr.UserID, Body: nr.Body, Prompt: nr.Prompt,
		ReflectionType: nr.ReflectionType, CreatedAt: now, UpdatedAt: now,
	}
	r.b.reflections = append(r.b.reflections, ref)
	return ref, nil
}

func (r fakeReflections) Update(ctx context.Context, id uuid.UUID, p models.ReflectionPatch) (models.Reflection, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Reflection{}, err
	}
	for i, ref := range r.b.reflections {
		if ref.ID != id {
			continue
		}
		if p.Body != nil {
			ref.Body = *p.Body
		}
		if p.UpdatedAt != nil {
			ref.UpdatedAt = *p.UpdatedAt
		}
		r.b.reflections[i] = ref
		return ref, nil
	}
	return models.Reflection{}, common.ErrNotFound
}

func (r fakeReflections) Delete(ctx context.Context, id uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	for i, ref := range r.b.reflections {
		if ref.ID == id {
			r.b.reflections = append(r.b.reflections[:i:i], r.b.reflections[i+1:]...)
			break
		}
	}
	return nil
}

type fakeShares struct{ b *fakeBackend }

func (r fakeShares) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.TableShare, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.TableShare
	for _, s := range r.b.shares {
		if s.TableID == tableID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r fakeShares) Create(ctx context.Context, ns models.NewTableShare) (models.TableShare, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.TableShare{}, err
	}
	now := r.b.stamp()
	s := models.TableShare{ID: uuid.New(), TableID: ns.TableID, SharedWithUserID: ns.SharedWithUserID, Permission: ns.Permission, CreatedAt: now}
	r.b.shares = append(r.b.shares, s)
	r.b.notifications = append(r.b.notifications, models.Notification{
		ID:        uuid.New(),
		UserID:    ns.SharedWithUserID,
		EventType: models.EventShareCreated,
		Payload:   models.Payload{"table_id": ns.TableID.String(), "table_title": r.b.tables[ns.TableID].Title},
		CreatedAt: &now,
	})
	return s, nil
}

func (r fakeShares) Delete(ctx context.Context, tableID, userID uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	for i, s := range r.b.shares {
		if s.TableID == tableID && s.SharedWithUserID == userID {
			r.b.shares = append(r.b.shares[:i:i], r.b.shares[i+1:]...)
			break
		}
	}
	return nil
}

func (r fakeShares) FindUserByEmail(ctx context.Context, email string) (models.UserLookup, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.UserLookup{}, err
	}
	id, ok := r.b.accounts[strings.ToLower(email)]
	if !ok {
		return models.UserLookup{}, common.ErrUserNotFound
	}
	p := r.b.profiles[id]
	return models.UserLookup{UserID: id, UserEmail: email, DisplayName: p.DisplayName}, nil
}

type fakeProfiles struct{ b *fakeBackend }

func (r fakeProfiles) Get(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Profile{}, err
	}
	p, ok := r.b.profiles[id]
	if !ok {
		return models.Profile{}, common.ErrNotFound
	}
	return p, nil
}

func (r fakeProfiles) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Profile{}, err
	}
	now := r.b.stamp()
	p.CreatedAt = &now
	r.b.profiles[p.ID] = p
	return p, nil
}

func (r fakeProfiles) Update(ctx context.Context, id uuid.UUID, patch models.ProfilePatch) (models.Profile, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return models.Profile{}, err
	}
	if r.b.failProfileUpdate != nil {
		return models.Profile{}, r.b.failProfileUpdate
	}
	p := r.b.profiles[id]
	if patch.DisplayName != nil {
		p.DisplayName = patch.DisplayName
	}
	if patch.FirstName != nil {
		p.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = patch.LastName
	}
	if patch.HasCompletedOnboarding != nil {
		p.HasCompletedOnboarding = patch.HasCompletedOnboarding
	}
	r.b.profiles[id] = p
	return p, nil
}

func (r fakeProfiles) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]models.Profile, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.Profile
	for _, p := range r.b.profiles {
		if p.ID == exclude {
			continue
		}
		for _, f := range []*string{p.Email, p.DisplayName, p.FirstName, p.LastName} {
			if f != nil && strings.Contains(strings.ToLower(*f), query) {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Email < *out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeNotifications struct{ b *fakeBackend }

func (r fakeNotifications) ListUnprocessed(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return nil, err
	}
	var out []models.Notification
	for _, n := range r.b.notifications {
		if n.UserID == userID && !n.Processed {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r fakeNotifications) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	for i := range r.b.notifications {
		if r.b.notifications[i].ID == id {
			r.b.notifications[i].Processed = true
		}
	}
	return nil
}

func (r fakeNotifications) Insert(ctx context.Context, nn models.NewNotification) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, err := r.b.caller(ctx); err != nil {
		return err
	}
	now := r.b.stamp()
	r.b.notifications = append(r.b.notifications, models.Notification{
		ID: uuid.New(), UserID: nn.UserID, EventType: nn.EventType, Payload: nn.Payload, CreatedAt: &now,
	})
	return nil
}

// fakeAuth issues backend tokens for one device.
type fakeAuth struct {
	b *fakeBackend

	mu         sync.Mutex
	session    *auth.Session
	refreshErr error
	refreshes  int
}

func (a *fakeAuth) SignUp(_ context.Context, email, password string, _ map[string]any) (*auth.Session, error) {
	a.b.mu.Lock()
	key := strings.ToLower(email)
	if _, taken := a.b.accounts[key]; taken {
		a.b.mu.Unlock()
		return nil, fmt.Errorf("user already registered")
	}
	id := uuid.New()
	a.b.accounts[key] = id
	a.b.passwords[key] = password
	a.b.mu.Unlock()
	return a.start(id, email), nil
}

func (a *fakeAuth) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	a.b.mu.Lock()
	key := strings.ToLower(email)
	id, ok := a.b.accounts[key]
	good := ok && a.b.passwords[key] == password
	a.b.mu.Unlock()
	if !good {
		return nil, errors.New("invalid login credentials")
	}
	return a.start(id, email), nil
}

func (a *fakeAuth) start(id uuid.UUID, email string) *auth.Session {
	s := &auth.Session{AccessToken: a.b.issue(id), RefreshToken: uuid.NewString(), User: auth.User{ID: id, Email: email}}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	out := *s
	return &out
}

func (a *fakeAuth) SignOut(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
	return nil
}

func (a *fakeAuth) Forget(ctx context.Context) error {
	return a.SignOut(ctx)
}

func (a *fakeAuth) Session(context.Context) (*auth.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, common.ErrNotAuthenticated
	}
	out := *a.session
	return &out, nil
}

func (a *fakeAuth) Refresh(context.Context) (*auth.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	if a.session == nil {
		return nil, common.ErrNotAuthenticated
	}
	a.refreshes++
	next := *a.session
	next.AccessToken = a.b.issue(next.User.ID)
	a.session = &next
	out := next
	return &out, nil
}

func (a *fakeAuth) token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

func (a *fakeAuth) refreshCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshes
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled []reminders.Reminder
	cancelled []uuid.UUID
	cancelAll int
}

func (f *fakeReminders) Schedule(_ context.Context, r reminders.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, r)
	return nil
}

func (f *fakeReminders) CancelTable(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
}

func (f *fakeReminders) CancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAll++
}

func (f *fakeReminders) snapshot() ([]reminders.Reminder, []uuid.UUID, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reminders.Reminder(nil), f.scheduled...), append([]uuid.UUID(nil), f.cancelled...), f.cancelAll
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

type fakeStream struct {
	changes chan realtime.Change
	done    chan struct{}
	once    sync.Once
}

func (s *fakeStream) Changes() <-chan realtime.Change { return s.changes }
func (s *fakeStream) Done() <-chan struct{}           { return s.done }
func (s *fakeStream) Unsubscribe(context.Context) error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type fakeFeed struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
	err     error
}

func (f *fakeFeed) Subscribe(_ context.Context, name string, _ realtime.ChangeFilter) (registry.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.streams == nil {
		f.streams = map[string]*fakeStream{}
	}
	s := &fakeStream{changes: make(chan realtime.Change, 8), done: make(chan struct{})}
	f.streams[name] = s
	return s, nil
}

func (f *fakeFeed) stream(name string) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[name]
}

func (f *fakeFeed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// drop ends a stream the way a lost connection does.
func (f *fakeFeed) drop(t *testing.T, name string) *fakeStream {
	t.Helper()
	s := f.stream(name)
	require.NotNil(t, s, "no stream %q", name)
	s.once.Do(func() { close(s.done) })
	return s
}

func (f *fakeFeed) push(t *testing.T, name string, ch realtime.Change) {
	t.Helper()
	f.mu.Lock()
	s := f.streams[name]
	f.mu.Unlock()
	require.NotNil(t, s, "no stream %q", name)
	s.changes <- ch
}

// device is one signed-in client against the shared backend.
type device struct {
	*Coordinator
	auth      *fakeAuth
	reminders *fakeReminders
	local     *memStore
	feed      *fakeFeed
}

type deviceOption func(*Deps)

func withFeed(f *fakeFeed) deviceOption {
	return func(d *Deps) { d.Feed = f }
}

func withLocal(store *memStore) deviceOption {
	return func(d *Deps) { d.Local = store }
}

func withPoll(every time.Duration) deviceOption {
	return func(d *Deps) { d.PollInterval = every }
}

func newDevice(t *testing.T, b *fakeBackend, opts ...deviceOption) *device {
	t.Helper()
	dev := &device{
		auth:      &fakeAuth{b: b},
		reminders: &fakeReminders{},
		local:     &memStore{},
	}
	deps := Deps{
		Auth:         dev.auth,
		Repos:        b.repositories(),
		Local:        dev.local,
		Reminders:    dev.reminders,
		Logger:       logging.NewNop(),
		PollInterval: time.Hour,
		Now:          b.tick,
	}
	for _, o := range opts {
		o(&deps)
	}
	if f, ok := deps.Feed.(*fakeFeed); ok {
		dev.feed = f
	}
	if m, ok := deps.Local.(*memStore); ok {
		dev.local = m
	}
	dev.Coordinator = New(deps)
	t.Cleanup(func() { dev.Close(context.Background()) })
	return dev
}

func signUp(t *testing.T, b *fakeBackend, email, first, last string, opts ...deviceOption) *device {
	t.Helper()
	dev := newDevice(t, b, opts...)
	require.NoError(t, dev.SignUp(context.Background(), email, "secret-pass", "", first, last))
	return dev
}

func (d *device) me() uuid.UUID {
	return d.CurrentUser().ID
}
