package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/common"
)

// SignUp creates an account and its profile, then starts the session. The
// profile display name is "first last" when a first name is given, else
// displayName.
func (c *Coordinator) SignUp(ctx context.Context, email, password, displayName, firstName, lastName string) error {
	if err := models.ValidateEmail(email); err != nil {
		return err
	}
	s, err := c.auth.SignUp(ctx, strings.TrimSpace(email), password, map[string]any{"display_name": displayName})
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	c.setUser(s.User)

	effective := displayName
	if strings.TrimSpace(firstName) != "" {
		effective = models.ComposeDisplayName(firstName, lastName)
	}
	profile := models.Profile{
		ID:          s.User.ID,
		Email:       models.OptionalString(s.User.Email),
		DisplayName: models.OptionalString(effective),
		FirstName:   models.OptionalString(firstName),
		LastName:    models.OptionalString(lastName),
	}
	err = c.guard.Do(ctx, func(ctx context.Context) error {
		created, err := c.repos.Profiles.Create(ctx, profile)
		if err != nil {
			return err
		}
		profile = created
		return nil
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	c.mu.Lock()
	c.profile = &profile
	c.mu.Unlock()

	c.startSession(ctx, s, false)
	return nil
}

// SignIn authenticates and loads the user's data.
func (c *Coordinator) SignIn(ctx context.Context, email, password string) error {
	s, err := c.auth.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	c.setUser(s.User)
	c.startSession(ctx, s, true)
	return nil
}

// RestoreSession resumes a persisted session. It returns
// common.ErrNotAuthenticated when there is none.
func (c *Coordinator) RestoreSession(ctx context.Context) error {
	s, err := c.auth.Session(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			return err
		}
		return fmt.Errorf("restore session: %w", err)
	}
	c.setUser(s.User)
	c.startSession(ctx, s, true)
	return nil
}

// SignOut stops background work, revokes the session and clears the cache.
// Local state is cleared even when the server call fails.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.stopBackground(ctx)
	err := c.auth.SignOut(ctx)
	c.clearState()
	if c.reminders != nil {
		c.reminders.CancelAll()
	}
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Coordinator) setUser(u auth.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	user := u
	c.user = &user
}

// startSession loads everything a signed-in user sees and starts the
// realtime and polling paths. Load failures are logged; the session stays
// usable.
func (c *Coordinator) startSession(ctx context.Context, s *auth.Session, loadProfile bool) {
	if err := c.overrides.Load(ctx); err != nil {
		c.logger.Warn(ctx, "load archive overrides", "err", err)
	}
	if loadProfile {
		if err := c.fetchProfile(ctx); err != nil {
			c.logger.Warn(ctx, "fetch profile", "err", err)
		}
	}
	if err := c.RefreshTables(ctx); err != nil {
		c.logger.Warn(ctx, "fetch tables", "err", err)
	}
	if _, err := c.FetchReflections(ctx); err != nil {
		c.logger.Warn(ctx, "fetch reflections", "err", err)
	}
	c.startBackground(ctx, s)
}

func (c *Coordinator) fetchProfile(ctx context.Context) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	p, err := runGuarded(ctx, c, func(ctx context.Context) (models.Profile, error) {
		return c.repos.Profiles.Get(ctx, me)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.profile = &p
	c.onboarded = p.HasCompletedOnboarding != nil && *p.HasCompletedOnboarding
	c.mu.Unlock()
	return nil
}

// handleSignedOut runs when the guard cannot refresh the session.
func (c *Coordinator) handleSignedOut(ctx context.Context) {
	c.logger.Warn(ctx, "session expired, signing out")
	c.stopBackground(ctx)
	if err := c.auth.Forget(ctx); err != nil {
		c.logger.Warn(ctx, "forget session", "err", err)
	}
	c.clearState()
	if c.reminders != nil {
		c.reminders.CancelAll()
	}
}

func (c *Coordinator) clearState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.profile = nil
	c.onboarded = false
	c.tables = nil
	c.reflections = nil
	c.cards = map[uuid.UUID][]models.Card{}
	c.comments = map[uuid.UUID][]models.Comment{}
}
