package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/common"
)

// FetchReflections loads the caller's reflections, newest first.
func (c *Coordinator) FetchReflections(ctx context.Context) ([]models.Reflection, error) {
	me, err := c.userID()
	if err != nil {
		return nil, err
	}
	list, err := runGuarded(ctx, c, func(ctx context.Context) ([]models.Reflection, error) {
		return c.repos.Reflections.ListByUser(ctx, me)
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.user.ID != me {
		return nil, common.ErrNotAuthenticated
	}
	c.reflections = list
	return append([]models.Reflection(nil), list...), nil
}

// CreateReflection writes a private reflection.
func (c *Coordinator) CreateReflection(ctx context.Context, body, prompt string, kind models.ReflectionType) (models.Reflection, error) {
	me, err := c.userID()
	if err != nil {
		return models.Reflection{}, err
	}
	if kind == "" {
		kind = models.ReflectionQuickWin
	}
	nr := models.NewReflection{
		UserID:         me,
		Body:           strings.TrimSpace(body),
		Prompt:         models.OptionalString(strings.TrimSpace(prompt)),
		ReflectionType: kind,
	}
	if err := models.Validate(nr); err != nil {
		return models.Reflection{}, err
	}
	created, err := runGuarded(ctx, c, func(ctx context.Context) (models.Reflection, error) {
		return c.repos.Reflections.Create(ctx, nr)
	})
	if err != nil {
		return models.Reflection{}, err
	}
	c.mu.Lock()
	c.reflections = append([]models.Reflection{created}, c.reflections...)
	c.mu.Unlock()
	return created, nil
}

// UpdateReflection replaces the body and stamps updated_at.
func (c *Coordinator) UpdateReflection(ctx context.Context, id uuid.UUID, body string) (models.Reflection, error) {
	if _, err := c.userID(); err != nil {
		return models.Reflection{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Reflection{}, fmt.Errorf("%w: body is required", common.ErrValidation)
	}
	now := models.NewTimestamp(c.now())
	updated, err := runGuarded(ctx, c, func(ctx context.Context) (models.Reflection, error) {
		return c.repos.Reflections.Update(ctx, id, models.ReflectionPatch{Body: &body, UpdatedAt: &now})
	})
	if err != nil {
		return models.Reflection{}, err
	}
	c.mu.Lock()
	for i := range c.reflections {
		if c.reflections[i].ID == id {
			c.reflections[i] = updated
			break
		}
	}
	c.mu.Unlock()
	return updated, nil
}

func (c *Coordinator) DeleteReflection(ctx context.Context, id uuid.UUID) error {
	if _, err := c.userID(); err != nil {
		return err
	}
	if err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Reflections.Delete(ctx, id)
	}); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.reflections {
		if c.reflections[i].ID == id {
			c.reflections = append(c.reflections[:i:i], c.reflections[i+1:]...)
			break
		}
	}
	return nil
}

// ShareReflectionToTable copies a whole reflection into a new card. The
// prompt, if any, becomes the card title.
func (c *Coordinator) ShareReflectionToTable(ctx context.Context, r models.Reflection, tableID uuid.UUID) (models.Card, error) {
	prompt := ""
	if r.Prompt != nil {
		prompt = *r.Prompt
	}
	id := r.ID
	return c.CreateCard(ctx, CardInput{
		TableID:            tableID,
		Title:              prompt,
		Body:               r.Body,
		SourceReflectionID: &id,
		SourcePrompt:       prompt,
	})
}

// ShareReflectionExcerpt posts a highlighted excerpt of a reflection. The
// excerpt is checked before anything is sent.
func (c *Coordinator) ShareReflectionExcerpt(ctx context.Context, r models.Reflection, ex models.Excerpt) (models.Card, error) {
	ex = ex.Normalize()
	if err := models.Validate(ex); err != nil {
		return models.Card{}, err
	}
	prompt := ""
	if r.Prompt != nil {
		prompt = *r.Prompt
	}
	id := r.ID
	return c.CreateCard(ctx, CardInput{
		TableID:            ex.TableID,
		Title:              ex.CardTitle(c.now()),
		Body:               ex.CardBody(),
		SourceReflectionID: &id,
		SourcePrompt:       prompt,
	})
}

// Seed card titles.
const (
	questionCardTitle = "Question"
	nextStepCardTitle = "Next step"
)

// SeedInput describes a table started from a reflection excerpt.
type SeedInput struct {
	Name     string
	Excerpt  string
	Question string
	NextStep string
	Invitees []string
}

// CreateSeededTable creates a table with the caller as its only member, posts
// the excerpt card and the optional Question and Next step cards, then
// shares it with each invitee. Invite failures come back as *ShareFailures
// alongside the table.
func (c *Coordinator) CreateSeededTable(ctx context.Context, r models.Reflection, in SeedInput) (models.Table, error) {
	name := strings.TrimSpace(in.Name)
	ex := models.Excerpt{ReflectionID: r.ID, Text: in.Excerpt}.Normalize()
	if name == "" {
		return models.Table{}, fmt.Errorf("%w: table name is required", common.ErrValidation)
	}
	if err := models.Validate(ex); err != nil {
		return models.Table{}, err
	}

	table, err := c.CreateTable(ctx, TableInput{Title: name, Members: []string{c.seedMemberName()}})
	if err != nil {
		return models.Table{}, err
	}

	ex.TableID = table.ID
	if _, err := c.ShareReflectionExcerpt(ctx, r, ex); err != nil {
		return table, fmt.Errorf("seed excerpt card: %w", err)
	}
	if q := strings.TrimSpace(in.Question); q != "" {
		if _, err := c.CreateCard(ctx, CardInput{TableID: table.ID, Title: questionCardTitle, Body: q}); err != nil {
			return table, fmt.Errorf("seed question card: %w", err)
		}
	}
	if next := strings.TrimSpace(in.NextStep); next != "" {
		if _, err := c.CreateCard(ctx, CardInput{TableID: table.ID, Title: nextStepCardTitle, Body: next}); err != nil {
			return table, fmt.Errorf("seed next step card: %w", err)
		}
	}

	shareErr := c.shareWithAll(ctx, table.ID, in.Invitees)
	if t, ok := c.Table(table.ID); ok {
		table = t
	}
	return table, shareErr
}

func (c *Coordinator) seedMemberName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile != nil && c.profile.DisplayName != nil && *c.profile.DisplayName != "" {
		return *c.profile.DisplayName
	}
	if c.user != nil && c.user.Email != "" {
		return c.user.Email
	}
	return "You"
}
