package coordinator

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
)

// FetchCards loads and caches the cards of a table, newest first.
func (c *Coordinator) FetchCards(ctx context.Context, tableID uuid.UUID) ([]models.Card, error) {
	cards, err := runGuarded(ctx, c, func(ctx context.Context) ([]models.Card, error) {
		return c.repos.Cards.ListByTable(ctx, tableID)
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cards[tableID] = cards
	c.mu.Unlock()
	return append([]models.Card(nil), cards...), nil
}

// CardInput describes a new card.
type CardInput struct {
	TableID            uuid.UUID
	Title              string
	Body               string
	LinkURL            string
	SourceReflectionID *uuid.UUID
	SourcePrompt       string
}

// CreateCard posts a card as the caller and bumps the table's updated_at.
func (c *Coordinator) CreateCard(ctx context.Context, in CardInput) (models.Card, error) {
	if _, err := c.userID(); err != nil {
		return models.Card{}, err
	}
	nc := models.NewCard{
		TableID:            in.TableID,
		Title:              models.OptionalString(strings.TrimSpace(in.Title)),
		Body:               strings.TrimSpace(in.Body),
		LinkURL:            models.OptionalString(strings.TrimSpace(in.LinkURL)),
		AuthorName:         c.authorName(),
		Status:             models.CardStatusActive,
		SourceReflectionID: in.SourceReflectionID,
		SourcePrompt:       models.OptionalString(strings.TrimSpace(in.SourcePrompt)),
	}
	if err := models.Validate(nc); err != nil {
		return models.Card{}, err
	}

	card, err := runGuarded(ctx, c, func(ctx context.Context) (models.Card, error) {
		return c.repos.Cards.Create(ctx, nc)
	})
	if err != nil {
		return models.Card{}, err
	}

	c.mu.Lock()
	c.cards[in.TableID] = append([]models.Card{card}, c.cards[in.TableID]...)
	c.mu.Unlock()

	c.touchTable(ctx, in.TableID)
	return card, nil
}

// UpdateCard applies patch to a card.
func (c *Coordinator) UpdateCard(ctx context.Context, id uuid.UUID, patch models.CardPatch) (models.Card, error) {
	if _, err := c.userID(); err != nil {
		return models.Card{}, err
	}
	card, err := runGuarded(ctx, c, func(ctx context.Context) (models.Card, error) {
		return c.repos.Cards.Update(ctx, id, patch)
	})
	if err != nil {
		return models.Card{}, err
	}
	c.replaceCard(card)
	return card, nil
}

// MarkCardDiscussed sets the card status to discussed.
func (c *Coordinator) MarkCardDiscussed(ctx context.Context, id uuid.UUID) (models.Card, error) {
	status := models.CardStatusDiscussed
	return c.UpdateCard(ctx, id, models.CardPatch{Status: &status})
}

// DeleteCard removes a card and its cached comments.
func (c *Coordinator) DeleteCard(ctx context.Context, id uuid.UUID) error {
	if _, err := c.userID(); err != nil {
		return err
	}
	if err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Cards.Delete(ctx, id)
	}); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for tableID, cards := range c.cards {
		for i := range cards {
			if cards[i].ID == id {
				c.cards[tableID] = append(cards[:i:i], cards[i+1:]...)
				break
			}
		}
	}
	delete(c.comments, id)
	return nil
}

func (c *Coordinator) replaceCard(card models.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cards := c.cards[card.TableID]
	for i := range cards {
		if cards[i].ID == card.ID {
			cards[i] = card
			return
		}
	}
}

// FetchComments loads and caches the comments of a card, oldest first.
func (c *Coordinator) FetchComments(ctx context.Context, cardID uuid.UUID) ([]models.Comment, error) {
	comments, err := runGuarded(ctx, c, func(ctx context.Context) ([]models.Comment, error) {
		return c.repos.Comments.ListByCard(ctx, cardID)
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.comments[cardID] = comments
	c.mu.Unlock()
	return append([]models.Comment(nil), comments...), nil
}

// AddComment posts a comment on a card as the caller.
func (c *Coordinator) AddComment(ctx context.Context, cardID uuid.UUID, body string) (models.Comment, error) {
	if _, err := c.userID(); err != nil {
		return models.Comment{}, err
	}
	nc := models.NewComment{CardID: cardID, Body: strings.TrimSpace(body), AuthorName: c.authorName()}
	if err := models.Validate(nc); err != nil {
		return models.Comment{}, err
	}
	comment, err := runGuarded(ctx, c, func(ctx context.Context) (models.Comment, error) {
		return c.repos.Comments.Create(ctx, nc)
	})
	if err != nil {
		return models.Comment{}, err
	}
	c.mu.Lock()
	c.comments[cardID] = append(c.comments[cardID], comment)
	c.mu.Unlock()
	return comment, nil
}

func (c *Coordinator) DeleteComment(ctx context.Context, cardID, id uuid.UUID) error {
	if _, err := c.userID(); err != nil {
		return err
	}
	if err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Comments.Delete(ctx, id)
	}); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	comments := c.comments[cardID]
	for i := range comments {
		if comments[i].ID == id {
			c.comments[cardID] = append(comments[:i:i], comments[i+1:]...)
			break
		}
	}
	return nil
}

// FetchNudges lists the nudges sent on a table.
func (c *Coordinator) FetchNudges(ctx context.Context, tableID uuid.UUID) ([]models.Nudge, error) {
	return runGuarded(ctx, c, func(ctx context.Context) ([]models.Nudge, error) {
		return c.repos.Nudges.ListByTable(ctx, tableID)
	})
}

// SendNudge records a nudge from the caller on a table.
func (c *Coordinator) SendNudge(ctx context.Context, tableID uuid.UUID, message string) (models.Nudge, error) {
	if _, err := c.userID(); err != nil {
		return models.Nudge{}, err
	}
	nn := models.NewNudge{
		TableID:    tableID,
		Message:    models.OptionalString(strings.TrimSpace(message)),
		AuthorName: c.authorName(),
	}
	return runGuarded(ctx, c, func(ctx context.Context) (models.Nudge, error) {
		return c.repos.Nudges.Create(ctx, nn)
	})
}
