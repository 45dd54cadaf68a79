package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type RESTCommentRepository struct {
	c *rest.Client
}

func NewRESTCommentRepository(c *rest.Client) *RESTCommentRepository {
	return &RESTCommentRepository{c: c}
}

// ListByCard returns a card's thread, oldest first.
func (r *RESTCommentRepository) ListByCard(ctx context.Context, cardID uuid.UUID) ([]models.Comment, error) {
	var out []models.Comment
	err := r.c.From(commentsTable).Eq("card_id", cardID).Order("created_at", true).List(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", cardID, err)
	}
	return out, nil
}

func (r *RESTCommentRepository) Create(ctx context.Context, c models.NewComment) (models.Comment, error) {
	var rows []models.Comment
	if err := r.c.From(commentsTable).Insert(ctx, c, &rows); err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return first(rows, "create comment")
}

func (r *RESTCommentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.c.From(commentsTable).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	return nil
}

type RESTNudgeRepository struct {
	c *rest.Client
}

func NewRESTNudgeRepository(c *rest.Client) *RESTNudgeRepository {
	return &RESTNudgeRepository{c: c}
}

// ListByTable returns a table's nudges, newest first.
func (r *RESTNudgeRepository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Nudge, error) {
	var out []models.Nudge
	err := r.c.From(nudgesTable).Eq("table_id", tableID).Order("created_at", false).List(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("list nudges of %s: %w", tableID, err)
	}
	return out, nil
}

func (r *RESTNudgeRepository) Create(ctx context.Context, n models.NewNudge) (models.Nudge, error) {
	var rows []models.Nudge
	if err := r.c.From(nudgesTable).Insert(ctx, n, &rows); err != nil {
		return models.Nudge{}, fmt.Errorf("create nudge: %w", err)
	}
	return first(rows, "create nudge")
}
