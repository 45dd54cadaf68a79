package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type RESTCardRepository struct {
	c *rest.Client
}

func NewRESTCardRepository(c *rest.Client) *RESTCardRepository {
	return &RESTCardRepository{c: c}
}

// ListByTable returns the cards of a table, newest first.
func (r *RESTCardRepository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.Card, error) {
	var out []models.Card
	err := r.c.From(cardsTable).Eq("table_id", tableID).Order("created_at", false).List(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("list cards of %s: %w", tableID, err)
	}
	return out, nil
}

func (r *RESTCardRepository) Create(ctx context.Context, c models.NewCard) (models.Card, error) {
	var rows []models.Card
	if err := r.c.From(cardsTable).Insert(ctx, c, &rows); err != nil {
		return models.Card{}, fmt.Errorf("create card: %w", err)
	}
	return first(rows, "create card")
}

func (r *RESTCardRepository) Update(ctx context.Context, id uuid.UUID, patch models.CardPatch) (models.Card, error) {
	var rows []models.Card
	if err := r.c.From(cardsTable).Eq("id", id).Update(ctx, patch, &rows); err != nil {
		return models.Card{}, fmt.Errorf("update card %s: %w", id, err)
	}
	return first(rows, "update card "+id.String())
}

func (r *RESTCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.c.From(cardsTable).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}
