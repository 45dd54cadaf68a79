package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type RESTReflectionRepository struct {
	c *rest.Client
}

func NewRESTReflectionRepository(c *rest.Client) *RESTReflectionRepository {
	return &RESTReflectionRepository{c: c}
}

// ListByUser returns the user's private reflections, newest first.
func (r *RESTReflectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reflection, error) {
	var out []models.Reflection
	err := r.c.From(reflectionsTable).Eq("user_id", userID).Order("created_at", false).List(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	return out, nil
}

func (r *RESTReflectionRepository) Create(ctx context.Context, in models.NewReflection) (models.Reflection, error) {
	var rows []models.Reflection
	if err := r.c.From(reflectionsTable).Insert(ctx, in, &rows); err != nil {
		return models.Reflection{}, fmt.Errorf("create reflection: %w", err)
	}
	return first(rows, "create reflection")
}

func (r *RESTReflectionRepository) Update(ctx context.Context, id uuid.UUID, patch models.ReflectionPatch) (models.Reflection, error) {
	var rows []models.Reflection
	if err := r.c.From(reflectionsTable).Eq("id", id).Update(ctx, patch, &rows); err != nil {
		return models.Reflection{}, fmt.Errorf("update reflection %s: %w", id, err)
	}
	return first(rows, "update reflection "+id.String())
}

func (r *RESTReflectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.c.From(reflectionsTable).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete reflection %s: %w", id, err)
	}
	return nil
}
