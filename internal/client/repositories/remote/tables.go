package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type RESTTableRepository struct {
	c *rest.Client
}

func NewRESTTableRepository(c *rest.Client) *RESTTableRepository {
	return &RESTTableRepository{c: c}
}

// List returns every table visible to the caller, most recently updated
// first. Visibility (owned or shared) is enforced by the backend.
func (r *RESTTableRepository) List(ctx context.Context) ([]models.Table, error) {
	var out []models.Table
	if err := r.c.From(tablesTable).Order("updated_at", false).List(ctx, &out); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return out, nil
}

func (r *RESTTableRepository) Get(ctx context.Context, id uuid.UUID) (models.Table, error) {
	var out models.Table
	if err := r.c.From(tablesTable).Eq("id", id).Single(ctx, &out); err != nil {
		return models.Table{}, fmt.Errorf("get table %s: %w", id, err)
	}
	return out, nil
}

func (r *RESTTableRepository) Create(ctx context.Context, t models.NewTable) (models.Table, error) {
	var rows []models.Table
	if err := r.c.From(tablesTable).Insert(ctx, t, &rows); err != nil {
		return models.Table{}, fmt.Errorf("create table: %w", err)
	}
	return first(rows, "create table")
}

func (r *RESTTableRepository) Update(ctx context.Context, id uuid.UUID, patch models.TablePatch) (models.Table, error) {
	var rows []models.Table
	if err := r.c.From(tablesTable).Eq("id", id).Update(ctx, patch.Fields(), &rows); err != nil {
		return models.Table{}, fmt.Errorf("update table %s: %w", id, err)
	}
	return first(rows, "update table "+id.String())
}

func (r *RESTTableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.c.From(tablesTable).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete table %s: %w", id, err)
	}
	return nil
}

// AddMember appends name to the member list server-side, skipping duplicates.
func (r *RESTTableRepository) AddMember(ctx context.Context, id uuid.UUID, name string) error {
	params := map[string]any{"p_table_id": id, "p_member_name": name}
	if err := r.c.RPC(ctx, "add_table_member", params, nil); err != nil {
		return fmt.Errorf("add member to %s: %w", id, err)
	}
	return nil
}

func (r *RESTTableRepository) RemoveMember(ctx context.Context, id uuid.UUID, name string) error {
	params := map[string]any{"p_table_id": id, "p_member_name": name}
	if err := r.c.RPC(ctx, "remove_table_member", params, nil); err != nil {
		return fmt.Errorf("remove member from %s: %w", id, err)
	}
	return nil
}
