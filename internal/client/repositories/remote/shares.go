package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
	"github.com/sherryycxie/tables/internal/common"
)

type RESTShareRepository struct {
	c *rest.Client
}

func NewRESTShareRepository(c *rest.Client) *RESTShareRepository {
	return &RESTShareRepository{c: c}
}

func (r *RESTShareRepository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.TableShare, error) {
	var out []models.TableShare
	if err := r.c.From(sharesTable).Eq("table_id", tableID).List(ctx, &out); err != nil {
		return nil, fmt.Errorf("list shares of %s: %w", tableID, err)
	}
	return out, nil
}

func (r *RESTShareRepository) Create(ctx context.Context, s models.NewTableShare) (models.TableShare, error) {
	if s.Permission == "" {
		s.Permission = models.DefaultSharePermission
	}
	var rows []models.TableShare
	if err := r.c.From(sharesTable).Insert(ctx, s, &rows); err != nil {
		return models.TableShare{}, fmt.Errorf("share table %s: %w", s.TableID, err)
	}
	return first(rows, "share table")
}

func (r *RESTShareRepository) Delete(ctx context.Context, tableID, userID uuid.UUID) error {
	err := r.c.From(sharesTable).Eq("table_id", tableID).Eq("shared_with_user_id", userID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("unshare table %s: %w", tableID, err)
	}
	return nil
}

// FindUserByEmail resolves an account by exact email. No match is
// common.ErrUserNotFound.
func (r *RESTShareRepository) FindUserByEmail(ctx context.Context, email string) (models.UserLookup, error) {
	var rows []models.UserLookup
	params := map[string]any{"search_email": strings.TrimSpace(email)}
	if err := r.c.RPC(ctx, "find_user_by_email", params, &rows); err != nil {
		return models.UserLookup{}, fmt.Errorf("find user: %w", err)
	}
	if len(rows) == 0 {
		return models.UserLookup{}, fmt.Errorf("%s: %w", email, common.ErrUserNotFound)
	}
	return rows[0], nil
}
