package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type RESTProfileRepository struct {
	c *rest.Client
}

func NewRESTProfileRepository(c *rest.Client) *RESTProfileRepository {
	return &RESTProfileRepository{c: c}
}

func (r *RESTProfileRepository) Get(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	var out models.Profile
	if err := r.c.From(profilesTable).Eq("id", id).Single(ctx, &out); err != nil {
		return models.Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return out, nil
}

func (r *RESTProfileRepository) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	var rows []models.Profile
	if err := r.c.From(profilesTable).Insert(ctx, p, &rows); err != nil {
		return models.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return first(rows, "create profile")
}

func (r *RESTProfileRepository) Update(ctx context.Context, id uuid.UUID, patch models.ProfilePatch) (models.Profile, error) {
	var rows []models.Profile
	if err := r.c.From(profilesTable).Eq("id", id).Update(ctx, patch, &rows); err != nil {
		return models.Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}
	return first(rows, "update profile "+id.String())
}

// Search matches query case-insensitively against email and name columns.
func (r *RESTProfileRepository) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]models.Profile, error) {
	term := sanitizeTerm(query)
	if term == "" {
		return nil, nil
	}
	pattern := "*" + term + "*"
	filters := strings.Join([]string{
		"email.ilike." + pattern,
		"display_name.ilike." + pattern,
		"first_name.ilike." + pattern,
		"last_name.ilike." + pattern,
	}, ",")

	q := r.c.From(profilesTable).Or(filters)
	if exclude != uuid.Nil {
		q = q.Neq("id", exclude)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []models.Profile
	if err := q.List(ctx, &out); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return out, nil
}

// sanitizeTerm drops characters that carry meaning inside a PostgREST or()
// expression.
func sanitizeTerm(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '"', '\\':
			return -1
		}
		return r
	}, s))
}
