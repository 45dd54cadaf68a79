package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/rest"
)

type RESTNotificationRepository struct {
	c *rest.Client
}

func NewRESTNotificationRepository(c *rest.Client) *RESTNotificationRepository {
	return &RESTNotificationRepository{c: c}
}

// ListUnprocessed returns the user's pending envelopes, oldest first.
func (r *RESTNotificationRepository) ListUnprocessed(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var out []models.Notification
	err := r.c.From(notificationsTable).
		Eq("user_id", userID).
		Eq("processed", false).
		Order("created_at", true).
		List(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (r *RESTNotificationRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	err := r.c.From(notificationsTable).Eq("id", id).Update(ctx, map[string]any{"processed": true}, nil)
	if err != nil {
		return fmt.Errorf("mark notification %s: %w", id, err)
	}
	return nil
}

func (r *RESTNotificationRepository) Insert(ctx context.Context, n models.NewNotification) error {
	if err := r.c.From(notificationsTable).Insert(ctx, n, nil); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
