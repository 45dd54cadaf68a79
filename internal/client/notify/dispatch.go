package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
)

// Target is the client state a notification acts on.
type Target interface {
	RemoveTable(ctx context.Context, id uuid.UUID)
	RefreshTables(ctx context.Context) error
}

// Dispatch applies one notification to target. Every branch is idempotent:
// removing an absent table and refetching twice are both harmless.
func Dispatch(ctx context.Context, target Target, eventType string, payload models.Payload) error {
	switch eventType {
	case models.EventTableDeleted:
		raw := payload["table_id"]
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("table_deleted: bad table_id %q: %w", raw, err)
		}
		target.RemoveTable(ctx, id)
		return nil
	default:
		// share_created, member_added and unknown events all mean the
		// visible set may have changed.
		return target.RefreshTables(ctx)
	}
}
