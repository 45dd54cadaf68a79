package remote

import (
	"fmt"

	"github.com/sherryycxie/tables/internal/common"
)

// Table names in the backend schema.
const (
	tablesTable        = "tables"
	cardsTable         = "cards"
	commentsTable      = "comments"
	nudgesTable        = "nudges"
	reflectionsTable   = "reflections"
	sharesTable        = "table_shares"
	profilesTable      = "profiles"
	notificationsTable = "realtime_notifications"
)

// first returns the single row a write with return=representation produced.
// An empty result means the filter matched nothing.
func first[T any](rows []T, what string) (T, error) {
	if len(rows) == 0 {
		var zero T
		return zero, fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return rows[0], nil
}
