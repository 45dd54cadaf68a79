package archive

import (
	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
)

// Lookup reports whether a table id is archived on this device.
type Lookup interface {
	Contains(id uuid.UUID) bool
}

// Apply overlays local archive overrides on a freshly fetched table list.
// Tables owned by me keep their server status. The input slice is not
// modified.
func Apply(tables []models.Table, me uuid.UUID, overrides Lookup) []models.Table {
	out := make([]models.Table, len(tables))
	copy(out, tables)
	if overrides == nil {
		return out
	}
	for i := range out {
		if out[i].IsOwnedBy(me) {
			continue
		}
		if overrides.Contains(out[i].ID) {
			out[i].Status = models.TableStatusArchived
		}
	}
	return out
}

// ApplyOne is Apply for a single table.
func ApplyOne(t models.Table, me uuid.UUID, overrides Lookup) models.Table {
	return Apply([]models.Table{t}, me, overrides)[0]
}
