package models

import (
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableStatusActive    TableStatus = "active"
	TableStatusArchived  TableStatus = "archived"
	TableStatusDiscussed TableStatus = "discussed"
)

// Table is a shared discussion thread.
type Table struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Context          *string     `json:"context,omitempty"`
	Status           TableStatus `json:"status"`
	Members          []string    `json:"members"`
	NextReminderDate *Timestamp  `json:"next_reminder_date,omitempty"`
	OwnerID          uuid.UUID   `json:"owner_id"`
	CreatedAt        Timestamp   `json:"created_at"`
	UpdatedAt        Timestamp   `json:"updated_at"`
}

// IsOwnedBy reports whether userID owns the table.
func (t Table) IsOwnedBy(userID uuid.UUID) bool {
	return t.OwnerID == userID
}

// HasMember reports whether name is in the member list.
func (t Table) HasMember(name string) bool {
	for _, m := range t.Members {
		if m == name {
			return true
		}
	}
	return false
}

// NewTable is the insert payload for a table.
type NewTable struct {
	Title   string      `json:"title" validate:"required,max=200"`
	Context *string     `json:"context,omitempty"`
	Status  TableStatus `json:"status" validate:"oneof=active archived discussed"`
	Members []string    `json:"members"`
	OwnerID uuid.UUID   `json:"owner_id"`
}

// TablePatch is a partial update. Nil fields are left untouched.
// ClearReminder sends an explicit null for next_reminder_date.
type TablePatch struct {
	Title            *string
	Context          *string
	Status           *TableStatus
	Members          []string
	NextReminderDate *time.Time
	ClearReminder    bool
	UpdatedAt        *time.Time
}

// Fields renders the patch as the JSON object sent to the backend.
func (p TablePatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Context != nil {
		out["context"] = *p.Context
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.Members != nil {
		out["members"] = p.Members
	}
	switch {
	case p.ClearReminder:
		out["next_reminder_date"] = nil
	case p.NextReminderDate != nil:
		out["next_reminder_date"] = NewTimestamp(*p.NextReminderDate)
	}
	if p.UpdatedAt != nil {
		out["updated_at"] = NewTimestamp(*p.UpdatedAt)
	}
	return out
}

// DedupeMembers removes duplicates and blank names, keeping first occurrences.
func DedupeMembers(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
