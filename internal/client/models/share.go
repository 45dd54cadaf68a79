package models

import "github.com/google/uuid"

const DefaultSharePermission = "write"

type TableShare struct {
	ID               uuid.UUID `json:"id"`
	TableID          uuid.UUID `json:"table_id"`
	SharedWithUserID uuid.UUID `json:"shared_with_user_id"`
	Permission       string    `json:"permission"`
	CreatedAt        Timestamp `json:"created_at"`
}

type NewTableShare struct {
	TableID          uuid.UUID `json:"table_id"`
	SharedWithUserID uuid.UUID `json:"shared_with_user_id"`
	Permission       string    `json:"permission" validate:"oneof=read write"`
}

// UserLookup is a row returned by the find_user_by_email function.
type UserLookup struct {
	UserID      uuid.UUID `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	DisplayName *string   `json:"display_name,omitempty"`
}

// MemberName is the name added to a table's member list for this user.
func (u UserLookup) MemberName() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.UserEmail
}
