package models

import "github.com/google/uuid"

type Comment struct {
	ID         uuid.UUID `json:"id"`
	CardID     uuid.UUID `json:"card_id"`
	Body       string    `json:"body"`
	AuthorName string    `json:"author_name"`
	CreatedAt  Timestamp `json:"created_at"`
}

type NewComment struct {
	CardID     uuid.UUID `json:"card_id"`
	Body       string    `json:"body" validate:"required,max=4000"`
	AuthorName string    `json:"author_name" validate:"required"`
}

type Nudge struct {
	ID         uuid.UUID `json:"id"`
	TableID    uuid.UUID `json:"table_id"`
	Message    *string   `json:"message,omitempty"`
	AuthorName string    `json:"author_name"`
	CreatedAt  Timestamp `json:"created_at"`
}

type NewNudge struct {
	TableID    uuid.UUID `json:"table_id"`
	Message    *string   `json:"message,omitempty"`
	AuthorName string    `json:"author_name" validate:"required"`
}
