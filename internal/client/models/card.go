package models

import "github.com/google/uuid"

type CardStatus string

const (
	CardStatusActive    CardStatus = "active"
	CardStatusDiscussed CardStatus = "discussed"
)

type Card struct {
	ID                 uuid.UUID  `json:"id"`
	TableID            uuid.UUID  `json:"table_id"`
	Title              *string    `json:"title,omitempty"`
	Body               string     `json:"body"`
	LinkURL            *string    `json:"link_url,omitempty"`
	AuthorName         string     `json:"author_name"`
	Status             CardStatus `json:"status"`
	CreatedAt          Timestamp  `json:"created_at"`
	SourceReflectionID *uuid.UUID `json:"source_reflection_id,omitempty"`
	SourcePrompt       *string    `json:"source_prompt,omitempty"`
}

type NewCard struct {
	TableID            uuid.UUID  `json:"table_id"`
	Title              *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Body               string     `json:"body" validate:"required"`
	LinkURL            *string    `json:"link_url,omitempty" validate:"omitempty,url"`
	AuthorName         string     `json:"author_name" validate:"required"`
	Status             CardStatus `json:"status" validate:"oneof=active discussed"`
	SourceReflectionID *uuid.UUID `json:"source_reflection_id,omitempty"`
	SourcePrompt       *string    `json:"source_prompt,omitempty"`
}

type CardPatch struct {
	Title   *string     `json:"title,omitempty"`
	Body    *string     `json:"body,omitempty"`
	LinkURL *string     `json:"link_url,omitempty"`
	Status  *CardStatus `json:"status,omitempty"`
}
