package models

import "github.com/google/uuid"

type ReflectionType string

const (
	ReflectionQuickWin ReflectionType = "quick_win"
	ReflectionDeep     ReflectionType = "deep_reflection"
)

// Reflection is a private journal entry. It is only ever shared by copying
// its content into a new Card.
type Reflection struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Body           string         `json:"body"`
	Prompt         *string        `json:"prompt,omitempty"`
	ReflectionType ReflectionType `json:"reflection_type"`
	CreatedAt      Timestamp      `json:"created_at"`
	UpdatedAt      Timestamp      `json:"updated_at"`
}

type NewReflection struct {
	UserID         uuid.UUID      `json:"user_id"`
	Body           string         `json:"body" validate:"required"`
	Prompt         *string        `json:"prompt,omitempty"`
	ReflectionType ReflectionType `json:"reflection_type" validate:"oneof=quick_win deep_reflection"`
}

type ReflectionPatch struct {
	Body           *string         `json:"body,omitempty"`
	Prompt         *string         `json:"prompt,omitempty"`
	ReflectionType *ReflectionType `json:"reflection_type,omitempty"`
	UpdatedAt      *Timestamp      `json:"updated_at,omitempty"`
}
