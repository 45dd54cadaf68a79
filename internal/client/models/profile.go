package models

import (
	"strings"

	"github.com/google/uuid"
)

type Profile struct {
	ID                     uuid.UUID  `json:"id"`
	Email                  *string    `json:"email,omitempty"`
	DisplayName            *string    `json:"display_name,omitempty"`
	FirstName              *string    `json:"first_name,omitempty"`
	LastName               *string    `json:"last_name,omitempty"`
	HasCompletedOnboarding *bool      `json:"has_completed_onboarding,omitempty"`
	CreatedAt              *Timestamp `json:"created_at,omitempty"`
}

// FullName prefers "first last", then whichever part is present, then the
// display name.
func (p Profile) FullName() string {
	first := strings.TrimSpace(deref(p.FirstName))
	last := strings.TrimSpace(deref(p.LastName))
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return deref(p.DisplayName)
	}
}

type ProfilePatch struct {
	DisplayName            *string `json:"display_name,omitempty"`
	FirstName              *string `json:"first_name,omitempty"`
	LastName               *string `json:"last_name,omitempty"`
	HasCompletedOnboarding *bool   `json:"has_completed_onboarding,omitempty"`
}

// ComposeDisplayName joins first and last names, trimming blanks.
func ComposeDisplayName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
