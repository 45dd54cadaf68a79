package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Notification event types.
const (
	EventTableDeleted = "table_deleted"
	EventShareCreated = "share_created"
	EventMemberAdded  = "member_added"
)

// Payload is the string map carried by a notification envelope. The backend
// may deliver it as a JSON object or as a JSON-encoded string.
type Payload map[string]string

func (p *Payload) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = nil
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return fmt.Errorf("decode payload string: %w", err)
		}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("payload is not an object")
	}
	out := make(Payload, len(obj))
	for k, v := range obj {
		switch value := v.(type) {
		case string:
			out[k] = value
		case nil:
		default:
			out[k] = fmt.Sprint(value)
		}
	}
	*p = out
	return nil
}

// Notification is a durable envelope addressed to one user.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	EventType string     `json:"event_type"`
	Payload   Payload    `json:"payload"`
	Processed bool       `json:"processed"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

type NewNotification struct {
	UserID    uuid.UUID `json:"user_id"`
	EventType string    `json:"event_type" validate:"required"`
	Payload   Payload   `json:"payload"`
}
