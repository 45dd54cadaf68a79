package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Phoenix channel events used by the realtime service.
const (
	eventJoin        = "phx_join"
	eventLeave       = "phx_leave"
	eventReply       = "phx_reply"
	eventError       = "phx_error"
	eventClose       = "phx_close"
	eventHeartbeat   = "heartbeat"
	eventAccessToken = "access_token"
	eventChanges     = "postgres_changes"

	heartbeatTopic = "phoenix"
	topicPrefix    = "realtime:"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// ChangeFilter selects row changes for one channel. Filter uses the
// "column=eq.value" form; empty means every row of Table.
type ChangeFilter struct {
	Event  EventType `json:"event"`
	Schema string    `json:"schema"`
	Table  string    `json:"table"`
	Filter string    `json:"filter,omitempty"`
}

// Change is one row change delivered on a channel.
type Change struct {
	Type            EventType       `json:"type"`
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Record          json.RawMessage `json:"record"`
	OldRecord       json.RawMessage `json:"old_record"`
	CommitTimestamp string          `json:"commit_timestamp"`
}

// Decode unmarshals the new row into v.
func (c Change) Decode(v any) error {
	if absent(c.Record) {
		return fmt.Errorf("change has no record")
	}
	return json.Unmarshal(c.Record, v)
}

// DecodeOld unmarshals the previous row into v. Deletes carry only this.
func (c Change) DecodeOld(v any) error {
	if absent(c.OldRecord) {
		return fmt.Errorf("change has no old record")
	}
	return json.Unmarshal(c.OldRecord, v)
}

// absent reports whether raw is missing or JSON null.
func absent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

type joinConfig struct {
	Broadcast       broadcastConfig `json:"broadcast"`
	Presence        presenceConfig  `json:"presence"`
	PostgresChanges []ChangeFilter  `json:"postgres_changes"`
}

type broadcastConfig struct {
	Self bool `json:"self"`
	Ack  bool `json:"ack"`
}

type presenceConfig struct {
	Key string `json:"key"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changesPayload struct {
	Data Change `json:"data"`
}
