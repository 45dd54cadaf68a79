package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherryycxie/tables/internal/common"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"fractional", "2024-03-01T10:20:30.123456+00:00", time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC), false},
		{"whole seconds", "2024-03-01T10:20:30Z", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), false},
		{"offset", "2024-03-01T12:20:30+02:00", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), false},
		{"date only", "2024-03-01", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
		})
	}
}

func TestTable_DecodeWire(t *testing.T) {
	owner := uuid.New()
	raw := `{
		"id": "` + uuid.NewString() + `",
		"title": "Weekly sync",
		"context": null,
		"status": "active",
		"members": ["Ana", "Ben"],
		"next_reminder_date": "2024-05-01T09:00:00Z",
		"owner_id": "` + owner.String() + `",
		"created_at": "2024-04-01T09:00:00.5+00:00",
		"updated_at": "2024-04-02T09:00:00+00:00"
	}`

	var tbl Table
	require.NoError(t, json.Unmarshal([]byte(raw), &tbl))
	assert.Equal(t, "Weekly sync", tbl.Title)
	assert.Nil(t, tbl.Context)
	assert.Equal(t, TableStatusActive, tbl.Status)
	assert.True(t, tbl.IsOwnedBy(owner))
	require.NotNil(t, tbl.NextReminderDate)
	assert.Equal(t, 2024, tbl.NextReminderDate.Year())
	assert.Equal(t, 500*time.Millisecond, time.Duration(tbl.CreatedAt.Nanosecond()))
}

func TestTable_DecodeBadDateFails(t *testing.T) {
	var tbl Table
	err := json.Unmarshal([]byte(`{"created_at":"01/02/2024"}`), &tbl)
	require.Error(t, err)
}

func TestTablePatch_Fields(t *testing.T) {
	title := "New"
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	f := TablePatch{Title: &title, NextReminderDate: &at}.Fields()
	assert.Equal(t, "New", f["title"])
	assert.Equal(t, NewTimestamp(at), f["next_reminder_date"])
	_, hasStatus := f["status"]
	assert.False(t, hasStatus)

	cleared := TablePatch{ClearReminder: true, NextReminderDate: &at}.Fields()
	v, ok := cleared["next_reminder_date"]
	assert.True(t, ok)
	assert.Nil(t, v)

	b, err := json.Marshal(cleared)
	require.NoError(t, err)
	assert.JSONEq(t, `{"next_reminder_date":null}`, string(b))
}

func TestDedupeMembers(t *testing.T) {
	assert.Equal(t, []string{"Ana", "Ben"}, DedupeMembers([]string{"Ana", "", "Ben", "Ana"}))
	assert.Empty(t, DedupeMembers(nil))
}

func TestPayload_ObjectOrString(t *testing.T) {
	id := uuid.NewString()

	var fromObject Notification
	require.NoError(t, json.Unmarshal([]byte(`{"event_type":"table_deleted","payload":{"table_id":"`+id+`","count":2}}`), &fromObject))
	assert.Equal(t, id, fromObject.Payload["table_id"])
	assert.Equal(t, "2", fromObject.Payload["count"])

	var fromString Notification
	encoded, err := json.Marshal(`{"table_id":"` + id + `","table_title":"Plans"}`)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(`{"payload":`+string(encoded)+`}`), &fromString))
	assert.Equal(t, Payload{"table_id": id, "table_title": "Plans"}, fromString.Payload)

	var bad Notification
	require.Error(t, json.Unmarshal([]byte(`{"payload":[1,2]}`), &bad))
}

func TestProfile_FullName(t *testing.T) {
	assert.Equal(t, "Ana Lopez", Profile{FirstName: Ptr("Ana"), LastName: Ptr("Lopez")}.FullName())
	assert.Equal(t, "Ana", Profile{FirstName: Ptr("Ana")}.FullName())
	assert.Equal(t, "Lopez", Profile{LastName: Ptr(" Lopez ")}.FullName())
	assert.Equal(t, "ana_l", Profile{DisplayName: Ptr("ana_l")}.FullName())
	assert.Equal(t, "", Profile{}.FullName())
}

func TestUserLookup_MemberName(t *testing.T) {
	assert.Equal(t, "Ben", UserLookup{UserEmail: "ben@example.org", DisplayName: Ptr("Ben")}.MemberName())
	assert.Equal(t, "ben@example.org", UserLookup{UserEmail: "ben@example.org"}.MemberName())
}

func TestExcerpt_Validation(t *testing.T) {
	short := Excerpt{Text: "   too short   "}.Normalize()
	err := Validate(short)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Contains(t, err.Error(), "at least 20")

	ok := Excerpt{Text: strings.Repeat("a", 25), Question: " why? "}.Normalize()
	require.NoError(t, Validate(ok))
	assert.Equal(t, "Question: why?\n\n"+strings.Repeat("a", 25), ok.CardBody())

	tooLong := Excerpt{Text: strings.Repeat("b", MaxExcerptLength+1)}
	require.Error(t, Validate(tooLong))
}

func TestExcerpt_CardTitle(t *testing.T) {
	at := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "From my Garden · Jun 9, 2024", Excerpt{}.CardTitle(at))
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("ana@example.org"))
	err := ValidateEmail("not-an-email")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestValidate_NewTable(t *testing.T) {
	err := Validate(NewTable{Title: "", Status: TableStatusActive})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "title is required")

	require.NoError(t, Validate(NewTable{Title: "Plans", Status: TableStatusActive}))
}
