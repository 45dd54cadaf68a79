// Package reminders schedules local table reminders and resolves the deep
// links they carry.
package reminders

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/models"
)

const (
	DeepLinkScheme = "tables"
	idPrefix       = "table-reminder-"

	DefaultBody = "It's time to check in on this table with your collaborators."
)

// Reminder is one scheduled local notification.
type Reminder struct {
	ID       string
	TableID  uuid.UUID
	Title    string
	Body     string
	At       time.Time
	DeepLink string
}

// ReminderID is the scheduler id for a table's reminder. A table has at most
// one.
func ReminderID(tableID uuid.UUID) string {
	return idPrefix + tableID.String()
}

// DeepLink returns tables://table/<id>.
func DeepLink(tableID uuid.UUID) string {
	return DeepLinkScheme + "://table/" + tableID.String()
}

// ParseDeepLink extracts the table id from a tables://table/<id> link.
func ParseDeepLink(link string) (uuid.UUID, error) {
	u, err := url.Parse(link)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse deep link: %w", err)
	}
	if u.Scheme != DeepLinkScheme || u.Host != "table" {
		return uuid.Nil, fmt.Errorf("unsupported deep link %q", link)
	}
	id, err := uuid.Parse(strings.Trim(u.Path, "/"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("deep link table id: %w", err)
	}
	return id, nil
}

// TableReminder builds the reminder for table t firing at at. An empty
// message uses DefaultBody.
func TableReminder(t models.Table, at time.Time, message string) Reminder {
	if strings.TrimSpace(message) == "" {
		message = DefaultBody
	}
	return Reminder{
		ID:       ReminderID(t.ID),
		TableID:  t.ID,
		Title:    "Time to revisit: " + t.Title,
		Body:     message,
		At:       at,
		DeepLink: DeepLink(t.ID),
	}
}
