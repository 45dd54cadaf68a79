package registry

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/realtime"
)

// Kind names a category of change the client listens to.
type Kind string

const (
	KindTables        Kind = "tables"
	KindShares        Kind = "shares"
	KindCards         Kind = "cards"
	KindComments      Kind = "comments"
	KindNotifications Kind = "notifications"
)

// Interest is a kind plus the id it is scoped to: the current user for
// tables, shares and notifications; a table for cards; a card for comments.
type Interest struct {
	Kind Kind
	ID   uuid.UUID
}

func Tables(userID uuid.UUID) Interest        { return Interest{Kind: KindTables, ID: userID} }
func Shares(userID uuid.UUID) Interest        { return Interest{Kind: KindShares, ID: userID} }
func Cards(tableID uuid.UUID) Interest        { return Interest{Kind: KindCards, ID: tableID} }
func Comments(cardID uuid.UUID) Interest      { return Interest{Kind: KindComments, ID: cardID} }
func Notifications(userID uuid.UUID) Interest { return Interest{Kind: KindNotifications, ID: userID} }

// Key is the channel name; at most one live subscription exists per key.
func (i Interest) Key() string {
	switch i.Kind {
	case KindTables:
		return "tables-changes-" + i.ID.String()
	case KindShares:
		return "table-shares-changes-" + i.ID.String()
	case KindCards:
		return "cards-" + i.ID.String()
	case KindComments:
		return "comments-" + i.ID.String()
	case KindNotifications:
		return "user-notifications-" + i.ID.String()
	default:
		return fmt.Sprintf("%s-%s", i.Kind, i.ID)
	}
}

// Filter is the row filter for the interest.
func (i Interest) Filter() realtime.ChangeFilter {
	var table, column string
	switch i.Kind {
	case KindTables:
		table, column = "tables", "owner_id"
	case KindShares:
		table, column = "table_shares", "shared_with_user_id"
	case KindCards:
		table, column = "cards", "table_id"
	case KindComments:
		table, column = "comments", "card_id"
	case KindNotifications:
		return realtime.ChangeFilter{
			Event:  realtime.EventInsert,
			Schema: "public",
			Table:  "realtime_notifications",
			Filter: "user_id=eq." + i.ID.String(),
		}
	}
	return realtime.ChangeFilter{
		Event:  realtime.EventAll,
		Schema: "public",
		Table:  table,
		Filter: column + "=eq." + i.ID.String(),
	}
}
