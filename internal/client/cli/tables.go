package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/sherryycxie/tables/internal/client/coordinator"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/reminders"
)

// ListTables refreshes and prints the visible tables, numbered for later
// commands.
func (a *App) ListTables(ctx context.Context) error {
	if err := a.svc.RefreshTables(ctx); err != nil {
		a.report(ctx, "refresh tables", err)
	}
	tables := a.svc.Tables()
	a.lastTables = tables
	if len(tables) == 0 {
		a.println("No tables yet. Use 'create' to start one.")
		return nil
	}
	me := uuid.Nil
	if u := a.svc.CurrentUser(); u != nil {
		me = u.ID
	}
	for i, t := range tables {
		a.println(a.tableLine(i+1, t, me))
	}
	return nil
}

func (a *App) tableLine(n int, t models.Table, me uuid.UUID) string {
	var tags []string
	if t.Status != models.TableStatusActive {
		tags = append(tags, string(t.Status))
	}
	if !t.IsOwnedBy(me) {
		tags = append(tags, "shared")
		if a.svc.IsLocallyArchived(t.ID) {
			tags = append(tags, "hidden")
		}
	}
	if t.NextReminderDate != nil {
		tags = append(tags, "remind "+formatTime(t.NextReminderDate.Time))
	}
	line := fmt.Sprintf("%2d. %s  %s  %s", n, a.style.title.Render(t.Title),
		a.style.dim.Render("["+shortID(t.ID)+"]"), strings.Join(t.Members, ", "))
	if len(tags) > 0 {
		line += "  " + a.style.tag.Render("("+strings.Join(tags, "; ")+")")
	}
	return line
}

// CreateTable prompts for a new table and its invitees.
func (a *App) CreateTable(ctx context.Context, args []string) error {
	title, err := a.argOrAsk(args, "Title")
	if err != nil {
		return err
	}
	topic, err := a.ask("What do you want to talk about? (optional)")
	if err != nil {
		return err
	}
	invitees, err := a.ask("Invite by email, comma separated (optional)")
	if err != nil {
		return err
	}

	t, err := a.svc.CreateTable(ctx, coordinator.TableInput{
		Title:    title,
		Context:  topic,
		Invitees: SplitList(invitees),
	})
	if err != nil && t.ID == uuid.Nil {
		return a.report(ctx, "create table", err)
	}
	a.println("Created table", t.Title, "["+shortID(t.ID)+"]")
	return a.report(ctx, "create table", err)
}

// Share shares a table with one email.
func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "share", usage("share <table> [email]"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "share", err)
	}
	email, err := a.argOrAsk(args[1:], "Email to share with")
	if err != nil {
		return err
	}
	if err := a.svc.ShareTable(ctx, t.ID, email); err != nil {
		return a.report(ctx, "share", err)
	}
	a.println("Shared", t.Title, "with", email)
	return nil
}

// Unshare lists the table's shares and removes the chosen one.
func (a *App) Unshare(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "unshare", usage("unshare <table>"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "unshare", err)
	}
	shares, err := a.svc.FetchShares(ctx, t.ID)
	if err != nil {
		return a.report(ctx, "unshare", err)
	}
	if len(shares) == 0 {
		a.println("This table is not shared with anyone.")
		return nil
	}
	for i, s := range shares {
		a.printf("%2d. %s (%s)\n", i+1, s.SharedWithUserID, s.Permission)
	}
	answer, err := a.ask("Remove which share?")
	if err != nil {
		return err
	}
	var n int
	if _, err := fmt.Sscanf(answer, "%d", &n); err != nil || n < 1 || n > len(shares) {
		return a.report(ctx, "unshare", fmt.Errorf("%w: share %q", errNoSelection, answer))
	}
	if err := a.svc.RemoveShare(ctx, t.ID, shares[n-1].SharedWithUserID); err != nil {
		return a.report(ctx, "unshare", err)
	}
	a.println("Share removed.")
	return nil
}

func (a *App) Archive(ctx context.Context, args []string) error {
	return a.tableAction(ctx, "archive", args, "", a.svc.ArchiveTable, "Archived")
}

func (a *App) Unarchive(ctx context.Context, args []string) error {
	return a.tableAction(ctx, "unarchive", args, "", a.svc.UnarchiveTable, "Restored")
}

// Delete removes a table for everyone after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	return a.tableAction(ctx, "delete", args, "Delete this table for everyone?", a.svc.DeleteTable, "Deleted")
}

// Leave removes the caller from a shared table after confirmation.
func (a *App) Leave(ctx context.Context, args []string) error {
	return a.tableAction(ctx, "leave", args, "Leave this table?", a.svc.LeaveSharedTable, "Left")
}

func (a *App) tableAction(ctx context.Context, op string, args []string, confirm string,
	fn func(context.Context, uuid.UUID) error, done string) error {
	if len(args) == 0 {
		return a.report(ctx, op, usage(op+" <table>"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, op, err)
	}
	if confirm != "" && !a.confirm(fmt.Sprintf("%q: %s", t.Title, confirm)) {
		a.println("Cancelled.")
		return nil
	}
	if err := fn(ctx, t.ID); err != nil {
		return a.report(ctx, op, err)
	}
	a.println(done, t.Title)
	return nil
}

// Remind sets or clears a table reminder. The time is a duration from now
// ("2h"), an RFC 3339 time, a phrase ("tomorrow at 9am") or "clear". A
// trailing "everyone" also nudges the other members.
func (a *App) Remind(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.report(ctx, "remind", usage("remind <table> <duration|RFC3339|phrase|clear> [everyone]"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "remind", err)
	}
	if args[1] == "clear" {
		if _, err := a.svc.ClearReminder(ctx, t.ID); err != nil {
			return a.report(ctx, "clear reminder", err)
		}
		a.println("Reminder cleared for", t.Title)
		return nil
	}
	whenArgs := args[1:]
	everyone := len(whenArgs) > 1 && whenArgs[len(whenArgs)-1] == "everyone"
	if everyone {
		whenArgs = whenArgs[:len(whenArgs)-1]
	}
	at, err := parseWhen(strings.Join(whenArgs, " "), a.now())
	if err != nil {
		return a.report(ctx, "remind", usage("remind <table> <duration|RFC3339|phrase|clear> [everyone]"))
	}
	if _, err := a.svc.SetReminder(ctx, t.ID, at, everyone); err != nil {
		return a.report(ctx, "set reminder", err)
	}
	a.println("Reminder set for", formatTime(at))
	return nil
}

// ListReminders prints the reminders scheduled on this device, soonest first.
func (a *App) ListReminders(ctx context.Context) error {
	var pending []reminders.Reminder
	if a.alarms != nil {
		pending = a.alarms.Pending()
	}
	if len(pending) == 0 {
		a.println("No reminders scheduled.")
		return nil
	}
	for _, r := range pending {
		a.printf("%s  %s\n  %s\n", formatTime(r.At), r.Title, a.style.dim.Render(r.DeepLink))
	}
	return nil
}

// Open shows a table and its cards. It takes anything 'cards' does, or the
// tables:// link a reminder carries.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "open", usage("open <table|link>"))
	}
	ref := args[0]
	if strings.HasPrefix(ref, reminders.DeepLinkScheme+"://") {
		id, err := reminders.ParseDeepLink(ref)
		if err != nil {
			return a.report(ctx, "open", usage("open <table|link>"))
		}
		if _, ok := a.svc.Table(id); !ok {
			if err := a.svc.RefreshTables(ctx); err != nil {
				return a.report(ctx, "open", err)
			}
		}
		ref = id.String()
	}
	t, err := a.resolveTable(ref)
	if err != nil {
		return a.report(ctx, "open", err)
	}

	a.println(a.style.title.Render(t.Title))
	if a.alarms != nil && a.alarms.HasPending(reminders.ReminderID(t.ID)) {
		if t.NextReminderDate != nil {
			a.println("Reminder at", formatTime(t.NextReminderDate.Time))
		} else {
			a.println("Reminder pending")
		}
	}
	return a.ListCards(ctx, []string{t.ID.String()})
}

var naturalTime = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseWhen accepts a duration from now, an RFC 3339 time or an English
// phrase such as "tomorrow at 9am".
func parseWhen(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	r, err := naturalTime.Parse(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("cannot understand %q", s)
	}
	return r.Time, nil
}

// Nudge sends a nudge to everyone on a table.
func (a *App) Nudge(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "nudge", usage("nudge <table> [message]"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "nudge", err)
	}
	if _, err := a.svc.SendNudge(ctx, t.ID, strings.Join(args[1:], " ")); err != nil {
		return a.report(ctx, "nudge", err)
	}
	a.println("Nudged everyone on", t.Title)
	return nil
}

// Watch prints card updates for a table as they arrive.
func (a *App) Watch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "watch", usage("watch <table>"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "watch", err)
	}
	title := t.Title
	err = a.svc.SubscribeCards(ctx, t.ID, func(context.Context) {
		a.printf("\n[%s] cards updated\n", title)
	})
	if err != nil {
		return a.report(ctx, "watch", err)
	}
	a.watching[t.ID] = struct{}{}
	a.println("Watching", t.Title)
	return nil
}

func (a *App) Unwatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "unwatch", usage("unwatch <table>"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "unwatch", err)
	}
	a.svc.UnsubscribeCards(ctx, t.ID)
	delete(a.watching, t.ID)
	a.println("Stopped watching", t.Title)
	return nil
}
