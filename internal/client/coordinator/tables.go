package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/archive"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/client/notify"
	"github.com/sherryycxie/tables/internal/client/reminders"
	"github.com/sherryycxie/tables/internal/common"
)

// RefreshTables replaces the cache with the server's table list, overlaid
// with local archive overrides.
func (c *Coordinator) RefreshTables(ctx context.Context) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	tables, err := runGuarded(ctx, c, c.repos.Tables.List)
	if err != nil {
		return err
	}
	tables = archive.Apply(tables, me, c.overrides)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.user.ID != me {
		return nil
	}
	c.tables = tables
	return nil
}

// RemoveTable drops a table from the cache. Absent ids are ignored.
func (c *Coordinator) RemoveTable(ctx context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOfTable(c.tables, id); i >= 0 {
		c.tables = append(c.tables[:i:i], c.tables[i+1:]...)
		delete(c.cards, id)
		c.logger.Debug(ctx, "table removed from cache", "table", id)
	}
}

// ProcessNotificationEvent applies one cross-user event to the cache.
func (c *Coordinator) ProcessNotificationEvent(ctx context.Context, eventType string, payload models.Payload) error {
	return notify.Dispatch(ctx, c, eventType, payload)
}

// TableInput describes a new table. Members defaults to the caller's author
// name; each invitee email is shared after creation.
type TableInput struct {
	Title    string
	Context  string
	Members  []string
	Invitees []string
}

// CreateTable creates an active table owned by the caller. Invitees that
// cannot be shared with are reported through a *ShareFailures error; the
// returned table is valid in that case.
func (c *Coordinator) CreateTable(ctx context.Context, in TableInput) (models.Table, error) {
	me, err := c.userID()
	if err != nil {
		return models.Table{}, err
	}
	members := models.DedupeMembers(in.Members)
	if len(members) == 0 {
		members = []string{c.authorName()}
	}
	nt := models.NewTable{
		Title:   strings.TrimSpace(in.Title),
		Context: models.OptionalString(strings.TrimSpace(in.Context)),
		Status:  models.TableStatusActive,
		Members: members,
		OwnerID: me,
	}
	if err := models.Validate(nt); err != nil {
		return models.Table{}, err
	}

	created, err := runGuarded(ctx, c, func(ctx context.Context) (models.Table, error) {
		return c.repos.Tables.Create(ctx, nt)
	})
	if err != nil {
		return models.Table{}, err
	}

	c.mu.Lock()
	c.tables = append([]models.Table{created}, c.tables...)
	c.mu.Unlock()

	if err := c.shareWithAll(ctx, created.ID, in.Invitees); err != nil {
		if t, ok := c.Table(created.ID); ok {
			created = t
		}
		return created, err
	}
	if t, ok := c.Table(created.ID); ok {
		created = t
	}
	return created, nil
}

// UpdateTable applies patch and stamps updated_at. Only the owner may change
// the status. Clearing the reminder also cancels the local reminder.
func (c *Coordinator) UpdateTable(ctx context.Context, id uuid.UUID, patch models.TablePatch) (models.Table, error) {
	me, err := c.userID()
	if err != nil {
		return models.Table{}, err
	}
	if patch.Status != nil {
		table, ok := c.Table(id)
		if !ok {
			return models.Table{}, common.ErrTableNotFound
		}
		if !table.IsOwnedBy(me) {
			return models.Table{}, common.ErrNotTableOwner
		}
	}
	if patch.Members != nil {
		patch.Members = models.DedupeMembers(patch.Members)
	}
	now := c.now()
	patch.UpdatedAt = &now

	updated, err := runGuarded(ctx, c, func(ctx context.Context) (models.Table, error) {
		return c.repos.Tables.Update(ctx, id, patch)
	})
	if err != nil {
		return models.Table{}, err
	}
	if patch.ClearReminder {
		c.cancelReminder(id)
	}
	updated = archive.ApplyOne(updated, me, c.overrides)
	c.upsertTable(updated)
	return updated, nil
}

// DeleteTable removes a table the caller owns and tells every collaborator
// with a table_deleted notification.
func (c *Coordinator) DeleteTable(ctx context.Context, id uuid.UUID) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	table, ok := c.Table(id)
	if !ok {
		return common.ErrTableNotFound
	}
	if !table.IsOwnedBy(me) {
		return common.ErrNotTableOwner
	}

	// Shares cascade with the row, so collaborators are read first.
	shares, err := runGuarded(ctx, c, func(ctx context.Context) ([]models.TableShare, error) {
		return c.repos.Shares.ListByTable(ctx, id)
	})
	if err != nil {
		return err
	}
	if err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Tables.Delete(ctx, id)
	}); err != nil {
		return err
	}

	c.cancelReminder(id)
	c.RemoveTable(ctx, id)

	payload := models.Payload{"table_id": id.String(), "table_title": table.Title}
	for _, s := range shares {
		if err := c.queue.Send(ctx, s.SharedWithUserID, models.EventTableDeleted, payload); err != nil {
			c.logger.Warn(ctx, "notify collaborator of deletion", "user", s.SharedWithUserID, "err", err)
		}
	}
	return nil
}

// ArchiveTable archives on the server when the caller owns the table;
// otherwise it hides the table on this device only.
func (c *Coordinator) ArchiveTable(ctx context.Context, id uuid.UUID) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	table, ok := c.Table(id)
	if !ok {
		return common.ErrTableNotFound
	}

	if table.IsOwnedBy(me) {
		status := models.TableStatusArchived
		if _, err := c.UpdateTable(ctx, id, models.TablePatch{Status: &status}); err != nil {
			return err
		}
		c.cancelReminder(id)
		return nil
	}

	if err := c.overrides.Add(ctx, id); err != nil {
		return err
	}
	c.cancelReminder(id)
	c.setStatus(id, models.TableStatusArchived)
	return nil
}

// UnarchiveTable reverses ArchiveTable. For a table the caller does not own
// it reloads the server copy before dropping the local override.
func (c *Coordinator) UnarchiveTable(ctx context.Context, id uuid.UUID) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	table, ok := c.Table(id)
	if !ok {
		return common.ErrTableNotFound
	}

	if table.IsOwnedBy(me) {
		status := models.TableStatusActive
		_, err := c.UpdateTable(ctx, id, models.TablePatch{Status: &status})
		return err
	}

	fresh, err := runGuarded(ctx, c, func(ctx context.Context) (models.Table, error) {
		return c.repos.Tables.Get(ctx, id)
	})
	if err != nil {
		return err
	}
	c.upsertTable(fresh)
	if err := c.overrides.Remove(ctx, id); err != nil {
		return err
	}
	return nil
}

// LeaveSharedTable removes the caller from a table someone else owns.
func (c *Coordinator) LeaveSharedTable(ctx context.Context, id uuid.UUID) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	table, ok := c.Table(id)
	if !ok {
		return common.ErrTableNotFound
	}
	if table.IsOwnedBy(me) {
		return common.ErrCannotLeaveOwnTable
	}

	if err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Shares.Delete(ctx, id, me)
	}); err != nil {
		return err
	}

	name := c.authorName()
	if table.HasMember(name) {
		err := c.guard.Do(ctx, func(ctx context.Context) error {
			return c.repos.Tables.RemoveMember(ctx, id, name)
		})
		if err != nil {
			c.logger.Warn(ctx, "remove own name from members", "table", id, "err", err)
		}
	}

	c.cancelReminder(id)
	c.RemoveTable(ctx, id)
	if c.overrides.Contains(id) {
		if err := c.overrides.Remove(ctx, id); err != nil {
			c.logger.Warn(ctx, "drop archive override", "table", id, "err", err)
		}
	}
	return nil
}

// Reminder message defaults.
const (
	nudgeReminderMessage = "Time to check in with your collaborators!"
	selfReminderMessage  = "You set a reminder to revisit this table."
)

// SetReminder stores the next reminder date, optionally nudges everyone on
// the table, and schedules the local reminder.
func (c *Coordinator) SetReminder(ctx context.Context, id uuid.UUID, at time.Time, nudgeEveryone bool) (models.Table, error) {
	if !at.After(c.now()) {
		return models.Table{}, fmt.Errorf("%w: reminder date must be in the future", common.ErrValidation)
	}
	updated, err := c.UpdateTable(ctx, id, models.TablePatch{NextReminderDate: &at})
	if err != nil {
		return models.Table{}, err
	}

	message := selfReminderMessage
	if nudgeEveryone {
		message = nudgeReminderMessage
		if _, err := c.SendNudge(ctx, id, "Nudge: revisit "+updated.Title); err != nil {
			c.logger.Warn(ctx, "send reminder nudge", "table", id, "err", err)
		}
	}

	if c.reminders != nil {
		if err := c.reminders.Schedule(ctx, reminders.TableReminder(updated, at, message)); err != nil {
			c.logger.Warn(ctx, "schedule reminder", "table", id, "err", err)
		}
	}
	return updated, nil
}

// ClearReminder removes the reminder date and the local reminder.
func (c *Coordinator) ClearReminder(ctx context.Context, id uuid.UUID) (models.Table, error) {
	return c.UpdateTable(ctx, id, models.TablePatch{ClearReminder: true})
}

// touchTable bumps updated_at after a child write. Failures are logged.
func (c *Coordinator) touchTable(ctx context.Context, id uuid.UUID) {
	me, err := c.userID()
	if err != nil {
		return
	}
	now := c.now()
	updated, err := runGuarded(ctx, c, func(ctx context.Context) (models.Table, error) {
		return c.repos.Tables.Update(ctx, id, models.TablePatch{UpdatedAt: &now})
	})
	if err != nil {
		if !errors.Is(err, common.ErrNotAuthenticated) {
			c.logger.Warn(ctx, "touch table", "table", id, "err", err)
		}
		return
	}
	c.upsertTable(archive.ApplyOne(updated, me, c.overrides))
}

func (c *Coordinator) cancelReminder(id uuid.UUID) {
	if c.reminders != nil {
		c.reminders.CancelTable(id)
	}
}

// upsertTable replaces the cached copy of t, or adds it, keeping the list
// ordered by updated_at.
func (c *Coordinator) upsertTable(t models.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOfTable(c.tables, t.ID); i >= 0 {
		c.tables[i] = t
	} else {
		c.tables = append(c.tables, t)
	}
	sortTables(c.tables)
}

func (c *Coordinator) setStatus(id uuid.UUID, status models.TableStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOfTable(c.tables, id); i >= 0 {
		c.tables[i].Status = status
	}
}
