package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/archive"
	"github.com/sherryycxie/tables/internal/client/models"
	"github.com/sherryycxie/tables/internal/common"
)

// ShareFailure is one invitee that could not be added.
type ShareFailure struct {
	Email string
	Err   error
}

// ShareFailures lists the invitees a multi-invite could not reach. The rest
// were shared.
type ShareFailures struct {
	Failures []ShareFailure
}

func (e *ShareFailures) Error() string {
	return "could not share with " + strings.Join(e.Emails(), ", ")
}

// Emails returns the failed addresses in invite order.
func (e *ShareFailures) Emails() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Email
	}
	return out
}

func (e *ShareFailures) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}

func (c *Coordinator) shareWithAll(ctx context.Context, tableID uuid.UUID, emails []string) error {
	var failures []ShareFailure
	seen := map[string]struct{}{}
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if err := c.ShareTable(ctx, tableID, email); err != nil {
			c.logger.Warn(ctx, "share with invitee", "table", tableID, "email", email, "err", err)
			failures = append(failures, ShareFailure{Email: email, Err: err})
		}
	}
	if len(failures) > 0 {
		return &ShareFailures{Failures: failures}
	}
	return nil
}

// ShareTable grants the account behind email write access and adds its name
// to the members. The name shows in the cache at once and is then replaced
// by the server copy of the table; on failure the provisional name is
// withdrawn.
func (c *Coordinator) ShareTable(ctx context.Context, tableID uuid.UUID, email string) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	if err := models.ValidateEmail(email); err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	target, err := runGuarded(ctx, c, func(ctx context.Context) (models.UserLookup, error) {
		return c.repos.Shares.FindUserByEmail(ctx, email)
	})
	if err != nil {
		return err
	}
	name := target.MemberName()
	if name == "" {
		name = email
	}

	provisional := c.addProvisionalMember(tableID, name)

	err = c.guard.Do(ctx, func(ctx context.Context) error {
		_, err := c.repos.Shares.Create(ctx, models.NewTableShare{
			TableID:          tableID,
			SharedWithUserID: target.UserID,
			Permission:       models.DefaultSharePermission,
		})
		return err
	})
	if err != nil {
		c.withdrawProvisionalMember(tableID, name, provisional)
		return err
	}

	err = c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Tables.AddMember(ctx, tableID, name)
	})
	if err != nil {
		c.withdrawProvisionalMember(tableID, name, provisional)
		if errors.Is(err, common.ErrNotAuthenticated) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrMemberUpdateFailed, err)
	}

	fresh, err := runGuarded(ctx, c, func(ctx context.Context) (models.Table, error) {
		return c.repos.Tables.Get(ctx, tableID)
	})
	if err != nil {
		c.logger.Warn(ctx, "reload shared table", "table", tableID, "err", err)
		return nil
	}
	c.upsertTable(archive.ApplyOne(fresh, me, c.overrides))
	return nil
}

// RemoveShare revokes a collaborator's access and drops their name from the
// members.
func (c *Coordinator) RemoveShare(ctx context.Context, tableID, userID uuid.UUID) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	if err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.repos.Shares.Delete(ctx, tableID, userID)
	}); err != nil {
		return err
	}

	profile, err := runGuarded(ctx, c, func(ctx context.Context) (models.Profile, error) {
		return c.repos.Profiles.Get(ctx, userID)
	})
	if err != nil {
		c.logger.Warn(ctx, "look up removed collaborator", "user", userID, "err", err)
	} else if name := memberNameOf(profile); name != "" {
		err := c.guard.Do(ctx, func(ctx context.Context) error {
			return c.repos.Tables.RemoveMember(ctx, tableID, name)
		})
		if err != nil {
			c.logger.Warn(ctx, "remove collaborator name", "table", tableID, "err", err)
		}
	}

	fresh, err := runGuarded(ctx, c, func(ctx context.Context) (models.Table, error) {
		return c.repos.Tables.Get(ctx, tableID)
	})
	if err != nil {
		c.logger.Warn(ctx, "reload table after unshare", "table", tableID, "err", err)
		return nil
	}
	c.upsertTable(archive.ApplyOne(fresh, me, c.overrides))
	return nil
}

// FetchShares lists the collaborators of a table.
func (c *Coordinator) FetchShares(ctx context.Context, tableID uuid.UUID) ([]models.TableShare, error) {
	return runGuarded(ctx, c, func(ctx context.Context) ([]models.TableShare, error) {
		return c.repos.Shares.ListByTable(ctx, tableID)
	})
}

// memberNameOf is the name a share added for this profile.
func memberNameOf(p models.Profile) string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	if p.Email != nil {
		return *p.Email
	}
	return ""
}

func (c *Coordinator) addProvisionalMember(tableID uuid.UUID, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOfTable(c.tables, tableID)
	if i < 0 || c.tables[i].HasMember(name) {
		return false
	}
	t := c.tables[i]
	t.Members = append(append([]string(nil), t.Members...), name)
	c.tables[i] = t
	return true
}

func (c *Coordinator) withdrawProvisionalMember(tableID uuid.UUID, name string, added bool) {
	if !added {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOfTable(c.tables, tableID)
	if i < 0 {
		return
	}
	t := c.tables[i]
	members := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m != name {
			members = append(members, m)
		}
	}
	t.Members = members
	c.tables[i] = t
}
