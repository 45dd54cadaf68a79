package coordinator

import (
	"context"
	"strings"
	"unicode"

	"github.com/sherryycxie/tables/internal/client/models"
)

const (
	searchLimit     = 10
	fallbackNewName = "User"
)

// UpdateProfile stores a new first and last name and renames the caller in
// the member lists of cached tables. The rename guesses which member entries
// are old names of the caller; it is best-effort and per-table failures are
// logged.
func (c *Coordinator) UpdateProfile(ctx context.Context, first, last string) (models.Profile, error) {
	me, err := c.userID()
	if err != nil {
		return models.Profile{}, err
	}
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	newName := profileDisplayName(first, last)

	c.mu.RLock()
	var current models.Profile
	if c.profile != nil {
		current = *c.profile
	}
	var email string
	if c.user != nil {
		email = c.user.Email
	}
	var members []string
	for _, t := range c.tables {
		members = append(members, t.Members...)
	}
	c.mu.RUnlock()
	oldNames := renameCandidates(current, email, members, newName)

	patch := models.ProfilePatch{DisplayName: &newName, FirstName: &first, LastName: &last}
	updated, err := runGuarded(ctx, c, func(ctx context.Context) (models.Profile, error) {
		return c.repos.Profiles.Update(ctx, me, patch)
	})
	if err != nil {
		return models.Profile{}, err
	}
	c.mu.Lock()
	c.profile = &updated
	c.mu.Unlock()

	c.renameMember(ctx, oldNames, newName)
	if err := c.RefreshTables(ctx); err != nil {
		c.logger.Warn(ctx, "refresh tables after rename", "err", err)
	}
	return updated, nil
}

func (c *Coordinator) renameMember(ctx context.Context, oldNames map[string]struct{}, newName string) {
	for _, t := range c.Tables() {
		members, changed := replaceMembers(t.Members, oldNames, newName)
		if !changed {
			continue
		}
		err := c.guard.Do(ctx, func(ctx context.Context) error {
			_, err := c.repos.Tables.Update(ctx, t.ID, models.TablePatch{Members: members})
			return err
		})
		if err != nil {
			c.logger.Warn(ctx, "rename member", "table", t.ID, "err", err)
			continue
		}
		c.mu.Lock()
		if i := indexOfTable(c.tables, t.ID); i >= 0 {
			c.tables[i].Members = members
		}
		c.mu.Unlock()
	}
}

// profileDisplayName is "first last", or whichever is set, or "User".
func profileDisplayName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return fallbackNewName
	}
}

// renameCandidates returns the lowercased names that may stand for the
// caller in member lists: the current profile names, the email, its handle
// with and without digits, and any member that resembles the handle.
func renameCandidates(p models.Profile, email string, members []string, newName string) map[string]struct{} {
	out := map[string]struct{}{}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out[strings.ToLower(s)] = struct{}{}
		}
	}
	if p.DisplayName != nil {
		add(*p.DisplayName)
	}
	add(p.FullName())
	if p.FirstName != nil {
		add(*p.FirstName)
	}
	if p.LastName != nil {
		add(*p.LastName)
	}

	handle, _, _ := strings.Cut(email, "@")
	if email != "" {
		add(email)
	}
	if handle == "" {
		return out
	}
	add(handle)
	add(strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, handle))

	lowerHandle := strings.ToLower(handle)
	prefix := lowerHandle
	if r := []rune(prefix); len(r) > 4 {
		prefix = string(r[:4])
	}
	lowerNew := strings.ToLower(newName)
	for _, m := range members {
		lm := strings.ToLower(strings.TrimSpace(m))
		if lm == "" || lm == lowerNew {
			continue
		}
		if strings.HasPrefix(lm, prefix) || strings.Contains(lowerHandle, lm) || strings.Contains(lm, lowerHandle) {
			out[lm] = struct{}{}
		}
	}
	return out
}

// replaceMembers swaps every member found in oldNames (case-insensitive) for
// newName and dedupes the result.
func replaceMembers(members []string, oldNames map[string]struct{}, newName string) ([]string, bool) {
	out := make([]string, len(members))
	changed := false
	for i, m := range members {
		if _, ok := oldNames[strings.ToLower(m)]; ok {
			out[i] = newName
			changed = true
			continue
		}
		out[i] = m
	}
	if !changed {
		return members, false
	}
	return models.DedupeMembers(out), true
}

// CompleteOnboarding records that the caller finished onboarding. The local
// flag is set even when the server write fails.
func (c *Coordinator) CompleteOnboarding(ctx context.Context) error {
	me, err := c.userID()
	if err != nil {
		return err
	}
	done := true
	_, err = runGuarded(ctx, c, func(ctx context.Context) (models.Profile, error) {
		return c.repos.Profiles.Update(ctx, me, models.ProfilePatch{HasCompletedOnboarding: &done})
	})
	c.mu.Lock()
	c.onboarded = true
	if c.profile != nil {
		c.profile.HasCompletedOnboarding = &done
	}
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn(ctx, "mark onboarding complete", "err", err)
	}
	return err
}

// SearchUsers finds up to ten other users by email or name.
func (c *Coordinator) SearchUsers(ctx context.Context, query string) ([]models.Profile, error) {
	me, err := c.userID()
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return runGuarded(ctx, c, func(ctx context.Context) ([]models.Profile, error) {
		return c.repos.Profiles.Search(ctx, strings.ToLower(query), me, searchLimit)
	})
}
