// Package archive reconciles the server-side table status with the
// device-local archive overrides a collaborator keeps for tables they do not
// own.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// StorageKey is the metadata key holding the override set.
const StorageKey = "localArchivedTableIds"

// Store is the device-local key/value storage the overrides persist to.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Overrides is the persisted set of locally archived table ids. All writes go
// through one mutex and are saved before they become visible.
type Overrides struct {
	store Store

	mu  sync.RWMutex
	ids map[uuid.UUID]struct{}
}

func NewOverrides(store Store) *Overrides {
	return &Overrides{store: store, ids: map[uuid.UUID]struct{}{}}
}

// Load replaces the in-memory set with the persisted one. Unparseable ids are
// skipped.
func (o *Overrides) Load(ctx context.Context) error {
	raw, err := o.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load archive overrides: %w", err)
	}

	ids := map[uuid.UUID]struct{}{}
	if len(raw) > 0 {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("decode archive overrides: %w", err)
		}
		for _, s := range list {
			if id, err := uuid.Parse(s); err == nil {
				ids[id] = struct{}{}
			}
		}
	}

	o.mu.Lock()
	o.ids = ids
	o.mu.Unlock()
	return nil
}

func (o *Overrides) Contains(id uuid.UUID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.ids[id]
	return ok
}

func (o *Overrides) Add(ctx context.Context, id uuid.UUID) error {
	return o.update(ctx, func(ids map[uuid.UUID]struct{}) { ids[id] = struct{}{} })
}

func (o *Overrides) Remove(ctx context.Context, id uuid.UUID) error {
	return o.update(ctx, func(ids map[uuid.UUID]struct{}) { delete(ids, id) })
}

// IDs returns the set as a sorted slice.
func (o *Overrides) IDs() []uuid.UUID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return sortedIDs(o.ids)
}

func (o *Overrides) update(ctx context.Context, mutate func(map[uuid.UUID]struct{})) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := make(map[uuid.UUID]struct{}, len(o.ids)+1)
	for id := range o.ids {
		next[id] = struct{}{}
	}
	mutate(next)

	ids := sortedIDs(next)
	list := make([]string, len(ids))
	for i, id := range ids {
		list[i] = id.String()
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode archive overrides: %w", err)
	}
	if err := o.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save archive overrides: %w", err)
	}

	o.ids = next
	return nil
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
