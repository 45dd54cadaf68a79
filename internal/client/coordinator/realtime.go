package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/realtime"
	"github.com/sherryycxie/tables/internal/client/registry"
	"github.com/sherryycxie/tables/internal/common"
)

// startBackground opens the per-user realtime channels and starts the
// notification poll loop. An unreachable realtime endpoint leaves the client
// running on polling alone.
func (c *Coordinator) startBackground(ctx context.Context, s *auth.Session) {
	me := s.User.ID
	if c.registry != nil {
		c.pushToken(ctx, s)
		if err := c.subscribeUser(ctx, me); err != nil {
			c.logger.Warn(ctx, "realtime unavailable, continuing with polling only", "err", err)
			c.registry.UnsubscribeAll(ctx)
		}
	}
	c.queue.Start(ctx, me)
}

func (c *Coordinator) subscribeUser(ctx context.Context, me uuid.UUID) error {
	if err := c.registry.Subscribe(ctx, registry.Tables(me), c.tableChanged); err != nil {
		return err
	}
	if err := c.registry.Subscribe(ctx, registry.Shares(me), c.shareChanged); err != nil {
		return err
	}
	return c.registry.Subscribe(ctx, registry.Notifications(me), c.queue.HandleChange)
}

// tableChanged drops a deleted owned table right away, then refetches.
func (c *Coordinator) tableChanged(ctx context.Context, ch realtime.Change) {
	if ch.Type == realtime.EventDelete {
		var old struct {
			ID uuid.UUID `json:"id"`
		}
		if err := ch.DecodeOld(&old); err == nil && old.ID != uuid.Nil {
			c.RemoveTable(ctx, old.ID)
		}
	}
	c.refreshAfterChange(ctx)
}

// shareChanged drops a table whose share to us was revoked, then refetches.
func (c *Coordinator) shareChanged(ctx context.Context, ch realtime.Change) {
	if ch.Type == realtime.EventDelete {
		var old struct {
			TableID uuid.UUID `json:"table_id"`
		}
		if err := ch.DecodeOld(&old); err == nil && old.TableID != uuid.Nil {
			c.RemoveTable(ctx, old.TableID)
		}
	}
	c.refreshAfterChange(ctx)
}

func (c *Coordinator) refreshAfterChange(ctx context.Context) {
	if err := c.RefreshTables(ctx); err != nil {
		c.logger.Warn(ctx, "refresh tables after change", "err", err)
	}
}

// channelEnded queues a reconnect when a channel drops under us.
func (c *Coordinator) channelEnded(ctx context.Context, in registry.Interest) {
	c.logger.Info(ctx, "realtime channel dropped", "channel", in.Key())
	if err := c.exec.Submit(ctx, func() { c.restoreRealtime(ctx) }); err != nil {
		c.logger.Debug(ctx, "reconnect not queued", "channel", in.Key(), "err", err)
	}
}

// reconnectOnTick retries lost channels from the poll loop. The work runs on
// the executor under a fresh context so restored subscriptions do not inherit
// the loop's context.
func (c *Coordinator) reconnectOnTick(ctx context.Context) {
	if c.registry == nil || len(c.registry.Lost()) == 0 {
		return
	}
	if err := c.exec.Submit(ctx, func() { c.restoreRealtime(context.Background()) }); err != nil {
		c.logger.Debug(ctx, "reconnect not queued", "err", err)
	}
}

// restoreRealtime resubscribes channels that ended on their own. When any
// come back the tables are refetched to cover changes missed while
// disconnected. Failures are retried on the next poll tick.
func (c *Coordinator) restoreRealtime(ctx context.Context) {
	if c.registry == nil || !c.IsAuthenticated() || len(c.registry.Lost()) == 0 {
		return
	}
	n, err := c.registry.Restore(ctx)
	if err != nil {
		c.logger.Warn(ctx, "realtime reconnect failed, retrying on next poll", "err", err)
	}
	if n == 0 {
		return
	}
	c.logger.Info(ctx, "realtime channels restored", "count", n)
	c.refreshAfterChange(ctx)
}

// stopBackground tears down every channel and the poll loop.
func (c *Coordinator) stopBackground(ctx context.Context) {
	if c.registry != nil {
		c.registry.UnsubscribeAll(ctx)
	}
	c.queue.Stop(ctx)
}

// SubscribeCards keeps the cached cards of a table current while it is
// open. onUpdate, if set, runs after each refresh.
func (c *Coordinator) SubscribeCards(ctx context.Context, tableID uuid.UUID, onUpdate func(ctx context.Context)) error {
	if c.registry == nil {
		return fmt.Errorf("subscribe cards: %w", common.ErrUnavailable)
	}
	return c.registry.Subscribe(ctx, registry.Cards(tableID), func(ctx context.Context, _ realtime.Change) {
		if _, err := c.FetchCards(ctx, tableID); err != nil {
			c.logger.Warn(ctx, "refresh cards after change", "table", tableID, "err", err)
			return
		}
		if onUpdate != nil {
			onUpdate(ctx)
		}
	})
}

func (c *Coordinator) UnsubscribeCards(ctx context.Context, tableID uuid.UUID) {
	if c.registry != nil {
		c.registry.Unsubscribe(ctx, registry.Cards(tableID))
	}
}

// SubscribeComments keeps the cached comments of a card current.
func (c *Coordinator) SubscribeComments(ctx context.Context, cardID uuid.UUID, onUpdate func(ctx context.Context)) error {
	if c.registry == nil {
		return fmt.Errorf("subscribe comments: %w", common.ErrUnavailable)
	}
	return c.registry.Subscribe(ctx, registry.Comments(cardID), func(ctx context.Context, _ realtime.Change) {
		if _, err := c.FetchComments(ctx, cardID); err != nil {
			c.logger.Warn(ctx, "refresh comments after change", "card", cardID, "err", err)
			return
		}
		if onUpdate != nil {
			onUpdate(ctx)
		}
	})
}

func (c *Coordinator) UnsubscribeComments(ctx context.Context, cardID uuid.UUID) {
	if c.registry != nil {
		c.registry.Unsubscribe(ctx, registry.Comments(cardID))
	}
}
