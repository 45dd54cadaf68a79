package realtime

import (
	"context"
	"strings"
	"sync"
)

// Channel is one joined topic.
type Channel struct {
	c      *Client
	topic  string
	events chan Change
	done   chan struct{}
	once   sync.Once
}

func newChannel(c *Client, topic string) *Channel {
	return &Channel{c: c, topic: topic, events: make(chan Change, 32), done: make(chan struct{})}
}

// Name is the channel name without the realtime prefix.
func (ch *Channel) Name() string {
	return strings.TrimPrefix(ch.topic, topicPrefix)
}

// Changes streams row changes. It is never closed; select on Done as well.
func (ch *Channel) Changes() <-chan Change {
	return ch.events
}

// Done is closed when the channel is left or the connection drops.
func (ch *Channel) Done() <-chan struct{} {
	return ch.done
}

// Unsubscribe leaves the channel. Calling it more than once is harmless.
func (ch *Channel) Unsubscribe(ctx context.Context) error {
	err := ch.c.leave(ctx, ch.topic)
	ch.end()
	return err
}

func (ch *Channel) deliver(ctx context.Context, change Change) {
	select {
	case ch.events <- change:
	case <-ch.done:
	case <-ctx.Done():
	}
}

func (ch *Channel) end() {
	ch.once.Do(func() { close(ch.done) })
}
