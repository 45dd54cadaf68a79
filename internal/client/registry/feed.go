package registry

import (
	"context"

	"github.com/sherryycxie/tables/internal/client/realtime"
)

type realtimeFeed struct {
	c *realtime.Client
}

// FromRealtime adapts a realtime client to Feed.
func FromRealtime(c *realtime.Client) Feed {
	return realtimeFeed{c: c}
}

func (f realtimeFeed) Subscribe(ctx context.Context, name string, filter realtime.ChangeFilter) (Stream, error) {
	ch, err := f.c.Subscribe(ctx, name, filter)
	if err != nil {
		return nil, err
	}
	return ch, nil
}
