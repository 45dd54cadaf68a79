// Package realtime is a client for a Phoenix-channel change feed over
// WebSocket. Each Subscribe joins one channel that streams row changes for a
// table, optionally narrowed by a column filter.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sherryycxie/tables/internal/logging"
)

// ErrNotConnected is returned when a push is attempted without a connection.
var ErrNotConnected = errors.New("realtime: not connected")

type Client struct {
	endpoint    string
	logger      logging.Logger
	heartbeat   time.Duration
	joinTimeout time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	token    string
	ref      uint64
	channels map[string]*Channel
	pending  map[string]chan replyPayload
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type Option func(*Client)

// WithHeartbeat sets the heartbeat interval. The default is 25s.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// WithJoinTimeout bounds how long Subscribe waits for the join reply.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Client) { c.joinTimeout = d }
}

// New derives the websocket endpoint from the project's base URL.
func New(baseURL, apiKey string, logger logging.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	u.Path += "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	c := &Client{
		endpoint:    u.String(),
		logger:      logger.With("component", "realtime"),
		heartbeat:   25 * time.Second,
		joinTimeout: 10 * time.Second,
		channels:    map[string]*Channel{},
		pending:     map[string]chan replyPayload{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Connect dials the endpoint if there is no live connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.Dial(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.readLoop(runCtx, conn)
	}()
	go func() {
		defer c.wg.Done()
		c.heartbeatLoop(runCtx)
	}()

	c.logger.Info(ctx, "connected")
	return nil
}

// Connected reports whether a connection is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SetAuth stores the access token used for future joins and pushes it to
// every joined channel.
func (c *Client) SetAuth(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	topics := make([]string, 0, len(c.channels))
	for topic := range c.channels {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	var errs []error
	for _, topic := range topics {
		if _, err := c.push(ctx, topic, eventAccessToken, map[string]string{"access_token": token}, ""); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe joins a channel named name that streams changes matching f.
func (c *Client) Subscribe(ctx context.Context, name string, f ChangeFilter) (*Channel, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if f.Event == "" {
		f.Event = EventAll
	}
	if f.Schema == "" {
		f.Schema = "public"
	}

	topic := topicPrefix + name
	ch := newChannel(c, topic)

	c.mu.Lock()
	if _, ok := c.channels[topic]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("realtime: channel %s already joined", name)
	}
	c.channels[topic] = ch
	token := c.token
	c.mu.Unlock()

	payload := joinPayload{
		Config:      joinConfig{PostgresChanges: []ChangeFilter{f}},
		AccessToken: token,
	}
	replies := make(chan replyPayload, 1)
	ref, err := c.push(ctx, topic, eventJoin, payload, "", replies)
	if err != nil {
		c.forget(topic, ref)
		return nil, err
	}

	timer := time.NewTimer(c.joinTimeout)
	defer timer.Stop()
	select {
	case r := <-replies:
		if r.Status != "ok" {
			c.forget(topic, ref)
			return nil, fmt.Errorf("realtime: join %s rejected: %s", name, string(r.Response))
		}
	case <-timer.C:
		c.forget(topic, ref)
		return nil, fmt.Errorf("realtime: join %s timed out", name)
	case <-ctx.Done():
		c.forget(topic, ref)
		return nil, ctx.Err()
	}

	c.logger.Debug(ctx, "joined channel", "topic", topic)
	return ch, nil
}

// Close leaves the connection and ends every channel.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	channels := c.channels
	c.channels = map[string]*Channel{}
	c.mu.Unlock()

	for _, ch := range channels {
		ch.end()
	}
	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "")
	}
	c.wg.Wait()
	return err
}

func (c *Client) push(ctx context.Context, topic, event string, payload any, joinRef string, replies ...chan replyPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", event, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.ref++
	ref := strconv.FormatUint(c.ref, 10)
	if len(replies) > 0 {
		c.pending[ref] = replies[0]
	}
	c.mu.Unlock()

	if conn == nil {
		return ref, ErrNotConnected
	}
	if event == eventJoin {
		joinRef = ref
	}
	msg := message{Topic: topic, Event: event, Payload: body, Ref: ref, JoinRef: joinRef}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		return ref, fmt.Errorf("realtime write %s: %w", event, err)
	}
	return ref, nil
}

func (c *Client) forget(topic, ref string) {
	c.mu.Lock()
	ch := c.channels[topic]
	delete(c.channels, topic)
	delete(c.pending, ref)
	c.mu.Unlock()
	if ch != nil {
		ch.end()
	}
}

func (c *Client) leave(ctx context.Context, topic string) error {
	c.mu.Lock()
	_, joined := c.channels[topic]
	delete(c.channels, topic)
	c.mu.Unlock()
	if !joined {
		return nil
	}
	_, err := c.push(ctx, topic, eventLeave, struct{}{}, "")
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var m message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn(ctx, "connection lost", "err", err)
			}
			c.dropConnection(conn)
			return
		}
		c.route(ctx, m)
	}
}

func (c *Client) route(ctx context.Context, m message) {
	switch m.Event {
	case eventReply:
		c.mu.Lock()
		replies, ok := c.pending[m.Ref]
		delete(c.pending, m.Ref)
		c.mu.Unlock()
		if !ok {
			return
		}
		var r replyPayload
		if err := json.Unmarshal(m.Payload, &r); err != nil {
			r = replyPayload{Status: "error", Response: m.Payload}
		}
		replies <- r

	case eventChanges:
		ch := c.channel(m.Topic)
		if ch == nil {
			return
		}
		var p changesPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			c.logger.Warn(ctx, "bad change payload", "topic", m.Topic, "err", err)
			return
		}
		ch.deliver(ctx, p.Data)

	case eventError, eventClose:
		c.mu.Lock()
		ch := c.channels[m.Topic]
		delete(c.channels, m.Topic)
		c.mu.Unlock()
		if ch != nil {
			c.logger.Warn(ctx, "channel closed by server", "topic", m.Topic, "event", m.Event)
			ch.end()
		}
	}
}

func (c *Client) channel(topic string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[topic]
}

func (c *Client) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	channels := c.channels
	c.channels = map[string]*Channel{}
	c.pending = map[string]chan replyPayload{}
	c.mu.Unlock()

	for _, ch := range channels {
		ch.end()
	}
	_ = conn.Close(websocket.StatusGoingAway, "")
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := c.push(ctx, heartbeatTopic, eventHeartbeat, struct{}{}, ""); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn(ctx, "heartbeat failed", "err", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
