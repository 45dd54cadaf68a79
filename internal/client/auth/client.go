// Package auth is a client for a GoTrue-style authentication API. It keeps
// the current session in memory, persists it through a Storage, and refreshes
// the access token with the stored refresh token.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sherryycxie/tables/internal/common"
)

const (
	authPath   = "/auth/v1"
	sessionKey = "auth.session"
)

// Storage persists the session between runs. metadata.Repository satisfies it.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	store   Storage
	now     func() time.Time
	leeway  time.Duration

	mu      sync.Mutex
	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLeeway refreshes tokens this long before they actually expire.
func WithLeeway(d time.Duration) Option {
	return func(c *Client) { c.leeway = d }
}

func New(baseURL, apiKey string, store Storage, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		now:     time.Now,
		leeway:  10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SignUp creates an account. data is stored as user metadata. When the
// backend requires email confirmation no session is returned and the error
// wraps common.ErrNotAuthenticated.
func (c *Client) SignUp(ctx context.Context, email, password string, data map[string]any) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}
	var resp tokenResponse
	if err := c.post(ctx, "/signup", "", body, "", &resp); err != nil {
		return nil, err
	}
	s := resp.session(c.now())
	if s == nil {
		return nil, fmt.Errorf("%w: confirm %s before signing in", common.ErrNotAuthenticated, email)
	}
	if err := c.setSession(ctx, s); err != nil {
		return nil, err
	}
	return s.clone(), nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/token", "password", body, "", &resp); err != nil {
		return nil, err
	}
	s := resp.session(c.now())
	if s == nil {
		return nil, fmt.Errorf("sign in: empty session")
	}
	if err := c.setSession(ctx, s); err != nil {
		return nil, err
	}
	return s.clone(), nil
}

// SignOut revokes the session on the server (best effort) and forgets it
// locally.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	var remoteErr error
	if s != nil {
		remoteErr = c.post(ctx, "/logout", "", nil, s.AccessToken, nil)
	}
	if err := c.Forget(ctx); err != nil {
		return err
	}
	return remoteErr
}

// Forget drops the session from memory and storage without calling the
// server. It is used when the session is already unusable.
func (c *Client) Forget(ctx context.Context) error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	if err := c.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return nil
}

// Session returns the current session, loading it from storage on first use
// and refreshing it when the access token has expired.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		s, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.session = s
	}
	if c.session.Expired(c.now(), c.leeway) {
		if err := c.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	return c.session.clone(), nil
}

// Refresh exchanges the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		s, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.session = s
	}
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.session.clone(), nil
}

func (c *Client) refreshLocked(ctx context.Context) error {
	if c.session == nil || c.session.RefreshToken == "" {
		return common.ErrNotAuthenticated
	}
	var resp tokenResponse
	body := map[string]string{"refresh_token": c.session.RefreshToken}
	if err := c.post(ctx, "/token", "refresh_token", body, "", &resp); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	s := resp.session(c.now())
	if s == nil {
		return fmt.Errorf("refresh session: empty session")
	}
	if s.User.ID == uuid.Nil {
		s.User = c.session.User
	}
	c.session = s
	return c.save(ctx, s)
}

func (c *Client) setSession(ctx context.Context, s *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	return c.save(ctx, s)
}

func (c *Client) load(ctx context.Context) (*Session, error) {
	data, err := c.store.Get(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(data) == 0 {
		return nil, common.ErrNotAuthenticated
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (c *Client) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.store.Set(ctx, sessionKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, grantType string, body any, bearer string, out any) error {
	url := c.baseURL + authPath + path
	if grantType != "" {
		url += "?grant_type=" + grantType
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.APIKeyHeaderName, c.apiKey)
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *Session) clone() *Session {
	cp := *s
	return &cp
}
