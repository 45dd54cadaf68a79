package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherryycxie/tables/internal/common"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func mintToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type fakeGoTrue struct {
	t        *testing.T
	userID   uuid.UUID
	exp      time.Time
	mu       sync.Mutex
	refreshN int
	failNext bool
	logouts  int
}

func (f *fakeGoTrue) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
		case "refresh_token":
			if f.failNext || body["refresh_token"] == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh Token Not Found"}`))
				return
			}
			f.refreshN++
		}
		f.writeSession(w, body["email"])
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "pending@example.org" {
			_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","email":"pending@example.org"}`))
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writeSession(w, body["email"].(string))
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(f.t, r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (f *fakeGoTrue) writeSession(w http.ResponseWriter, email string) {
	resp := map[string]any{
		"access_token":  mintToken(f.t, f.userID.String(), f.exp),
		"refresh_token": "refresh-" + uuid.NewString(),
		"expires_in":    3600,
	}
	if email != "" {
		resp["user"] = map[string]any{"id": f.userID.String(), "email": email}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestAuth(t *testing.T, now time.Time) (*Client, *fakeGoTrue, *memStore) {
	t.Helper()
	fake := &fakeGoTrue{t: t, userID: uuid.New(), exp: now.Add(time.Hour)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	store := newMemStore()
	c := New(srv.URL, "anon", store, WithClock(func() time.Time { return now }), WithLeeway(0))
	return c, fake, store
}

func TestSignIn_PersistsSession(t *testing.T) {
	now := time.Now()
	c, fake, store := newTestAuth(t, now)
	ctx := context.Background()

	s, err := c.SignIn(ctx, "ana@example.org", "secret")
	require.NoError(t, err)
	assert.Equal(t, fake.userID, s.User.ID)
	assert.Equal(t, "ana@example.org", s.User.Email)
	assert.WithinDuration(t, now.Add(time.Hour), s.ExpiresAt, time.Second)

	raw, _ := store.Get(ctx, sessionKey)
	require.NotNil(t, raw)

	reloaded := New("http://unused", "anon", store)
	got, err := reloaded.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.AccessToken, got.AccessToken)
}

func TestSignIn_BadCredentials(t *testing.T) {
	c, _, _ := newTestAuth(t, time.Now())

	_, err := c.SignIn(context.Background(), "ana@example.org", "wrong")
	require.Error(t, err)
	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "invalid_grant", authErr.Code)
	assert.Equal(t, "Invalid login credentials", authErr.Message)
}

func TestSession_NoSessionIsNotAuthenticated(t *testing.T) {
	c, _, _ := newTestAuth(t, time.Now())

	_, err := c.Session(context.Background())
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestSession_RefreshesExpiredToken(t *testing.T) {
	now := time.Now()
	c, fake, _ := newTestAuth(t, now)
	ctx := context.Background()

	fake.mu.Lock()
	fake.exp = now.Add(-time.Minute)
	fake.mu.Unlock()
	first, err := c.SignIn(ctx, "ana@example.org", "secret")
	require.NoError(t, err)

	fake.mu.Lock()
	fake.exp = now.Add(time.Hour)
	fake.mu.Unlock()

	got, err := c.Session(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, got.AccessToken)
	fake.mu.Lock()
	assert.Equal(t, 1, fake.refreshN)
	fake.mu.Unlock()
	assert.Equal(t, "ana@example.org", got.User.Email, "user survives refresh")
}

func TestRefresh_Failure(t *testing.T) {
	c, fake, _ := newTestAuth(t, time.Now())
	ctx := context.Background()

	_, err := c.SignIn(ctx, "ana@example.org", "secret")
	require.NoError(t, err)

	fake.mu.Lock()
	fake.failNext = true
	fake.mu.Unlock()
	_, err = c.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Refresh Token Not Found")
}

func TestSignUp(t *testing.T) {
	c, _, _ := newTestAuth(t, time.Now())
	ctx := context.Background()

	s, err := c.SignUp(ctx, "new@example.org", "secret", map[string]any{"display_name": "New"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.AccessToken)

	_, err = c.SignUp(ctx, "pending@example.org", "secret", nil)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestSignOut_ForgetsSession(t *testing.T) {
	c, fake, store := newTestAuth(t, time.Now())
	ctx := context.Background()

	_, err := c.SignIn(ctx, "ana@example.org", "secret")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(ctx))
	fake.mu.Lock()
	assert.Equal(t, 1, fake.logouts)
	fake.mu.Unlock()

	raw, _ := store.Get(ctx, sessionKey)
	assert.Nil(t, raw)
	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(5 * time.Second)}
	assert.False(t, s.Expired(now, 0))
	assert.True(t, s.Expired(now, 10*time.Second))
	assert.False(t, (&Session{}).Expired(now, time.Hour))
}

func TestForget_IsLocalOnly(t *testing.T) {
	c, fake, store := newTestAuth(t, time.Now())
	ctx := context.Background()

	_, err := c.SignIn(ctx, "ana@example.org", "secret")
	require.NoError(t, err)

	require.NoError(t, c.Forget(ctx))
	fake.mu.Lock()
	assert.Equal(t, 0, fake.logouts)
	fake.mu.Unlock()

	raw, _ := store.Get(ctx, sessionKey)
	assert.Nil(t, raw)
	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}
