package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/rest"
	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

type fakeSource struct {
	token      string
	sessionErr error
	refreshErr error
	refreshes  int
}

func (f *fakeSource) Session(context.Context) (*auth.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &auth.Session{AccessToken: f.token}, nil
}

func (f *fakeSource) Refresh(context.Context) (*auth.Session, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.token = "fresh"
	return &auth.Session{AccessToken: f.token}, nil
}

func tokenOf(ctx context.Context) string {
	tok, _ := rest.AccessTokenFromContext(ctx)
	return tok
}

func TestDo_SuccessUsesCurrentToken(t *testing.T) {
	src := &fakeSource{token: "current"}
	g := New(src, logging.NewNop())

	var seen []string
	err := g.Do(context.Background(), func(ctx context.Context) error {
		seen = append(seen, tokenOf(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"current"}, seen)
	assert.Zero(t, src.refreshes)
}

func TestDo_RefreshesOnceAndRetriesOnce(t *testing.T) {
	src := &fakeSource{token: "stale"}
	var refreshed string
	g := New(src, logging.NewNop(), OnRefreshed(func(_ context.Context, s *auth.Session) { refreshed = s.AccessToken }))

	var seen []string
	err := g.Do(context.Background(), func(ctx context.Context) error {
		seen = append(seen, tokenOf(ctx))
		if tokenOf(ctx) == "stale" {
			return &rest.APIError{Status: 401, Code: "PGRST301", Message: "JWT expired"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale", "fresh"}, seen)
	assert.Equal(t, 1, src.refreshes)
	assert.Equal(t, "fresh", refreshed)
}

func TestDo_AtMostOneRetry(t *testing.T) {
	src := &fakeSource{token: "stale"}
	signedOut := 0
	g := New(src, logging.NewNop(), OnSignedOut(func(context.Context) { signedOut++ }))

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &rest.APIError{Status: 401, Code: "PGRST301", Message: "JWT expired"}
	})
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, src.refreshes)
	assert.Equal(t, 1, signedOut)
}

func TestDo_RefreshFailureSignsOut(t *testing.T) {
	src := &fakeSource{token: "stale", refreshErr: errors.New("invalid_grant")}
	signedOut := 0
	g := New(src, logging.NewNop(), OnSignedOut(func(context.Context) { signedOut++ }))

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return common.ErrTokenExpired
	})
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, signedOut)
}

func TestDo_OtherErrorsPropagateWithoutRetry(t *testing.T) {
	src := &fakeSource{token: "t"}
	g := New(src, logging.NewNop())

	boom := errors.New("boom")
	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, src.refreshes)
}

func TestDo_NoSession(t *testing.T) {
	src := &fakeSource{sessionErr: common.ErrNotAuthenticated}
	signedOut := false
	g := New(src, logging.NewNop(), OnSignedOut(func(context.Context) { signedOut = true }))

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.False(t, called)
	assert.True(t, signedOut)
}

func TestDo_UnavailableDoesNotSignOut(t *testing.T) {
	src := &fakeSource{token: "stale", refreshErr: common.ErrUnavailable}
	signedOut := false
	g := New(src, logging.NewNop(), OnSignedOut(func(context.Context) { signedOut = true }))

	err := g.Do(context.Background(), func(context.Context) error { return common.ErrTokenExpired })
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.False(t, signedOut)
}

func TestRun_ReturnsValue(t *testing.T) {
	g := New(&fakeSource{token: "t"}, logging.NewNop())

	n, err := Run(context.Background(), g, func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Run(context.Background(), g, func(ctx context.Context) (string, error) { return "", errors.New("x") })
	require.Error(t, err)
}
