// Package session wraps remote operations so they run with the current
// access token and survive a single token expiry.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/rest"
	"github.com/sherryycxie/tables/internal/common"
	"github.com/sherryycxie/tables/internal/logging"
)

// TokenSource yields and refreshes sessions. *auth.Client implements it.
type TokenSource interface {
	Session(ctx context.Context) (*auth.Session, error)
	Refresh(ctx context.Context) (*auth.Session, error)
}

// Guard runs operations with the session's access token. When an operation
// fails with common.ErrTokenExpired the guard refreshes once and retries
// once. A failed refresh, or a retry that is still expired, signs the user
// out.
type Guard struct {
	src         TokenSource
	logger      logging.Logger
	onSignedOut func(ctx context.Context)
	onRefreshed func(ctx context.Context, s *auth.Session)
}

type Option func(*Guard)

// OnSignedOut is called when the session can no longer be refreshed.
func OnSignedOut(fn func(ctx context.Context)) Option {
	return func(g *Guard) { g.onSignedOut = fn }
}

// OnRefreshed is called after every successful refresh.
func OnRefreshed(fn func(ctx context.Context, s *auth.Session)) Option {
	return func(g *Guard) { g.onRefreshed = fn }
}

func New(src TokenSource, logger logging.Logger, opts ...Option) *Guard {
	g := &Guard{src: src, logger: logger}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Do runs op. Errors other than token expiry are returned untouched.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	s, err := g.src.Session(ctx)
	if err != nil {
		return g.signOut(ctx, err)
	}

	err = op(rest.WithAccessToken(ctx, s.AccessToken))
	if !errors.Is(err, common.ErrTokenExpired) {
		return err
	}

	g.logger.Info(ctx, "access token expired, refreshing")
	s, err = g.src.Refresh(ctx)
	if err != nil {
		return g.signOut(ctx, err)
	}
	if g.onRefreshed != nil {
		g.onRefreshed(ctx, s)
	}

	err = op(rest.WithAccessToken(ctx, s.AccessToken))
	if errors.Is(err, common.ErrTokenExpired) {
		return g.signOut(ctx, err)
	}
	return err
}

// Run is Do for operations that return a value.
func Run[T any](ctx context.Context, g *Guard, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (g *Guard) signOut(ctx context.Context, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	if errors.Is(cause, common.ErrUnavailable) {
		return cause
	}
	g.logger.Warn(ctx, "session lost, signing out", "err", cause)
	if g.onSignedOut != nil {
		g.onSignedOut(ctx)
	}
	if errors.Is(cause, common.ErrNotAuthenticated) {
		return cause
	}
	return fmt.Errorf("%w: %v", common.ErrNotAuthenticated, cause)
}
