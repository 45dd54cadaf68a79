package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is the identity attached to a session.
type User struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is a signed-in user's token pair.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is expired at now, treating
// tokens within leeway of expiry as expired.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}

// tokenResponse is the body of the signup and token endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

func (r tokenResponse) session(now time.Time) *Session {
	if r.AccessToken == "" {
		return nil
	}
	s := &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    tokenExpiry(r.AccessToken),
	}
	if s.ExpiresAt.IsZero() {
		switch {
		case r.ExpiresAt > 0:
			s.ExpiresAt = time.Unix(r.ExpiresAt, 0)
		case r.ExpiresIn > 0:
			s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
		}
	}
	if r.User != nil {
		s.User = *r.User
	}
	return s
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend verifies tokens, the client only needs to know when to refresh.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
