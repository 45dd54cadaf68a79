package rest

import "context"

type accessTokenKey struct{}

// WithAccessToken returns a context whose REST calls carry token as the
// bearer credential, replacing any token already present.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the token set by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}
