package net

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	bearerTokenType = "Bearer"
	clientTimeout   = 120 * time.Second
)

// GetBearerClient returns a client sending token as a bearer Authorization header.
// A client stored in ctx under oauth2.HTTPClient is used as the base transport.
func GetBearerClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   bearerTokenType,
			AccessToken: token,
		},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = clientTimeout

	return tc
}
