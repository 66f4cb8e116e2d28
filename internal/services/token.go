package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/dejavu/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	// earlyRefresh is how long before expiry a cached token is treated as stale.
	earlyRefresh = 60 * time.Second
)

// TokenCache is a process-wide client-credentials token shared by concurrent callers.
//
// The token is fetched lazily on first use and refreshed once it is within [earlyRefresh] of expiry.
// Refreshes are serialized, so concurrent first use results in a single token request.
type TokenCache struct {
	src oauth2.TokenSource
}

// fetchSource requests a new token on every call; caching is left to the wrapping reuse source.
type fetchSource struct {
	ctx  context.Context
	conf *clientcredentials.Config
}

func (f *fetchSource) Token() (*oauth2.Token, error) {
	return f.conf.Token(f.ctx)
}

// NewTokenCache creates a token cache for the given client credentials.
//
// tokenURL defaults to the Spotify accounts endpoint and client defaults to [http.DefaultClient].
func NewTokenCache(clientID, clientSecret, tokenURL string, client *http.Client) (*TokenCache, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)

	return &TokenCache{
		src: oauth2.ReuseTokenSourceWithExpiry(nil, &fetchSource{ctx: ctx, conf: conf}, earlyRefresh),
	}, nil
}

// Token returns a valid access token and the time after which it will no longer be served from cache.
func (c *TokenCache) Token(ctx context.Context) (string, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, err
	}

	tok, err := c.src.Token()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	validUntil := tok.Expiry
	if !validUntil.IsZero() {
		validUntil = validUntil.Add(-earlyRefresh)
	}
	return tok.AccessToken, validUntil, nil
}
