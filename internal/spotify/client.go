// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// ErrPlaybackQueryFailed is returned when a Spotify API read fails.
var ErrPlaybackQueryFailed = errors.New("spotify query failed")

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewForToken creates a client that sends tok as-is. The token source never
// refreshes; an expired token surfaces as an API error.
func NewForToken(ctx context.Context, tok *oauth2.Token, opts ...spotify.ClientOption) *Client {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	return New(spotify.New(httpClient, opts...))
}

// DisplayName returns the current user's Spotify display name, falling back
// to the user ID when the profile has none.
func (c *Client) DisplayName(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: getting current user: %w", ErrPlaybackQueryFailed, err)
	}
	if user.DisplayName == "" {
		return user.ID, nil
	}
	return user.DisplayName, nil
}

// IsUnauthorized reports whether err came from Spotify rejecting the access
// token, as opposed to a transport or server failure.
func IsUnauthorized(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	return false
}
