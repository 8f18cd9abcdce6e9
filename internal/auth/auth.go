// Package auth manages the Spotify OAuth2 credential for a browser session:
// the authorization-code login flow and lazy refresh of expired access tokens.
//
// The OAuth protocol itself is delegated to a [Provider], normally the
// zmb3/spotify authenticator. Nothing in this package reads or writes session
// state; callers persist the [Bundle] values it returns.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-custom-player/internal/config"
)

// Scopes is the fixed set of permissions requested at login.
var Scopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadPlaybackState,
}

var (
	// ErrNoCredential is returned when the session holds no credential bundle.
	ErrNoCredential = errors.New("no credential in session")

	// ErrAuthExpired is returned when an expired access token could not be refreshed.
	ErrAuthExpired = errors.New("credential expired and could not be refreshed")

	// ErrCallbackFailed is returned when the OAuth callback could not be turned into a credential.
	ErrCallbackFailed = errors.New("oauth callback failed")
)

// Provider is the external OAuth collaborator. *spotifyauth.Authenticator
// satisfies it.
type Provider interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// NewSpotifyProvider creates the Spotify authenticator for the configured client.
func NewSpotifyProvider(cfg config.SpotifyConfig) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURI),
		spotifyauth.WithScopes(Scopes...),
	)
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}

var _ Provider = (*spotifyauth.Authenticator)(nil)
