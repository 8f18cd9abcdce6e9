package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-custom-player/internal/logging"
)

// Resolution is the outcome of [Lifecycle.Resolve]. When Refreshed is true,
// Bundle replaces the one the caller passed in and must be written back to
// the session before the credential is used.
type Resolution struct {
	Bundle    *Bundle
	Refreshed bool
}

// Lifecycle turns a stored bundle into a usable credential, refreshing it
// when it has expired.
type Lifecycle struct {
	provider Provider
}

// NewLifecycle creates a Lifecycle that refreshes tokens through provider.
func NewLifecycle(provider Provider) *Lifecycle {
	return &Lifecycle{provider: provider}
}

// Resolve returns a bundle whose access token is valid now.
//
// A nil bundle yields ErrNoCredential. A valid bundle is returned unchanged.
// An expired bundle gets exactly one refresh attempt; any failure yields an
// error wrapping ErrAuthExpired and the caller is expected to end the session.
func (l *Lifecycle) Resolve(ctx context.Context, bundle *Bundle) (Resolution, error) {
	if bundle == nil {
		return Resolution{}, ErrNoCredential
	}
	if !bundle.Expired() {
		return Resolution{Bundle: bundle}, nil
	}

	logger := logging.FromContext(ctx)
	if bundle.RefreshToken == "" {
		return Resolution{}, fmt.Errorf("%w: no refresh token", ErrAuthExpired)
	}

	logger.Debug("access token expired, refreshing", "expiry", bundle.Expiry)

	// An empty access token forces the token source to hit the token endpoint.
	token, err := l.provider.RefreshToken(ctx, &oauth2.Token{
		RefreshToken: bundle.RefreshToken,
		TokenType:    bundle.TokenType,
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrAuthExpired, err)
	}

	fresh := NewBundle(token)
	if fresh == nil || fresh.Expired() {
		return Resolution{}, fmt.Errorf("%w: provider returned an unusable token", ErrAuthExpired)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = bundle.RefreshToken
	}
	if fresh.Scope == "" {
		fresh.Scope = bundle.Scope
	}

	logger.Debug("access token refreshed", "expiry", fresh.Expiry)
	return Resolution{Bundle: fresh, Refreshed: true}, nil
}
