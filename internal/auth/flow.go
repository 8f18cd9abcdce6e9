package auth

import (
	"context"
	"fmt"

	"github.com/justestif/go-spotify-custom-player/internal/logging"
)

// State is a step of the login flow.
type State int

const (
	Unauthenticated State = iota
	AuthorizationRequested
	CallbackPending
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthorizationRequested:
		return "authorization_requested"
	case CallbackPending:
		return "callback_pending"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateOf reports where a session stands given its stored bundle.
func StateOf(bundle *Bundle) State {
	if bundle == nil {
		return Unauthenticated
	}
	return Authenticated
}

// CallbackParams are the values the authorization server sent back, plus the
// state value the browser was given at login.
type CallbackParams struct {
	Code          string
	State         string
	ExpectedState string
	Error         string
}

// Flow drives the authorization-code login.
type Flow struct {
	provider Provider
}

// NewFlow creates a Flow backed by provider.
func NewFlow(provider Provider) *Flow {
	return &Flow{provider: provider}
}

// Begin returns the URL the user follows to grant access. It has no side effects.
func (f *Flow) Begin(ctx context.Context, state string) string {
	logging.FromContext(ctx).Debug("login flow", "state", AuthorizationRequested)
	return f.provider.AuthURL(state)
}

// Complete exchanges the authorization code for a credential bundle. Every
// failure wraps ErrCallbackFailed; on failure nothing should be stored.
func (f *Flow) Complete(ctx context.Context, p CallbackParams) (*Bundle, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("login flow", "state", CallbackPending)

	bundle, err := f.complete(ctx, p)
	if err != nil {
		logger.Warn("login flow", "state", Unauthenticated, "err", err)
		return nil, err
	}

	logger.Debug("login flow", "state", Authenticated)
	return bundle, nil
}

func (f *Flow) complete(ctx context.Context, p CallbackParams) (*Bundle, error) {
	if p.Error != "" {
		return nil, fmt.Errorf("%w: authorization denied: %s", ErrCallbackFailed, p.Error)
	}
	if p.ExpectedState == "" || p.State != p.ExpectedState {
		return nil, fmt.Errorf("%w: state mismatch", ErrCallbackFailed)
	}
	if p.Code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrCallbackFailed)
	}

	token, err := f.provider.Exchange(ctx, p.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging code: %w", ErrCallbackFailed, err)
	}

	bundle := NewBundle(token)
	if bundle == nil || bundle.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrCallbackFailed)
	}
	return bundle, nil
}
