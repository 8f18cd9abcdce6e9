// Package session keeps per-browser state on the server: the Spotify
// credential bundle and the player preferences.
//
// The browser only carries an opaque random token in the session_id cookie;
// the state itself lives in a pluggable store (files, PostgreSQL, Redis or
// memory) driven by scs.
package session

import (
	"context"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/justestif/go-spotify-custom-player/internal/auth"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session_id"

	keyBundle      = "token_info"
	keyPreferences = "preferences"
)

func init() {
	gob.Register(auth.Bundle{})
	gob.Register(Preferences{})
}

// Size is the player layout preference.
type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
)

// ParseSize maps a submitted value to a Size. Only "large" selects the large
// layout; everything else, including an empty value, is small.
func ParseSize(raw string) Size {
	if raw == string(SizeLarge) {
		return SizeLarge
	}
	return SizeSmall
}

// Preferences are the user's choices for the custom player page.
type Preferences struct {
	ImageURL string
	Size     Size
}

// Options tune the session cookie and lifetime.
type Options struct {
	Lifetime    time.Duration
	IdleTimeout time.Duration
	Secure      bool
}

// Manager reads and writes typed session values. All methods expect a
// request context that went through [Manager.LoadAndSave].
type Manager struct {
	sm *scs.SessionManager
}

// NewManager creates a Manager persisting sessions in store.
func NewManager(store scs.Store, opts Options) *Manager {
	sm := scs.New()
	sm.Store = store
	if opts.Lifetime > 0 {
		sm.Lifetime = opts.Lifetime
	}
	sm.IdleTimeout = opts.IdleTimeout
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = opts.Secure
	sm.Cookie.Path = "/"

	return &Manager{sm: sm}
}

// LoadAndSave loads the session for each request and commits changes before
// the response is written.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

// Bundle returns the stored credential, or nil when the user has not logged in.
func (m *Manager) Bundle(ctx context.Context) *auth.Bundle {
	b, ok := m.sm.Get(ctx, keyBundle).(auth.Bundle)
	if !ok {
		return nil
	}
	return &b
}

// PutBundle replaces the stored credential.
func (m *Manager) PutBundle(ctx context.Context, b *auth.Bundle) {
	if b == nil {
		m.sm.Remove(ctx, keyBundle)
		return
	}
	m.sm.Put(ctx, keyBundle, *b)
}

// Preferences returns the stored player preferences. Missing preferences read
// as a small layout with no background image.
func (m *Manager) Preferences(ctx context.Context) Preferences {
	p, ok := m.sm.Get(ctx, keyPreferences).(Preferences)
	if !ok {
		return Preferences{Size: SizeSmall}
	}
	p.Size = ParseSize(string(p.Size))
	return p
}

// PutPreferences replaces the stored player preferences.
func (m *Manager) PutPreferences(ctx context.Context, p Preferences) {
	m.sm.Put(ctx, keyPreferences, p)
}

// Renew issues a new session token while keeping the data. Call it when the
// privilege level changes, i.e. right after login.
func (m *Manager) Renew(ctx context.Context) error {
	return m.sm.RenewToken(ctx)
}

// Clear destroys the session and expires the cookie.
func (m *Manager) Clear(ctx context.Context) error {
	return m.sm.Destroy(ctx)
}
