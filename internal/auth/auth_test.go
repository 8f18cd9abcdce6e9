package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-custom-player/internal/config"
)

type fakeProvider struct {
	exchangeToken *oauth2.Token
	exchangeErr   error
	refreshToken  *oauth2.Token
	refreshErr    error

	exchanges   int
	refreshes   int
	lastCode    string
	lastRefresh *oauth2.Token
}

func (p *fakeProvider) AuthURL(state string, _ ...oauth2.AuthCodeOption) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	p.exchanges++
	p.lastCode = code
	return p.exchangeToken, p.exchangeErr
}

func (p *fakeProvider) RefreshToken(_ context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	p.refreshes++
	p.lastRefresh = token
	return p.refreshToken, p.refreshErr
}

func TestNewSpotifyProvider_AuthURL(t *testing.T) {
	provider := NewSpotifyProvider(config.SpotifyConfig{
		ClientID:     "client-123",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:8080/callback",
	})

	raw := provider.AuthURL("state-abc")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL() returned unparsable URL %q: %v", raw, err)
	}

	q := u.Query()
	if got := q.Get("client_id"); got != "client-123" {
		t.Errorf("client_id = %q, want %q", got, "client-123")
	}
	if got := q.Get("redirect_uri"); got != "http://127.0.0.1:8080/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	if got := q.Get("state"); got != "state-abc" {
		t.Errorf("state = %q, want %q", got, "state-abc")
	}
	if got := q.Get("scope"); got != strings.Join(Scopes, " ") {
		t.Errorf("scope = %q, want %q", got, strings.Join(Scopes, " "))
	}
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()
	if a == "" || a == b {
		t.Errorf("NewState() returned %q then %q, want distinct non-empty values", a, b)
	}
}

func TestNewBundle(t *testing.T) {
	if NewBundle(nil) != nil {
		t.Error("NewBundle(nil) should be nil")
	}

	expiry := time.Now().Add(time.Hour)
	token := (&oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}).WithExtra(map[string]any{"scope": "user-read-playback-state"})

	b := NewBundle(token)
	if b.AccessToken != "access" || b.RefreshToken != "refresh" || b.TokenType != "Bearer" {
		t.Errorf("NewBundle() = %+v", b)
	}
	if !b.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", b.Expiry, expiry)
	}
	if b.Scope != "user-read-playback-state" {
		t.Errorf("Scope = %q", b.Scope)
	}

	back := b.Token()
	if back.AccessToken != "access" || back.RefreshToken != "refresh" || !back.Expiry.Equal(expiry) {
		t.Errorf("Token() = %+v", back)
	}
}

func TestBundle_Expired(t *testing.T) {
	tests := []struct {
		name   string
		bundle Bundle
		want   bool
	}{
		{"future expiry", Bundle{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, false},
		{"past expiry", Bundle{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}, true},
		{"inside safety margin", Bundle{AccessToken: "a", Expiry: time.Now().Add(2 * time.Second)}, true},
		{"no access token", Bundle{Expiry: time.Now().Add(time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bundle.Expired(); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
