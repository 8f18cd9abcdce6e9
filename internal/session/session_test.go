package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-spotify-custom-player/internal/auth"
	"github.com/justestif/go-spotify-custom-player/internal/config"
	"github.com/justestif/go-spotify-custom-player/internal/logging"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		raw  string
		want Size
	}{
		{"large", SizeLarge},
		{"small", SizeSmall},
		{"", SizeSmall},
		{"LARGE", SizeSmall},
		{"huge", SizeSmall},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSize(tt.raw))
		})
	}
}

// newTestServer exposes the Manager operations as routes so the cookie
// round trip runs through the real middleware.
func newTestServer(t *testing.T, opts Options) (*Manager, *httptest.Server) {
	t.Helper()
	m := NewManager(memstore.New(), opts)

	mux := http.NewServeMux()
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		m.PutBundle(r.Context(), &auth.Bundle{
			AccessToken:  "secret-access",
			RefreshToken: "secret-refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		})
		m.PutPreferences(r.Context(), Preferences{ImageURL: "https://img.example.com/a.png", Size: SizeLarge})
	})
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		b := m.Bundle(r.Context())
		if b == nil {
			http.Error(w, "none", http.StatusNotFound)
			return
		}
		p := m.Preferences(r.Context())
		w.Write([]byte(b.AccessToken + "|" + p.ImageURL + "|" + string(p.Size)))
	})
	mux.HandleFunc("/renew", func(w http.ResponseWriter, r *http.Request) {
		if err := m.Renew(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/clear", func(w http.ResponseWriter, r *http.Request) {
		if err := m.Clear(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	srv := httptest.NewServer(m.LoadAndSave(mux))
	t.Cleanup(srv.Close)
	return m, srv
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func get(t *testing.T, url string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestManager_RoundTrip(t *testing.T) {
	_, srv := newTestServer(t, Options{Lifetime: time.Hour})

	resp := get(t, srv.URL+"/put", nil)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie, "expected a session cookie")

	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.NotContains(t, cookie.Value, "secret-access")
	assert.NotContains(t, cookie.Value, "secret-refresh")

	resp = get(t, srv.URL+"/get", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "secret-access|https://img.example.com/a.png|large", readBody(t, resp))
}

func TestManager_SecureCookie(t *testing.T) {
	_, srv := newTestServer(t, Options{Lifetime: time.Hour, Secure: true})

	resp := get(t, srv.URL+"/put", nil)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestManager_NoSession(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	resp := get(t, srv.URL+"/get", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = get(t, srv.URL+"/get", &http.Cookie{Name: CookieName, Value: "forged"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestManager_Renew(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	old := sessionCookie(t, get(t, srv.URL+"/put", nil))
	require.NotNil(t, old)

	renewed := sessionCookie(t, get(t, srv.URL+"/renew", old))
	require.NotNil(t, renewed)
	assert.NotEqual(t, old.Value, renewed.Value)

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/get", renewed).StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/get", old).StatusCode)
}

func TestManager_Clear(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	cookie := sessionCookie(t, get(t, srv.URL+"/put", nil))
	require.NotNil(t, cookie)

	resp := get(t, srv.URL+"/clear", cookie)
	cleared := sessionCookie(t, resp)
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0, "cookie should be expired")

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/get", cookie).StatusCode)
}

func TestManager_DefaultPreferences(t *testing.T) {
	m := NewManager(memstore.New(), Options{})

	var got Preferences
	h := m.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = m.Preferences(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, Preferences{Size: SizeSmall}, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		b, err := Open(ctx, config.SessionConfig{Backend: config.BackendFile, Dir: t.TempDir()})
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &FileStore{}, b.Store)
	})

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, config.SessionConfig{Backend: config.BackendMemory})
		require.NoError(t, err)
		defer b.Close()
		assert.NotNil(t, b.Store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, config.SessionConfig{Backend: "etcd"})
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestBackend_Sweep(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(context.Background(), config.SessionConfig{Backend: config.BackendFile, Dir: dir})
	require.NoError(t, err)
	defer b.Close()

	store := b.Store.(*FileStore)
	require.NoError(t, store.Commit("stale", []byte("x"), time.Now().Add(-time.Minute)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Sweep(ctx, 10*time.Millisecond, logging.Discard())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(store.Path("stale"))
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
