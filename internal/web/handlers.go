package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-custom-player/internal/auth"
	"github.com/justestif/go-spotify-custom-player/internal/imagecheck"
	"github.com/justestif/go-spotify-custom-player/internal/logging"
	"github.com/justestif/go-spotify-custom-player/internal/session"
	"github.com/justestif/go-spotify-custom-player/internal/spotify"
	"github.com/justestif/go-spotify-custom-player/internal/view"
)

const (
	stateCookieName = "oauth_state"

	// DefaultArt is shown when the current track has no album image.
	DefaultArt = "/static/default.svg"

	invalidImageMessage = "Invalid image URL. Please try again."
	rateLimitedMessage  = "Too many uploads. Please wait a minute and try again."
)

// Player reads what the signed-in user is listening to.
type Player interface {
	CurrentTrack(ctx context.Context) (spotify.Track, error)
	DisplayName(ctx context.Context) (string, error)
}

// PlayerFactory builds a Player that authenticates with tok.
type PlayerFactory func(ctx context.Context, tok *oauth2.Token) Player

// SpotifyPlayers is the PlayerFactory backed by the Spotify Web API.
func SpotifyPlayers(ctx context.Context, tok *oauth2.Token) Player {
	return spotify.NewForToken(ctx, tok)
}

// HandlersConfig holds the collaborators of Handlers.
type HandlersConfig struct {
	Flow          *auth.Flow
	Lifecycle     *auth.Lifecycle
	Sessions      *session.Manager
	Validator     *imagecheck.Validator
	Players       PlayerFactory
	Templates     *Templates
	SecureCookies bool
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	flow          *auth.Flow
	lifecycle     *auth.Lifecycle
	sessions      *session.Manager
	validator     *imagecheck.Validator
	players       PlayerFactory
	templates     *Templates
	secureCookies bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		flow:          cfg.Flow,
		lifecycle:     cfg.Lifecycle,
		sessions:      cfg.Sessions,
		validator:     cfg.Validator,
		players:       cfg.Players,
		templates:     cfg.Templates,
		secureCookies: cfg.SecureCookies,
	}
}

// Home greets the signed-in user (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.credential(r)
	if err != nil {
		h.redirectToLogin(w, r)
		return
	}

	name, err := h.players(r.Context(), bundle.Token()).DisplayName(r.Context())
	if err != nil {
		h.playbackFailed(w, r, err)
		h.redirectToLogin(w, r)
		return
	}

	h.render(w, r, http.StatusOK, "home", HomePageData{
		PageData: h.pageData(r, "Home", true),
		Name:     name,
	})
}

// Login renders the sign-in page with the Spotify authorization link (GET /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	h.render(w, r, http.StatusOK, "signin", SignInPageData{
		PageData: h.pageData(r, "Sign in", false),
		AuthURL:  h.flow.Begin(r.Context(), state),
	})
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	var expected string
	if c, err := r.Cookie(stateCookieName); err == nil {
		expected = c.Value
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		MaxAge:   -1,
	})

	q := r.URL.Query()
	bundle, err := h.flow.Complete(r.Context(), auth.CallbackParams{
		Code:          q.Get("code"),
		State:         q.Get("state"),
		ExpectedState: expected,
		Error:         q.Get("error"),
	})
	if err != nil {
		h.redirectToLogin(w, r)
		return
	}

	if err := h.sessions.Renew(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("renewing session token", "err", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.sessions.PutBundle(r.Context(), bundle)

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Signout clears the session and redirects to home (GET /signout).
func (h *Handlers) Signout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("clearing session", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// UploadForm renders the background image form (GET /upload).
func (h *Handlers) UploadForm(w http.ResponseWriter, r *http.Request) {
	prefs := h.sessions.Preferences(r.Context())
	h.render(w, r, http.StatusOK, "upload", UploadPageData{
		PageData: h.pageData(r, "Background", h.sessions.Bundle(r.Context()) != nil),
		URL:      prefs.ImageURL,
		Size:     prefs.Size,
	})
}

// Upload validates and stores a background image (POST /upload).
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	rawURL := r.PostFormValue("url")
	rawSize := r.PostFormValue("size")

	err := h.validator.ValidateAndStore(r.Context(), h.sessions, rawURL, rawSize)
	if err != nil {
		logging.FromContext(r.Context()).Info("rejected background image", "err", err)
		h.renderUploadError(w, r, http.StatusUnprocessableEntity, invalidImageMessage, rawURL, rawSize)
		return
	}

	http.Redirect(w, r, "/custom", http.StatusSeeOther)
}

// UploadLimited answers an upload rejected by the rate limiter.
func (h *Handlers) UploadLimited(w http.ResponseWriter, r *http.Request) {
	h.renderUploadError(w, r, http.StatusTooManyRequests, rateLimitedMessage,
		r.PostFormValue("url"), r.PostFormValue("size"))
}

func (h *Handlers) renderUploadError(w http.ResponseWriter, r *http.Request, status int, msg, rawURL, rawSize string) {
	data := UploadPageData{
		PageData: h.pageData(r, "Background", h.sessions.Bundle(r.Context()) != nil),
		URL:      rawURL,
		Size:     session.ParseSize(rawSize),
	}
	data.Flash = &FlashMessage{Type: "error", Message: msg}
	h.render(w, r, status, "upload", data)
}

// Custom renders the player page in the preferred layout (GET /custom).
func (h *Handlers) Custom(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.credential(r)
	if err != nil {
		h.redirectToLogin(w, r)
		return
	}

	track, err := h.players(r.Context(), bundle.Token()).CurrentTrack(r.Context())
	if err != nil {
		h.playbackFailed(w, r, err)
		h.redirectToLogin(w, r)
		return
	}

	tmpl, data := view.Select(h.sessions.Preferences(r.Context()), track, DefaultArt)
	h.render(w, r, http.StatusOK, string(tmpl), PlayerPageData{
		PageData: h.pageData(r, "Now playing", true),
		Player:   data,
	})
}

// CustomTrack renders the now-playing fragment the player page polls
// (GET /custom/track). Auth failures answer 401 so the page can reload.
func (h *Handlers) CustomTrack(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.credential(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	track, err := h.players(r.Context(), bundle.Token()).CurrentTrack(r.Context())
	if err != nil {
		h.playbackFailed(w, r, err)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	_, data := view.Select(h.sessions.Preferences(r.Context()), track, DefaultArt)

	var buf bytes.Buffer
	if err := h.templates.RenderPartial(&buf, "track", data); err != nil {
		logging.FromContext(r.Context()).Error("rendering partial", "partial", "track", "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// Healthz reports liveness (GET /healthz).
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// NotFound renders the 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error", ErrorPageData{
		PageData: h.pageData(r, "Not found", h.sessions.Bundle(r.Context()) != nil),
		Message:  "404 - Page Not Found",
	})
}

// credential returns a usable credential for the session, refreshing it when
// expired. A refreshed bundle is written back before it is returned. An
// unrecoverable credential destroys the session.
func (h *Handlers) credential(r *http.Request) (*auth.Bundle, error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	res, err := h.lifecycle.Resolve(ctx, h.sessions.Bundle(ctx))
	switch {
	case errors.Is(err, auth.ErrNoCredential):
		logger.Debug("no credential in session")
		return nil, err
	case err != nil:
		logger.Warn("credential unusable, clearing session", "err", err)
		if clearErr := h.sessions.Clear(ctx); clearErr != nil {
			logger.Error("clearing session", "err", clearErr)
		}
		return nil, err
	}

	if res.Refreshed {
		h.sessions.PutBundle(ctx, res.Bundle)
	}
	return res.Bundle, nil
}

// playbackFailed destroys the session after a failed Spotify read. Rejected
// tokens and transient failures are treated alike but logged differently.
func (h *Handlers) playbackFailed(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())
	if spotify.IsUnauthorized(err) {
		logger.Warn("spotify rejected credential, clearing session", "err", err)
	} else {
		logger.Error("spotify query failed, clearing session", "err", err)
	}
	if clearErr := h.sessions.Clear(r.Context()); clearErr != nil {
		logger.Error("clearing session", "err", clearErr)
	}
}

func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
}

func (h *Handlers) pageData(r *http.Request, title string, authenticated bool) PageData {
	return PageData{
		Title:         title,
		Authenticated: authenticated,
		CurrentPath:   r.URL.Path,
	}
}

// render executes a page into a buffer so a template error can still produce
// a clean 500.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.templates.Render(&buf, page, data); err != nil {
		logging.FromContext(r.Context()).Error("rendering template", "page", page, "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
