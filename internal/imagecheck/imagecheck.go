// Package imagecheck verifies that a user-supplied URL points at an image
// before it is saved as the player background.
package imagecheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"

	// Formats recognised by image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/justestif/go-spotify-custom-player/internal/config"
	"github.com/justestif/go-spotify-custom-player/internal/logging"
	"github.com/justestif/go-spotify-custom-player/internal/session"
)

// ErrInvalidImage is returned when a URL does not resolve to a decodable image.
var ErrInvalidImage = errors.New("invalid image URL")

// PreferenceWriter stores player preferences for the current request.
type PreferenceWriter interface {
	PutPreferences(ctx context.Context, p session.Preferences)
}

// Validator fetches candidate images and checks their headers.
type Validator struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Validator with the fetch timeout and size limit from cfg.
func New(cfg config.ImagesConfig) *Validator {
	return &Validator{
		client:   &http.Client{Timeout: cfg.FetchTimeout},
		maxBytes: cfg.MaxBytes,
	}
}

// Validate fetches rawURL and reports whether its body is an image in a
// registered format. Only the image header is decoded.
func (v *Validator) Validate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: not an absolute http(s) URL", ErrInvalidImage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching: %w", ErrInvalidImage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrInvalidImage, resp.StatusCode)
	}
	if resp.ContentLength > v.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidImage, resp.ContentLength, v.maxBytes)
	}

	// Read one byte past the limit so an oversized body is detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, v.maxBytes+1))
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrInvalidImage, err)
	}
	if int64(len(body)) > v.maxBytes {
		return fmt.Errorf("%w: body exceeds limit of %d bytes", ErrInvalidImage, v.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	logging.FromContext(ctx).Debug("validated image", "format", format, "width", cfg.Width, "height", cfg.Height)
	return nil
}

// ValidateAndStore validates rawURL and, only on success, saves it with the
// parsed size as the new preferences.
func (v *Validator) ValidateAndStore(ctx context.Context, store PreferenceWriter, rawURL, rawSize string) error {
	if err := v.Validate(ctx, rawURL); err != nil {
		return err
	}
	store.PutPreferences(ctx, session.Preferences{
		ImageURL: rawURL,
		Size:     session.ParseSize(rawSize),
	})
	return nil
}
