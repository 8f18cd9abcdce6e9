// Package view decides which player page to render and with what data.
package view

import (
	"github.com/justestif/go-spotify-custom-player/internal/session"
	"github.com/justestif/go-spotify-custom-player/internal/spotify"
)

// Template names a player page template.
type Template string

const (
	CustomSmall Template = "custom_small"
	CustomLarge Template = "custom_large"
)

// Data is what the player templates render.
type Data struct {
	TrackName       string
	Artist          string
	AlbumImage      string
	BackgroundImage string
	Size            session.Size
	Playing         bool
}

// Select picks the player template for prefs and fills in the track data.
// defaultArt replaces a missing album image.
func Select(prefs session.Preferences, track spotify.Track, defaultArt string) (Template, Data) {
	size := session.ParseSize(string(prefs.Size))

	tmpl := CustomSmall
	if size == session.SizeLarge {
		tmpl = CustomLarge
	}

	art := track.AlbumImage
	if art == "" {
		art = defaultArt
	}

	return tmpl, Data{
		TrackName:       track.Name,
		Artist:          track.Artist,
		AlbumImage:      art,
		BackgroundImage: prefs.ImageURL,
		Size:            size,
		Playing:         track.Playing,
	}
}
