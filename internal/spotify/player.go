package spotify

import (
	"context"
	"fmt"
)

// CurrentTrack returns the track currently playing for the user.
// No active playback, or an item that is not a track, yields [NoTrack].
func (c *Client) CurrentTrack(ctx context.Context) (Track, error) {
	playing, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return Track{}, fmt.Errorf("%w: getting currently playing: %w", ErrPlaybackQueryFailed, err)
	}

	if playing == nil || playing.Item == nil || playing.Item.Name == "" {
		return NoTrack, nil
	}

	item := playing.Item
	track := Track{
		Name:    item.Name,
		Playing: playing.Playing,
	}
	if len(item.Artists) > 0 {
		track.Artist = item.Artists[0].Name
	}
	// Spotify lists album images widest first.
	if len(item.Album.Images) > 0 {
		track.AlbumImage = item.Album.Images[0].URL
	}
	return track, nil
}
