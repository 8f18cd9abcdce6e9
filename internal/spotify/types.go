package spotify

// Track is a snapshot of what the user is playing right now.
type Track struct {
	Name       string
	Artist     string // First listed artist
	AlbumImage string // Largest album image URL, empty when unknown
	Playing    bool
}

// NoTrack is the snapshot reported when nothing is playing.
var NoTrack = Track{Name: "No track playing"}

// IsNone reports whether t is the empty snapshot.
func (t Track) IsNone() bool {
	return t == NoTrack
}
