// Package playback provides the remote playback status reported by a provider.
package playback

import "time"

// ItemType is the kind of item the remote device is playing.
type ItemType int

const (
	ItemTrack   ItemType = iota // Music track
	ItemEpisode                 // Podcast episode or other non-track item
)

// String returns the string representation of the item type.
func (t ItemType) String() string {
	switch t {
	case ItemTrack:
		return "track"
	case ItemEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// Item is the item currently loaded on the remote device.
type Item struct {
	Type ItemType
	ID   string // Empty for local files
	Name string
}

// Status is a point-in-time view of the remote playback.
type Status struct {
	Playing  bool
	Progress *time.Duration // nil if the provider did not report progress
	Item     *Item          // nil if nothing is loaded
	DeviceID string
}

// TrackID returns the ID of the playing track, or false if the item is not
// an identifiable track.
func (s *Status) TrackID() (string, bool) {
	if s.Item == nil || s.Item.Type != ItemTrack || s.Item.ID == "" {
		return "", false
	}
	return s.Item.ID, true
}

// AtStart reports whether the provider reported a progress of exactly zero.
func (s *Status) AtStart() bool {
	return s.Progress != nil && *s.Progress == 0
}
