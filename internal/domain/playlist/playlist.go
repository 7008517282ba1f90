// Package playlist provides the Playlist domain entity.
package playlist

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrEmptyPlaylist = errors.New("playlist has no elements")
	ErrEmptyElement  = errors.New("playlist element has no songs")
)

// Playlist is an ordered list of elements owned by a user.
// A playlist handed to a player is never mutated; a new Play replaces it.
type Playlist struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	OwnerID  int64     `json:"owner_id"`
	Elements []Element `json:"elements"`
}

// Element is a named group of songs played back as a unit (e.g. an album).
type Element struct {
	Name     string `json:"name" validate:"required"`
	ImageURL string `json:"image_url"`
	Artists  string `json:"artists"`
	Songs    []Song `json:"songs" validate:"required,min=1,dive"`
}

// Song is a single track identified by its Spotify track ID.
type Song struct {
	Name      string `json:"name" validate:"required"`
	ImageURL  string `json:"image_url"`
	Artists   string `json:"artists"`
	SpotifyID string `json:"spotify_id" validate:"required"`
}

// Validate checks that the playlist can be played: at least one element and
// at least one song per element.
func (p *Playlist) Validate() error {
	if len(p.Elements) == 0 {
		return ErrEmptyPlaylist
	}
	for i, e := range p.Elements {
		if len(e.Songs) == 0 {
			return errors.Wrapf(ErrEmptyElement, "element %d (%s)", i, e.Name)
		}
	}
	return nil
}

// SongIDs returns the Spotify IDs of the element's songs in order.
func (e *Element) SongIDs() []string {
	ids := make([]string, len(e.Songs))
	for i, s := range e.Songs {
		ids[i] = s.SpotifyID
	}
	return ids
}

// IndexOf returns the position of the song with the given Spotify ID, or -1.
func (e *Element) IndexOf(spotifyID string) int {
	for i, s := range e.Songs {
		if s.SpotifyID == spotifyID {
			return i
		}
	}
	return -1
}
