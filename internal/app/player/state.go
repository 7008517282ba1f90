// Package player provides the per-user playback actor that drives a remote
// Spotify device and reconciles it with the local play order.
package player

import (
	"math/rand"

	"github.com/osa030/grooves/internal/domain/playlist"
)

// State represents the player state.
type State int

const (
	StateNoPlayback State = iota // No playlist loaded
	StateActive                  // A playlist is loaded and being reconciled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNoPlayback:
		return "no_playback"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Status is the remote play state published in snapshots.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// PlaybackInfo is the public snapshot published to observers.
// It is never modified after it has been sent.
type PlaybackInfo struct {
	ImageURL  string `json:"image_url"`
	SongName  string `json:"song_name"`
	AlbumName string `json:"album_name"`
	Artists   string `json:"artists"`
	Status    Status `json:"status"`
}

// playbackState is the playback cursor owned by one player.
type playbackState struct {
	deviceID *string
	playlist *playlist.Playlist

	// Indices into playlist.Elements; order = [2, 0, 1] plays element 2, then 0, then 1.
	order []int

	// Index into order, not into playlist.Elements.
	currentElement int

	// Index into the current element's songs.
	currentSong int

	status Status
}

func newPlaybackState(rng *rand.Rand, pl *playlist.Playlist, elementIndex *int) (*playbackState, error) {
	if err := pl.Validate(); err != nil {
		return nil, err
	}
	order, err := GenerateOrder(rng, len(pl.Elements), elementIndex)
	if err != nil {
		return nil, err
	}
	return &playbackState{
		playlist: pl,
		order:    order,
		status:   StatusPlaying,
	}, nil
}

func (s *playbackState) element() *playlist.Element {
	return &s.playlist.Elements[s.order[s.currentElement]]
}

func (s *playbackState) song() *playlist.Song {
	return &s.element().Songs[s.currentSong]
}

func (s *playbackState) incrementCurrent() {
	s.currentElement = (s.currentElement + 1) % len(s.order)
	s.currentSong = 0
}

func (s *playbackState) decrementCurrent() {
	if s.currentElement == 0 {
		s.currentElement = len(s.order) - 1
	} else {
		s.currentElement--
	}
	s.currentSong = 0
}

// cursor returns the position so it can be restored after a failed move.
func (s *playbackState) cursor() (int, int) {
	return s.currentElement, s.currentSong
}

func (s *playbackState) restore(element, song int) {
	s.currentElement = element
	s.currentSong = song
}

func (s *playbackState) info() *PlaybackInfo {
	element := s.element()
	song := s.song()
	return &PlaybackInfo{
		ImageURL:  song.ImageURL,
		SongName:  song.Name,
		AlbumName: element.Name,
		Artists:   song.Artists,
		Status:    s.status,
	}
}
