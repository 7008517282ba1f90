package player

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/grooves/internal/domain/playlist"
)

// CommandType represents a player command type.
type CommandType int

const (
	CommandPlay            CommandType = iota // Replace the playlist and start playback
	CommandPause                              // Pause the remote device
	CommandResume                             // Resume the remote device
	CommandNextSong                           // Skip to the next song of the element
	CommandPrevSong                           // Skip to the previous song of the element
	CommandNextElement                        // Move to the next element in play order
	CommandPrevElement                        // Move to the previous element in play order
	CommandAddToQueue                         // Not supported
	CommandRemoveFromQueue                    // Not supported
	CommandExit                               // Stop the player
)

var commandNames = map[CommandType]string{
	CommandPlay:            "play",
	CommandPause:           "pause",
	CommandResume:          "resume",
	CommandNextSong:        "next_song",
	CommandPrevSong:        "prev_song",
	CommandNextElement:     "next_element",
	CommandPrevElement:     "prev_element",
	CommandAddToQueue:      "add_to_queue",
	CommandRemoveFromQueue: "remove_from_queue",
	CommandExit:            "exit",
}

// String returns the string representation of the command type.
func (t CommandType) String() string {
	if name, ok := commandNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseCommandType parses a snake_case command name.
func ParseCommandType(s string) (CommandType, error) {
	for t, name := range commandNames {
		if name == s {
			return t, nil
		}
	}
	return 0, errors.Newf("unknown command type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t CommandType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CommandType) UnmarshalText(b []byte) error {
	parsed, err := ParseCommandType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Command is a request for a player.
// Playlist, ElementIndex and SongIndex are only used by CommandPlay.
type Command struct {
	Type         CommandType
	Playlist     *playlist.Playlist
	ElementIndex *int
	// SongIndex is accepted but playback always starts at the first song
	// of the chosen element.
	SongIndex *int
}

// NewCommand creates a command without arguments.
func NewCommand(t CommandType) Command {
	return Command{Type: t}
}

// Play creates a play command. elementIndex pins the first element played;
// nil shuffles every element.
func Play(pl *playlist.Playlist, elementIndex, songIndex *int) Command {
	return Command{
		Type:         CommandPlay,
		Playlist:     pl,
		ElementIndex: elementIndex,
		SongIndex:    songIndex,
	}
}

// Validate checks the preconditions of a play command. Other commands are
// always valid.
func (c Command) Validate() error {
	if c.Type != CommandPlay {
		return nil
	}
	if c.Playlist == nil {
		return ErrMissingPlaylist
	}
	if err := c.Playlist.Validate(); err != nil {
		return err
	}
	if c.ElementIndex != nil && (*c.ElementIndex < 0 || *c.ElementIndex >= len(c.Playlist.Elements)) {
		return errors.Wrapf(ErrInvalidElementIndex, "index %d, %d elements", *c.ElementIndex, len(c.Playlist.Elements))
	}
	return nil
}
