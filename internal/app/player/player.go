package player

import (
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/watch"
)

// Errors
var (
	ErrNoPlayback          = errors.New("no playback")
	ErrUnsupportedCommand  = errors.New("unsupported command")
	ErrUnexpectedItem      = errors.New("unexpected item playing")
	ErrNoPlayingItem       = errors.New("no item playing")
	ErrTooManyFailures     = errors.New("too many consecutive failures")
	ErrInvalidElementIndex = errors.New("invalid element index")
	ErrMissingPlaylist     = errors.New("play command requires a playlist")
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxFailures  = 5
)

// Config holds player configuration.
type Config struct {
	PollInterval time.Duration // Sleep between reconciliation ticks
	MaxFailures  int           // Consecutive tick failures before the player stops
	Rand         *rand.Rand    // Source for element order; seeded from the clock when nil
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Player drives one user's remote device.
// All fields are owned by the goroutine running Run.
type Player struct {
	provider Provider
	config   Config
	commands <-chan Command
	sender   *watch.Sender[*PlaybackInfo]

	state    *playbackState
	failures int
}

// New creates a player reading commands from commands and publishing
// snapshots to sender.
func New(provider Provider, commands <-chan Command, sender *watch.Sender[*PlaybackInfo], config Config) *Player {
	return &Player{
		provider: provider,
		config:   config.withDefaults(),
		commands: commands,
		sender:   sender,
	}
}

// State returns the current state. Only safe from the goroutine running Run.
func (p *Player) State() State {
	if p.state == nil {
		return StateNoPlayback
	}
	return StateActive
}

// Run runs the player loop until an exit command, the command channel
// closing, ctx cancellation or too many consecutive tick failures.
// The snapshot sender is closed when Run returns.
func (p *Player) Run(ctx context.Context) error {
	defer p.sender.Close()

	for {
		select {
		case cmd, ok := <-p.commands:
			if !ok {
				zlog.Info().Msg("player: command channel closed, stopping")
				return nil
			}
			if cmd.Type == CommandExit {
				zlog.Info().Msg("player: exit requested")
				return nil
			}
			if err := p.handleCommand(ctx, cmd); err != nil {
				zlog.Warn().Msgf("player: command failed: command=%s error=%v", cmd.Type, err)
			}
		default:
		}

		if p.state != nil {
			changed, err := p.tick(ctx)
			if err != nil {
				p.failures++
				zlog.Warn().Msgf("player: tick failed: failures=%d error=%v", p.failures, err)
				if p.failures >= p.config.MaxFailures {
					zlog.Error().Msgf("player: stopping after %d consecutive failures", p.failures)
					return errors.Wrapf(ErrTooManyFailures, "last error: %v", err)
				}
			} else {
				p.failures = 0
				if changed {
					p.publish()
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.config.PollInterval):
		}
	}
}

func (p *Player) handleCommand(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandPlay:
		return p.play(ctx, cmd)
	case CommandAddToQueue, CommandRemoveFromQueue:
		return errors.Wrapf(ErrUnsupportedCommand, "%s", cmd.Type)
	case CommandExit:
		return nil
	}

	if p.state == nil {
		return errors.Wrapf(ErrNoPlayback, "%s", cmd.Type)
	}

	switch cmd.Type {
	case CommandPause:
		return errors.Wrap(p.provider.Pause(ctx), "pause")
	case CommandResume:
		return errors.Wrap(p.provider.Resume(ctx), "resume")
	case CommandNextSong:
		return errors.Wrap(p.provider.SkipNext(ctx), "skip to next")
	case CommandPrevSong:
		return errors.Wrap(p.provider.SkipPrevious(ctx), "skip to previous")
	case CommandNextElement:
		return p.moveElement(ctx, p.state.incrementCurrent)
	case CommandPrevElement:
		return p.moveElement(ctx, p.state.decrementCurrent)
	default:
		return errors.Wrapf(ErrUnsupportedCommand, "%s", cmd.Type)
	}
}

// play replaces the playback state wholesale, device included, so the new
// playlist starts on the provider's default device. The previous state is
// kept if the remote device could not be started. The failure counter is
// left to tick.
func (p *Player) play(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	state, err := newPlaybackState(p.config.Rand, cmd.Playlist, cmd.ElementIndex)
	if err != nil {
		return err
	}
	if err := p.startElement(ctx, state); err != nil {
		return err
	}

	zlog.Info().Msgf("player: playing playlist: name=%s elements=%d first=%s",
		cmd.Playlist.Name, len(cmd.Playlist.Elements), state.element().Name)
	p.state = state
	p.publish()
	return nil
}

func (p *Player) moveElement(ctx context.Context, move func()) error {
	element, song := p.state.cursor()
	move()
	if err := p.startElement(ctx, p.state); err != nil {
		p.state.restore(element, song)
		return err
	}
	p.state.status = StatusPlaying
	zlog.Info().Msgf("player: element changed: element=%s", p.state.element().Name)
	p.publish()
	return nil
}

// startElement plays the current element of s from its first song.
func (p *Player) startElement(ctx context.Context, s *playbackState) error {
	if err := p.provider.DisableRepeat(ctx); err != nil {
		return errors.Wrap(err, "disable repeat")
	}
	if err := p.provider.DisableShuffle(ctx); err != nil {
		return errors.Wrap(err, "disable shuffle")
	}
	if err := p.provider.StartPlayback(ctx, s.element().SongIDs(), s.deviceID); err != nil {
		return errors.Wrap(err, "start playback")
	}
	return nil
}

// tick reconciles the state with the remote device and reports whether the
// published snapshot is out of date.
func (p *Player) tick(ctx context.Context) (bool, error) {
	status, err := p.provider.CurrentPlayback(ctx)
	if err != nil {
		return false, errors.Wrap(err, "get current playback")
	}
	if status == nil {
		// No active device, nothing to reconcile
		return false, nil
	}

	s := p.state
	element := s.element()
	trackID, isTrack := status.TrackID()

	// The device stops at the first song with zero progress once the
	// element's track list has run out.
	if !status.Playing && isTrack && status.AtStart() && element.Songs[0].SpotifyID == trackID {
		elementIdx, songIdx := s.cursor()
		s.incrementCurrent()
		if err := p.startElement(ctx, s); err != nil {
			s.restore(elementIdx, songIdx)
			return false, err
		}
		s.status = StatusPlaying
		zlog.Info().Msgf("player: element finished, advancing: element=%s", s.element().Name)
		return true, nil
	}

	if status.DeviceID != "" && (s.deviceID == nil || *s.deviceID != status.DeviceID) {
		deviceID := status.DeviceID
		s.deviceID = &deviceID
	}

	if !isTrack {
		if status.Item == nil {
			return false, ErrNoPlayingItem
		}
		return false, errors.Wrapf(ErrUnexpectedItem, "%s %s", status.Item.Type, status.Item.ID)
	}

	songIdx := element.IndexOf(trackID)
	if songIdx < 0 {
		return false, errors.Wrapf(ErrUnexpectedItem, "track %s not in element %s", trackID, element.Name)
	}

	changed := false
	if songIdx != s.currentSong {
		s.currentSong = songIdx
		changed = true
	}
	remote := StatusPaused
	if status.Playing {
		remote = StatusPlaying
	}
	if remote != s.status {
		s.status = remote
		changed = true
	}
	return changed, nil
}

func (p *Player) publish() {
	if p.state == nil {
		return
	}
	if err := p.sender.Send(p.state.info()); err != nil {
		zlog.Warn().Msgf("player: failed to publish playback info: %v", err)
	}
}
