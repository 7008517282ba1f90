package manager

import (
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/app/watch"
)

// Connection is a handle to a running player.
// It is safe to share between goroutines.
type Connection struct {
	commands chan<- player.Command
	done     <-chan struct{}
	receiver *watch.Receiver[*player.PlaybackInfo]
}

// Send enqueues a command without waiting for the player to process it.
func (c *Connection) Send(cmd player.Command) error {
	select {
	case <-c.done:
		return ErrPlayerClosed
	default:
	}

	select {
	case c.commands <- cmd:
		return nil
	case <-c.done:
		return ErrPlayerClosed
	default:
		return ErrCommandQueueFull
	}
}

// Subscribe returns a receiver for playback snapshots. The latest snapshot,
// if any, is reported as changed immediately.
func (c *Connection) Subscribe() *watch.Receiver[*player.PlaybackInfo] {
	return c.receiver.Clone()
}

// Alive reports whether the player is still running.
func (c *Connection) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
	}
	return !c.receiver.IsClosed()
}

// Done is closed when the player stops.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}
