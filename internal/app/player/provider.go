package player

import (
	"context"

	"github.com/osa030/grooves/internal/domain/playback"
)

// Provider is the remote playback API a player drives.
// A Provider is bound to one user's credentials.
type Provider interface {
	// CurrentPlayback returns the remote status, or nil if no device is active.
	CurrentPlayback(ctx context.Context) (*playback.Status, error)
	// StartPlayback plays the given tracks in order. A nil deviceID targets
	// the provider's default device.
	StartPlayback(ctx context.Context, trackIDs []string, deviceID *string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	DisableRepeat(ctx context.Context) error
	DisableShuffle(ctx context.Context) error
}
