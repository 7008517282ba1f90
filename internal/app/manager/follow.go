package manager

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/app/watch"
)

// Awaiter resolves the running player for a user, waiting for one to start.
type Awaiter interface {
	AwaitPlayer(ctx context.Context, userID int64) (*Connection, error)
}

// Follow calls emit for every snapshot of the user's player. When a player
// stops, emit receives nil and the next player is awaited. It returns when
// ctx is done, emit fails or no player can be awaited.
func Follow(ctx context.Context, players Awaiter, userID int64, emit func(*player.PlaybackInfo) error) error {
	for {
		conn, err := players.AwaitPlayer(ctx, userID)
		if err != nil {
			return err
		}

		rx := conn.Subscribe()
		for {
			if err := rx.Changed(ctx); err != nil {
				if errors.Is(err, watch.ErrClosed) {
					break
				}
				return err
			}
			if err := emit(rx.BorrowAndUpdate()); err != nil {
				return err
			}
		}

		zlog.Debug().Msgf("manager: player stopped, waiting for the next one: user_id=%d", userID)
		if err := emit(nil); err != nil {
			return err
		}
	}
}
