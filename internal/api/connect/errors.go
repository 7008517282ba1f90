package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/infra/storage"
)

// ErrInvalidArgument marks malformed requests.
var ErrInvalidArgument = errors.New("invalid argument")

// codeFor maps an error to its Connect code.
func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, manager.ErrMissingCredentials):
		return connect.CodeUnauthenticated
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, playlist.ErrEmptyPlaylist),
		errors.Is(err, playlist.ErrEmptyElement),
		errors.Is(err, player.ErrInvalidElementIndex),
		errors.Is(err, player.ErrMissingPlaylist):
		return connect.CodeInvalidArgument
	case errors.Is(err, manager.ErrNoPlayer),
		errors.Is(err, manager.ErrPlayerClosed):
		return connect.CodeFailedPrecondition
	case errors.Is(err, manager.ErrCommandQueueFull):
		return connect.CodeResourceExhausted
	case errors.Is(err, manager.ErrManagerClosed):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts err for the wire. Internal errors are logged and
// their details hidden.
func toConnectError(procedure string, err error) error {
	code := codeFor(err)
	if code == connect.CodeInternal {
		zlog.Error().Msgf("connect: %s failed: %+v", procedure, err)
		return connect.NewError(code, errors.New("internal error"))
	}
	zlog.Debug().Msgf("connect: %s rejected: code=%s error=%v", procedure, code, err)
	return connect.NewError(code, err)
}
