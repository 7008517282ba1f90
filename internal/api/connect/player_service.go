package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/domain/user"
)

const (
	// PlayerServiceName is the fully-qualified name of the player service.
	PlayerServiceName = "grooves.v1.PlayerService"

	PlayerServiceSendProcedure          = "/grooves.v1.PlayerService/Send"
	PlayerServiceWatchProcedure         = "/grooves.v1.PlayerService/Watch"
	PlayerServiceListPlaylistsProcedure = "/grooves.v1.PlayerService/ListPlaylists"
)

// SendRequest is a player command. Only play uses the optional fields.
type SendRequest struct {
	Type         string `json:"type"`
	PlaylistID   *int64 `json:"playlist_id,omitempty"`
	ElementIndex *int   `json:"element_index,omitempty"`
	SongIndex    *int   `json:"song_index,omitempty"`
}

type SendResponse struct {
	Status string `json:"status"`
}

type WatchRequest struct{}

// WatchResponse carries one snapshot. Playback is nil when the player
// stopped.
type WatchResponse struct {
	Playback *player.PlaybackInfo `json:"playback"`
}

type ListPlaylistsRequest struct{}

type ListPlaylistsResponse struct {
	Playlists []playlist.Playlist `json:"playlists"`
}

// Store is the storage used by the player service.
type Store interface {
	Sessions
	ListPlaylists(ctx context.Context, ownerID int64) ([]playlist.Playlist, error)
	GetPlaylist(ctx context.Context, id, ownerID int64) (*playlist.Playlist, error)
}

// Players routes commands to per-user players.
type Players interface {
	SendCommand(u *user.User, cmd player.Command) error
	AwaitPlayer(ctx context.Context, userID int64) (*manager.Connection, error)
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	store   Store
	players Players
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(store Store, players Players) *PlayerService {
	return &PlayerService{store: store, players: players}
}

// NewPlayerServiceHandler builds an HTTP handler for svc and returns the
// path it should be mounted on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerServiceSendProcedure,
		connect.NewUnaryHandler(PlayerServiceSendProcedure, svc.Send, opts...))
	mux.Handle(PlayerServiceWatchProcedure,
		connect.NewServerStreamHandler(PlayerServiceWatchProcedure, svc.Watch, opts...))
	mux.Handle(PlayerServiceListPlaylistsProcedure,
		connect.NewUnaryHandler(PlayerServiceListPlaylistsProcedure, svc.ListPlaylists, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// Send forwards a command to the caller's player, starting one for play.
func (s *PlayerService) Send(
	ctx context.Context,
	req *connect.Request[SendRequest],
) (*connect.Response[SendResponse], error) {
	u, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}

	cmd, err := s.command(ctx, u, req.Msg)
	if err != nil {
		return nil, toConnectError(PlayerServiceSendProcedure, err)
	}
	if err := s.players.SendCommand(u, cmd); err != nil {
		return nil, toConnectError(PlayerServiceSendProcedure, err)
	}

	zlog.Debug().Msgf("connect: command sent: user_id=%d command=%s", u.ID, cmd.Type)
	return connect.NewResponse(&SendResponse{Status: "sent"}), nil
}

func (s *PlayerService) command(ctx context.Context, u *user.User, msg *SendRequest) (player.Command, error) {
	typ, err := player.ParseCommandType(msg.Type)
	if err != nil {
		return player.Command{}, errors.Mark(err, ErrInvalidArgument)
	}
	if typ != player.CommandPlay {
		return player.NewCommand(typ), nil
	}
	if msg.PlaylistID == nil {
		return player.Command{}, errors.Mark(errors.New("play requires playlist_id"), ErrInvalidArgument)
	}
	pl, err := s.store.GetPlaylist(ctx, *msg.PlaylistID, u.ID)
	if err != nil {
		return player.Command{}, err
	}
	return player.Play(pl, msg.ElementIndex, msg.SongIndex), nil
}

// Watch streams the caller's playback snapshots across player restarts.
func (s *PlayerService) Watch(
	ctx context.Context,
	req *connect.Request[WatchRequest],
	stream *connect.ServerStream[WatchResponse],
) error {
	u, err := userFrom(ctx)
	if err != nil {
		return err
	}

	zlog.Info().Msgf("connect: watch client connected: user_id=%d", u.ID)
	defer zlog.Info().Msgf("connect: watch client disconnected: user_id=%d", u.ID)

	err = manager.Follow(ctx, s.players, u.ID, func(info *player.PlaybackInfo) error {
		return stream.Send(&WatchResponse{Playback: info})
	})
	if ctx.Err() != nil {
		return nil
	}
	return toConnectError(PlayerServiceWatchProcedure, err)
}

// ListPlaylists returns the caller's playlists.
func (s *PlayerService) ListPlaylists(
	ctx context.Context,
	req *connect.Request[ListPlaylistsRequest],
) (*connect.Response[ListPlaylistsResponse], error) {
	u, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}

	playlists, err := s.store.ListPlaylists(ctx, u.ID)
	if err != nil {
		return nil, toConnectError(PlayerServiceListPlaylistsProcedure, err)
	}
	return connect.NewResponse(&ListPlaylistsResponse{Playlists: playlists}), nil
}
