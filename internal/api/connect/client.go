package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playlist"
)

// PlayerClient calls PlayerService with a session token.
type PlayerClient struct {
	token     string
	send      *connect.Client[SendRequest, SendResponse]
	watch     *connect.Client[WatchRequest, WatchResponse]
	playlists *connect.Client[ListPlaylistsRequest, ListPlaylistsResponse]
}

// NewPlayerClient creates a client for the service at baseURL.
func NewPlayerClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *PlayerClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &PlayerClient{
		token:     token,
		send:      connect.NewClient[SendRequest, SendResponse](httpClient, baseURL+PlayerServiceSendProcedure, opts...),
		watch:     connect.NewClient[WatchRequest, WatchResponse](httpClient, baseURL+PlayerServiceWatchProcedure, opts...),
		playlists: connect.NewClient[ListPlaylistsRequest, ListPlaylistsResponse](httpClient, baseURL+PlayerServiceListPlaylistsProcedure, opts...),
	}
}

func authorized[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

// Send sends a command to the caller's player.
func (c *PlayerClient) Send(ctx context.Context, msg *SendRequest) error {
	_, err := c.send.CallUnary(ctx, authorized(c.token, msg))
	return err
}

// ListPlaylists returns the caller's playlists.
func (c *PlayerClient) ListPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	resp, err := c.playlists.CallUnary(ctx, authorized(c.token, &ListPlaylistsRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Playlists, nil
}

// Watch calls fn for every snapshot until ctx is done, the stream ends or
// fn fails. fn receives nil when the player stopped.
func (c *PlayerClient) Watch(ctx context.Context, fn func(*player.PlaybackInfo) error) error {
	stream, err := c.watch.CallServerStream(ctx, authorized(c.token, &WatchRequest{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(stream.Msg().Playback); err != nil {
			return err
		}
	}
	return stream.Err()
}
