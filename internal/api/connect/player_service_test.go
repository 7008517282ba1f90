package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playback"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/infra/storage"
)

// idleProvider accepts every call and reports no active device.
type idleProvider struct{}

func (idleProvider) CurrentPlayback(ctx context.Context) (*playback.Status, error) { return nil, nil }
func (idleProvider) StartPlayback(ctx context.Context, trackIDs []string, deviceID *string) error {
	return nil
}
func (idleProvider) Pause(ctx context.Context) error          { return nil }
func (idleProvider) Resume(ctx context.Context) error         { return nil }
func (idleProvider) SkipNext(ctx context.Context) error       { return nil }
func (idleProvider) SkipPrevious(ctx context.Context) error   { return nil }
func (idleProvider) DisableRepeat(ctx context.Context) error  { return nil }
func (idleProvider) DisableShuffle(ctx context.Context) error { return nil }

type testEnv struct {
	store      *storage.Store
	server     *httptest.Server
	token      string
	playlistID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "grooves.db"), storage.Options{BusyTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	factory := manager.ProviderFactoryFunc(func(ctx context.Context, token *oauth2.Token) (player.Provider, error) {
		return idleProvider{}, nil
	})
	m := manager.New(factory, manager.Config{
		Player: player.Config{PollInterval: 5 * time.Millisecond},
	})

	path, handler := NewPlayerServiceHandler(NewPlayerService(store, m),
		connect.WithInterceptors(NewAuthInterceptor(store)))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	// Runs before srv.Close so open streams see the manager shut down
	t.Cleanup(m.Close)

	u, err := store.UpsertUser(ctx, "alice", &oauth2.Token{AccessToken: "access-alice"})
	require.NoError(t, err)
	session, err := store.CreateSession(ctx, u.ID)
	require.NoError(t, err)
	pl, err := store.CreatePlaylist(ctx, u.ID, "mix", []playlist.Element{
		{Name: "First", Songs: []playlist.Song{{Name: "f1", SpotifyID: "f1"}}},
		{Name: "Second", Songs: []playlist.Song{{Name: "s1", SpotifyID: "s1"}}},
	})
	require.NoError(t, err)

	return &testEnv{store: store, server: srv, token: session.Token, playlistID: pl.ID}
}

func (e *testEnv) client(token string) *PlayerClient {
	return NewPlayerClient(e.server.Client(), e.server.URL, token)
}

func int64Ptr(i int64) *int64 { return &i }
func intPtr(i int) *int       { return &i }

func TestPlayerService_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, token := range []string{"", "unknown"} {
		c := env.client(token)

		err := c.Send(ctx, &SendRequest{Type: "pause"})
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err), "token %q: %v", token, err)

		_, err = c.ListPlaylists(ctx)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

		err = c.Watch(ctx, func(*player.PlaybackInfo) error { return nil })
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	}
}

func TestPlayerService_SendErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  *SendRequest
		want connect.Code
	}{
		{name: "unknown type", req: &SendRequest{Type: "rewind"}, want: connect.CodeInvalidArgument},
		{name: "play without playlist", req: &SendRequest{Type: "play"}, want: connect.CodeInvalidArgument},
		{name: "unknown playlist", req: &SendRequest{Type: "play", PlaylistID: int64Ptr(999)}, want: connect.CodeNotFound},
		{name: "element out of range", req: &SendRequest{Type: "play", PlaylistID: int64Ptr(env.playlistID), ElementIndex: intPtr(5)}, want: connect.CodeInvalidArgument},
		{name: "no player", req: &SendRequest{Type: "pause"}, want: connect.CodeFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.client(env.token).Send(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err), "got %v", err)
		})
	}
}

func TestPlayerService_ListPlaylists(t *testing.T) {
	env := newTestEnv(t)

	playlists, err := env.client(env.token).ListPlaylists(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, "mix", playlists[0].Name)
	assert.Len(t, playlists[0].Elements, 2)
}

func TestPlayerService_WatchFollowsPlayer(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(env.token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshots := make(chan *player.PlaybackInfo, 8)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(info *player.PlaybackInfo) error {
			snapshots <- info
			return nil
		})
	}()

	next := func() *player.PlaybackInfo {
		t.Helper()
		select {
		case info := <-snapshots:
			return info
		case <-ctx.Done():
			t.Fatal("no snapshot")
			return nil
		}
	}

	require.NoError(t, c.Send(ctx, &SendRequest{Type: "play", PlaylistID: int64Ptr(env.playlistID), ElementIndex: intPtr(1)}))
	info := next()
	require.NotNil(t, info)
	assert.Equal(t, "Second", info.AlbumName)
	assert.Equal(t, "s1", info.SongName)
	assert.Equal(t, player.StatusPlaying, info.Status)

	require.NoError(t, c.Send(ctx, &SendRequest{Type: "exit"}))
	assert.Nil(t, next(), "a stopped player is reported with no playback")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return")
	}
}
