package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playback"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/domain/user"
)

type stubProvider struct {
	mu        sync.Mutex
	statusErr error
	started   int
}

func (s *stubProvider) CurrentPlayback(ctx context.Context) (*playback.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, s.statusErr
}

func (s *stubProvider) StartPlayback(ctx context.Context, trackIDs []string, deviceID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return nil
}

func (s *stubProvider) Pause(ctx context.Context) error          { return nil }
func (s *stubProvider) Resume(ctx context.Context) error         { return nil }
func (s *stubProvider) SkipNext(ctx context.Context) error       { return nil }
func (s *stubProvider) SkipPrevious(ctx context.Context) error   { return nil }
func (s *stubProvider) DisableRepeat(ctx context.Context) error  { return nil }
func (s *stubProvider) DisableShuffle(ctx context.Context) error { return nil }

type countingFactory struct {
	mu        sync.Mutex
	created   int
	statusErr error
}

func (f *countingFactory) NewProvider(ctx context.Context, token *oauth2.Token) (player.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &stubProvider{statusErr: f.statusErr}, nil
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func newTestManager(t *testing.T, factory ProviderFactory) *Manager {
	t.Helper()
	m := New(factory, Config{
		Player: player.Config{PollInterval: time.Millisecond, MaxFailures: 5},
	})
	t.Cleanup(m.Close)
	return m
}

func testUser() *user.User {
	return &user.User{ID: 1, SpotifyID: "alice", Token: &oauth2.Token{AccessToken: "access"}}
}

func testPlaylist() *playlist.Playlist {
	return &playlist.Playlist{
		Name: "evening",
		Elements: []playlist.Element{
			{Name: "A", Songs: []playlist.Song{{Name: "a1", SpotifyID: "a1"}}},
			{Name: "B", Songs: []playlist.Song{{Name: "b1", SpotifyID: "b1"}}},
		},
	}
}

func TestManager_GetPlayerBeforePlay(t *testing.T) {
	m := newTestManager(t, &countingFactory{})

	_, ok := m.GetPlayer(1)
	assert.False(t, ok)
}

func TestManager_SendCommandWithoutPlayer(t *testing.T) {
	factory := &countingFactory{}
	m := newTestManager(t, factory)

	err := m.SendCommand(testUser(), player.NewCommand(player.CommandPause))
	assert.True(t, errors.Is(err, ErrNoPlayer))
	assert.Equal(t, 0, factory.count())
}

func TestManager_SendCommandMissingCredentials(t *testing.T) {
	m := newTestManager(t, &countingFactory{})
	u := &user.User{ID: 2}

	err := m.SendCommand(u, player.Play(testPlaylist(), nil, nil))
	assert.True(t, errors.Is(err, ErrMissingCredentials))
}

func TestManager_SendCommandInvalidPlay(t *testing.T) {
	factory := &countingFactory{}
	m := newTestManager(t, factory)

	err := m.SendCommand(testUser(), player.Play(&playlist.Playlist{}, nil, nil))
	assert.True(t, errors.Is(err, playlist.ErrEmptyPlaylist))

	idx := 5
	err = m.SendCommand(testUser(), player.Play(testPlaylist(), &idx, nil))
	assert.True(t, errors.Is(err, player.ErrInvalidElementIndex))

	assert.Equal(t, 0, factory.count())
}

func TestManager_PlayStartsPlayer(t *testing.T) {
	factory := &countingFactory{}
	m := newTestManager(t, factory)

	idx := 1
	require.NoError(t, m.SendCommand(testUser(), player.Play(testPlaylist(), &idx, nil)))

	conn, ok := m.GetPlayer(1)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rx := conn.Subscribe()
	require.NoError(t, rx.Changed(ctx))
	info := rx.BorrowAndUpdate()
	require.NotNil(t, info)
	assert.Equal(t, "B", info.AlbumName)

	// A second play reuses the running player
	require.NoError(t, m.SendCommand(testUser(), player.Play(testPlaylist(), nil, nil)))
	assert.Equal(t, 1, factory.count())

	// Late subscribers see the latest snapshot immediately
	late := conn.Subscribe()
	changed, err := late.HasChanged()
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestManager_AwaitersShareHandle(t *testing.T) {
	m := newTestManager(t, &countingFactory{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan *Connection, 2)
	for i := 0; i < 2; i++ {
		go func() {
			conn, err := m.AwaitPlayer(ctx, 1)
			if err != nil {
				results <- nil
				return
			}
			results <- conn
		}()
	}

	require.Eventually(t, func() bool {
		m.awaitingMu.Lock()
		defer m.awaitingMu.Unlock()
		return len(m.awaiting[1]) == 2
	}, time.Second, time.Millisecond)

	created, err := m.NewPlayer(1, testUser().Token)
	require.NoError(t, err)

	first := <-results
	second := <-results
	assert.Same(t, created, first)
	assert.Same(t, created, second)

	m.awaitingMu.Lock()
	assert.Empty(t, m.awaiting[1])
	m.awaitingMu.Unlock()
}

func TestManager_AwaitExistingPlayer(t *testing.T) {
	m := newTestManager(t, &countingFactory{})

	created, err := m.NewPlayer(1, testUser().Token)
	require.NoError(t, err)

	conn, err := m.AwaitPlayer(context.Background(), 1)
	require.NoError(t, err)
	assert.Same(t, created, conn)
}

func TestManager_AwaitCancelled(t *testing.T) {
	m := newTestManager(t, &countingFactory{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.AwaitPlayer(ctx, 1)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	m.awaitingMu.Lock()
	require.Len(t, m.awaiting[1], 1)
	assert.True(t, m.awaiting[1][0].isAbandoned())
	m.awaitingMu.Unlock()

	// The abandoned waiter is pruned by the next registration
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	_, _ = m.AwaitPlayer(ctx2, 1)

	m.awaitingMu.Lock()
	assert.Len(t, m.awaiting[1], 1)
	m.awaitingMu.Unlock()

	_, err = m.NewPlayer(1, testUser().Token)
	require.NoError(t, err)
}

func TestManager_PlayerDiesAfterFailures(t *testing.T) {
	factory := &countingFactory{statusErr: errors.New("unavailable")}
	m := newTestManager(t, factory)

	require.NoError(t, m.SendCommand(testUser(), player.Play(testPlaylist(), nil, nil)))
	conn, ok := m.GetPlayer(1)
	require.True(t, ok)

	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("player did not stop")
	}

	assert.False(t, conn.Alive())
	_, ok = m.GetPlayer(1)
	assert.False(t, ok)

	err := m.SendCommand(testUser(), player.NewCommand(player.CommandNextElement))
	assert.True(t, errors.Is(err, ErrNoPlayer))

	assert.True(t, errors.Is(conn.Send(player.NewCommand(player.CommandPause)), ErrPlayerClosed))

	// A new play replaces the dead player
	require.NoError(t, m.SendCommand(testUser(), player.Play(testPlaylist(), nil, nil)))
	assert.Equal(t, 2, factory.count())
}

func TestManager_ExitCommand(t *testing.T) {
	m := newTestManager(t, &countingFactory{})

	require.NoError(t, m.SendCommand(testUser(), player.Play(testPlaylist(), nil, nil)))
	conn, ok := m.GetPlayer(1)
	require.True(t, ok)

	require.NoError(t, m.SendCommand(testUser(), player.NewCommand(player.CommandExit)))

	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("player did not exit")
	}
	assert.True(t, conn.Subscribe().IsClosed())
}

func TestManager_Close(t *testing.T) {
	m := New(&countingFactory{}, Config{Player: player.Config{PollInterval: time.Millisecond}})

	conn, err := m.NewPlayer(1, testUser().Token)
	require.NoError(t, err)

	m.Close()
	assert.False(t, conn.Alive())

	_, err = m.NewPlayer(1, testUser().Token)
	assert.True(t, errors.Is(err, ErrManagerClosed))

	_, err = m.AwaitPlayer(context.Background(), 2)
	assert.True(t, errors.Is(err, ErrManagerClosed))
}

func TestManager_CloseWhileStarting(t *testing.T) {
	m := New(&countingFactory{}, Config{Player: player.Config{PollInterval: time.Millisecond}})

	const starters = 16
	conns := make(chan *Connection, starters)
	var wg sync.WaitGroup
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			conn, err := m.NewPlayer(userID, testUser().Token)
			if err != nil {
				assert.True(t, errors.Is(err, ErrManagerClosed), "got %v", err)
				return
			}
			conns <- conn
		}(int64(i + 1))
	}

	m.Close()
	wg.Wait()
	close(conns)

	// Every player that started before Close was waited for
	for conn := range conns {
		select {
		case <-conn.Done():
		case <-time.After(time.Second):
			t.Fatal("player outlived Close")
		}
	}

	_, err := m.NewPlayer(99, testUser().Token)
	assert.True(t, errors.Is(err, ErrManagerClosed))
}
