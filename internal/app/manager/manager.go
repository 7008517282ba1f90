// Package manager keeps one player per user and lets observers wait for a
// player that does not exist yet.
package manager

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/app/watch"
	"github.com/osa030/grooves/internal/domain/user"
)

// Errors
var (
	ErrNoPlayer           = errors.New("no player running")
	ErrMissingCredentials = errors.New("user has no spotify credentials")
	ErrPlayerClosed       = errors.New("player has stopped")
	ErrCommandQueueFull   = errors.New("player command queue is full")
	ErrManagerClosed      = errors.New("manager is closed")
)

const DefaultCommandBuffer = 32

// ProviderFactory builds a playback provider bound to a user's credentials.
// ctx lives as long as the manager and may be used for token refresh.
type ProviderFactory interface {
	NewProvider(ctx context.Context, token *oauth2.Token) (player.Provider, error)
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(ctx context.Context, token *oauth2.Token) (player.Provider, error)

// NewProvider calls f.
func (f ProviderFactoryFunc) NewProvider(ctx context.Context, token *oauth2.Token) (player.Provider, error) {
	return f(ctx, token)
}

// Config holds manager configuration.
type Config struct {
	Player        player.Config
	CommandBuffer int // Pending commands per player before Send fails
}

// Manager is the registry of running players keyed by user ID.
type Manager struct {
	factory ProviderFactory
	config  Config

	playersMu sync.RWMutex
	players   map[int64]*Connection

	awaitingMu sync.Mutex
	awaiting   map[int64][]*futureConnection

	// Serializes player creation so concurrent plays for one user spawn once
	createMu sync.Mutex

	// Guards wg.Add against Close
	lifeMu sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new manager.
func New(factory ProviderFactory, config Config) *Manager {
	if config.CommandBuffer <= 0 {
		config.CommandBuffer = DefaultCommandBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		factory:  factory,
		config:   config,
		players:  make(map[int64]*Connection),
		awaiting: make(map[int64][]*futureConnection),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NewPlayer starts a player for userID, replacing any existing registration,
// and resolves every waiter for that user.
func (m *Manager) NewPlayer(userID int64, token *oauth2.Token) (*Connection, error) {
	if m.ctx.Err() != nil {
		return nil, ErrManagerClosed
	}
	provider, err := m.factory.NewProvider(m.ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create playback provider")
	}

	conn, err := m.spawn(userID, provider)
	if err != nil {
		return nil, err
	}

	m.playersMu.Lock()
	m.players[userID] = conn
	m.playersMu.Unlock()

	m.awaitingMu.Lock()
	waiters := m.awaiting[userID]
	delete(m.awaiting, userID)
	m.awaitingMu.Unlock()

	for _, f := range waiters {
		f.resolve(conn)
	}

	zlog.Info().Msgf("manager: player started: user_id=%d waiters=%d", userID, len(waiters))
	return conn, nil
}

func (m *Manager) spawn(userID int64, provider player.Provider) (*Connection, error) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}

	commands := make(chan player.Command, m.config.CommandBuffer)
	tx, rx := watch.New[*player.PlaybackInfo](nil)
	done := make(chan struct{})
	p := player.New(provider, commands, tx, m.config.Player)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		if err := p.Run(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error().Msgf("manager: player stopped: user_id=%d error=%v", userID, err)
			return
		}
		zlog.Info().Msgf("manager: player stopped: user_id=%d", userID)
	}()

	return &Connection{commands: commands, done: done, receiver: rx}, nil
}

// GetPlayer returns the user's player if it is still running.
func (m *Manager) GetPlayer(userID int64) (*Connection, bool) {
	m.playersMu.RLock()
	conn, ok := m.players[userID]
	m.playersMu.RUnlock()

	if !ok || !conn.Alive() {
		return nil, false
	}
	return conn, true
}

// AwaitPlayer returns the user's player, waiting until one is started if
// needed.
func (m *Manager) AwaitPlayer(ctx context.Context, userID int64) (*Connection, error) {
	if conn, ok := m.GetPlayer(userID); ok {
		return conn, nil
	}

	f := newFutureConnection()
	m.awaitingMu.Lock()
	m.awaiting[userID] = append(pruneAbandoned(m.awaiting[userID]), f)
	m.awaitingMu.Unlock()

	// A player registered between the first lookup and the enqueue above has
	// already drained the waiters.
	if conn, ok := m.GetPlayer(userID); ok {
		f.resolve(conn)
	}

	ready := make(chan struct{})
	var once sync.Once
	waker := func() { once.Do(func() { close(ready) }) }

	for {
		if conn, ok := f.poll(waker); ok {
			return conn, nil
		}
		select {
		case <-ready:
		case <-ctx.Done():
			f.abandon()
			return nil, ctx.Err()
		case <-m.ctx.Done():
			f.abandon()
			return nil, ErrManagerClosed
		}
	}
}

func pruneAbandoned(waiters []*futureConnection) []*futureConnection {
	kept := waiters[:0]
	for _, f := range waiters {
		if !f.isAbandoned() {
			kept = append(kept, f)
		}
	}
	return kept
}

// SendCommand routes cmd to the user's player. A play command starts a
// player when none is running; any other command requires one.
func (m *Manager) SendCommand(u *user.User, cmd player.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if conn, ok := m.GetPlayer(u.ID); ok {
		return conn.Send(cmd)
	}
	if cmd.Type != player.CommandPlay {
		return ErrNoPlayer
	}
	if !u.HasCredentials() {
		return ErrMissingCredentials
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	conn, ok := m.GetPlayer(u.ID)
	if !ok {
		var err error
		conn, err = m.NewPlayer(u.ID, u.Token)
		if err != nil {
			return err
		}
	}
	return conn.Send(cmd)
}

// Close stops every player and waits for them to exit. Players can not be
// started once Close has been called.
func (m *Manager) Close() {
	m.lifeMu.Lock()
	m.closed = true
	m.lifeMu.Unlock()

	m.cancel()
	m.wg.Wait()
}
